// Package config holds the picoc settings: defaults, overridden by an
// optional YAML file, overridden by PICOC_* environment variables. Command
// line flags are applied on top by the cli package.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"

	"picoc/pkg/codegen"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "picoc.yaml"

type Config struct {
	Backend       string   `yaml:"backend"`
	Libraries     []string `yaml:"libraries"`
	NoCoreLibrary bool     `yaml:"no_core_library"`
	OutputDir     string   `yaml:"output_dir"`
	LogLevel      string   `yaml:"log_level"`
	// DiskQuota enables the in-memory disk for run when positive.
	DiskQuota int `yaml:"disk_quota"`
}

func Default() *Config {
	return &Config{
		Backend:  "c",
		LogLevel: "warning",
	}
}

// Load reads the config file at path (DefaultFile when empty) and applies
// the environment. A missing default file is not an error; a missing file
// that was asked for is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides every field whose variable is set.
func (c *Config) ApplyEnv() {
	// env caches os.Environ on first use; pick up later Setenv calls.
	env.Load()
	if env.Has("PICOC_BACKEND") {
		c.Backend = env.Str("PICOC_BACKEND")
	}
	if env.Has("PICOC_LIBS") {
		c.Libraries = filepath.SplitList(env.Str("PICOC_LIBS"))
	}
	if env.Has("PICOC_NO_CORE") {
		c.NoCoreLibrary = env.Bool("PICOC_NO_CORE")
	}
	if env.Has("PICOC_OUT_DIR") {
		c.OutputDir = env.Str("PICOC_OUT_DIR")
	}
	if env.Has("PICOC_LOG_LEVEL") {
		c.LogLevel = env.Str("PICOC_LOG_LEVEL")
	}
	if env.Has("PICOC_DISK_QUOTA") {
		c.DiskQuota = env.Int("PICOC_DISK_QUOTA", c.DiskQuota)
	}
}

func (c *Config) Validate() error {
	if _, err := codegen.New(c.Backend); err != nil {
		return errors.Wrap(err, "config")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "config")
	}
	if c.DiskQuota < 0 {
		return errors.Errorf("config: negative disk quota %d", c.DiskQuota)
	}
	for _, lib := range c.Libraries {
		if strings.TrimSpace(lib) == "" {
			return errors.New("config: empty library path")
		}
	}
	return nil
}

// Level returns the parsed log level, falling back to warning.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.WarnLevel
	}
	return lvl
}
