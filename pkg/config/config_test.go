package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, name := range []string{"PICOC_BACKEND", "PICOC_LIBS", "PICOC_NO_CORE", "PICOC_OUT_DIR", "PICOC_LOG_LEVEL", "PICOC_DISK_QUOTA"} {
		if v, ok := os.LookupEnv(name); ok {
			os.Unsetenv(name)
			t.Cleanup(func() { os.Setenv(name, v) })
		}
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "picoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
backend: lua
libraries: [extra.lb, more.lb]
no_core_library: true
output_dir: build
log_level: debug
disk_quota: 4096
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Backend:       "lua",
		Libraries:     []string{"extra.lb", "more.lb"},
		NoCoreLibrary: true,
		OutputDir:     "build",
		LogLevel:      "debug",
		DiskQuota:     4096,
	}, cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, logrus.DebugLevel, cfg.Level())
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "backend: [lua"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PICOC_BACKEND", "js")
	t.Setenv("PICOC_LIBS", "a.lb"+string(os.PathListSeparator)+"b.lb")
	t.Setenv("PICOC_NO_CORE", "true")
	t.Setenv("PICOC_OUT_DIR", "out")
	t.Setenv("PICOC_LOG_LEVEL", "info")
	t.Setenv("PICOC_DISK_QUOTA", "100")

	cfg, err := Load(writeConfig(t, "backend: lua\nlog_level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "js", cfg.Backend)
	assert.Equal(t, []string{"a.lb", "b.lb"}, cfg.Libraries)
	assert.True(t, cfg.NoCoreLibrary)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100, cfg.DiskQuota)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown backend", func(c *Config) { c.Backend = "cobol" }, true},
		{"backend case", func(c *Config) { c.Backend = "LUA" }, false},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"negative quota", func(c *Config) { c.DiskQuota = -1 }, true},
		{"empty library", func(c *Config) { c.Libraries = []string{" "} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
