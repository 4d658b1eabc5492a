// Package cli implements the picoc command line: build, run and check.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"picoc/pkg/config"
)

// app is the state shared by the commands of one command tree.
type app struct {
	configPath string
	backend    string
	libs       []string
	noCore     bool
	outDir     string
	logLevel   string

	cfg *config.Config
	log *logrus.Logger
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	a := &app{log: logrus.New()}

	rootCmd := &cobra.Command{
		Use:           "picoc",
		Short:         "Compiler for the pico language",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./"+config.DefaultFile+" when present)")
	flags.StringVarP(&a.backend, "backend", "b", "", "code generator: c, lua or js")
	flags.StringSliceVarP(&a.libs, "lib", "l", nil, "extra library manifest to register (repeatable)")
	flags.BoolVar(&a.noCore, "no-core", false, "do not register the core library")
	flags.StringVarP(&a.outDir, "out", "o", "", "output directory (default: next to the source)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warning, error")

	rootCmd.AddCommand(
		a.buildCmd(),
		a.runCmd(),
		a.checkCmd(),
	)
	return rootCmd
}

// setup loads the config, applies the flags that were set and configures
// logging.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = a.backend
	}
	if flags.Changed("lib") {
		cfg.Libraries = append(cfg.Libraries, a.libs...)
	}
	if flags.Changed("no-core") {
		cfg.NoCoreLibrary = a.noCore
	}
	if flags.Changed("out") {
		cfg.OutputDir = a.outDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.log.SetOutput(cmd.ErrOrStderr())
	a.log.SetLevel(cfg.Level())
	a.log.WithFields(logrus.Fields{
		"backend": cfg.Backend,
		"libs":    len(cfg.Libraries),
	}).Debug("configured")
	return nil
}

// Execute runs the command line and exits with status 1 after printing the
// error, if any.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
