package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"picoc/pkg/library"
	"picoc/pkg/utils"
)

func (a *app) buildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build <file>",
		Short: "Compile a program to source for the selected backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, gen, err := a.compile(args[0], a.cfg.Backend)
			if err != nil {
				return err
			}

			out := utils.OutputPath(args[0], a.cfg.OutputDir, gen.Extension())
			if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
				return errors.Wrap(err, "create output directory")
			}
			if err := os.WriteFile(out, []byte(code), 0644); err != nil {
				return errors.Wrapf(err, "write %s", out)
			}

			files, err := library.Runtime(gen.Name())
			if err != nil {
				return err
			}
			for _, f := range files {
				dst := filepath.Join(filepath.Dir(out), f.Name)
				if err := os.WriteFile(dst, f.Data, 0644); err != nil {
					return errors.Wrapf(err, "write %s", dst)
				}
				a.log.WithField("file", dst).Debug("runtime written")
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Type-check a program without writing any output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, err := a.compile(args[0], a.cfg.Backend)
			return err
		},
	}
}
