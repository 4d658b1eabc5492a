package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"picoc/pkg/interp"
	"picoc/pkg/utils"
	"picoc/pkg/vfs"
)

func (a *app) runCmd() *cobra.Command {
	var (
		keep    bool
		sandbox string
	)
	cmd := &cobra.Command{
		Use:   "run <file> [args...]",
		Short: "Compile a program to Lua and run it in the embedded interpreter",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			code, _, err := a.compile(file, "lua")
			if err != nil {
				return err
			}
			if keep {
				name := filepath.Join(os.TempDir(), "picoc-"+uuid.New().String()+".lua")
				if err := os.WriteFile(name, []byte(code), 0644); err != nil {
					return errors.Wrap(err, "keep generated code")
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "generated code kept in", name)
			}

			var disk vfs.FS = vfs.NewOSDisk()
			var virtual *vfs.VirtualDisk
			if sandbox != "" || a.cfg.DiskQuota > 0 {
				virtual = vfs.NewVirtualDisk(a.cfg.DiskQuota)
				if sandbox != "" {
					if err := virtual.LoadFrom(sandbox); err != nil {
						return errors.Wrapf(err, "load sandbox %s", sandbox)
					}
				}
				disk = virtual
			}

			it := interp.New(
				interp.WithOutput(cmd.OutOrStdout()),
				interp.WithInput(cmd.InOrStdin()),
				interp.WithFS(disk),
				interp.WithLogger(a.log),
				interp.WithArgs(utils.StripExt(utils.StripDir(file)), args[1:]),
			)
			defer it.Close()

			runErr := it.Run(cmd.Context(), code)
			if virtual != nil && sandbox != "" && virtual.Dirty {
				if err := virtual.PersistTo(sandbox); err != nil && runErr == nil {
					return errors.Wrapf(err, "persist sandbox %s", sandbox)
				}
			}
			return runErr
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().BoolVar(&keep, "keep", false, "keep the generated Lua code in a scratch file")
	cmd.Flags().StringVar(&sandbox, "sandbox", "", "run against an in-memory disk loaded from, and saved back to, this directory")
	return cmd
}
