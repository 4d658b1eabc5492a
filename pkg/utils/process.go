package utils

import (
	"bytes"
	"context"
	"os/exec"
	"runtime"

	"github.com/pkg/errors"
)

// RunCommand runs command through the host shell and returns what it wrote
// to stdout. Output produced before a failure is still returned.
func RunCommand(ctx context.Context, command string) (string, error) {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return out.String(), errors.Wrapf(err, "run %q", command)
	}
	return out.String(), nil
}
