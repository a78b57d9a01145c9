package transport

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/Justype/hqadapter/internal/utils"
)

// Local runs commands on this machine through bash.
type Local struct {
	shell string
}

// NewLocal creates a Local transport using /bin/bash.
func NewLocal() *Local {
	return &Local{shell: "/bin/bash"}
}

// Exec runs command with `bash -c` and collects both streams.
func (l *Local) Exec(ctx context.Context, command string) (*Result, error) {
	utils.PrintDebug("[local] Running %s", utils.StyleCommand(command))

	cmd := exec.CommandContext(ctx, l.shell, "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, errors.Wrap(ctx.Err(), "command interrupted")
	}
	return nil, errors.Wrapf(err, "could not run %q", command)
}

// WriteFile writes data to path, creating parent directories.
func (l *Local) WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "could not create directory for %s", path)
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return errors.Wrapf(err, "could not write %s", path)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, perm); err != nil {
		return errors.Wrapf(err, "could not chmod %s", path)
	}
	return nil
}

// Close is a no-op for Local.
func (l *Local) Close() error { return nil }
