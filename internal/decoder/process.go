// Package decoder drives the external ffmpeg/ffprobe processes that turn a
// video file into a raw planar frame stream.
package decoder

import (
	"context"
	"errors"
	"io"
	"os/exec"
)

// ProcessRunner runs an external process to completion.
// This abstraction allows probing to be faked in tests.
type ProcessRunner interface {
	// Run executes a command with the given context, arguments and stdin, and returns stdout/stderr.
	Run(ctx context.Context, path string, args []string, stdin io.Reader) (stdout, stderr []byte, err error)
}

// RealProcessRunner implements ProcessRunner using os/exec.
type RealProcessRunner struct{}

// NewRealProcessRunner creates a new real process runner.
func NewRealProcessRunner() *RealProcessRunner {
	return &RealProcessRunner{}
}

// Run executes a real external process.
func (r *RealProcessRunner) Run(ctx context.Context, path string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = stdin

	stdout, err := cmd.Output()
	if err != nil {
		// Output() returns stderr in the error if it's an ExitError.
		exitErr := &exec.ExitError{}
		if errors.As(err, &exitErr) {
			return stdout, exitErr.Stderr, err
		}
		return stdout, nil, err
	}

	return stdout, nil, nil
}
