package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Outcome of a command that ran to completion.
type Result struct {
	ExitCode int    // Exit code of the process.
	Stdout   string // Captured standard output.
	Stderr   string // Captured standard error.
}

// Returns true if the command exited with code zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Executes external commands.
//
// Implementations must not return an error for a non-zero exit code; the
// exit code is reported in the [Result] and the caller decides.
type Runner interface {
	Run(ctx context.Context, argv []string, timeout time.Duration) (*Result, error)
}

// Runs commands as local subprocesses.
type Exec struct{}

// Creates a runner backed by local subprocess execution.
func New() *Exec {
	return &Exec{}
}

// Runs argv as a subprocess and waits for it to exit.
//
// A timeout of zero means no deadline beyond the caller's context. On
// timeout the process is killed and [ErrTimeout] is returned; if the
// process could not be spawned, [ErrStart] is returned. In both cases
// there is no exit code and the result is nil. A process that runs and
// exits non-zero produces a normal result.
func (e *Exec) Run(ctx context.Context, argv []string, timeout time.Duration) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty argv", ErrStart)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("running command", "argv", strings.Join(argv, " "))

	err := cmd.Run()

	// The deadline check must come first: a killed process also surfaces
	// as an ExitError, which would be misreported as a tool failure.
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, argv[0])
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrStart, argv[0], ctx.Err())
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Result{
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrStart, argv[0], err)
	}

	return &Result{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
