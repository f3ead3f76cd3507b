// Package runner executes external commands with captured output.
//
// Every mount, unmount, and explorer invocation in the worker goes through
// a [Runner]. A run that starts and exits reports its exit code as data: a
// non-zero exit is not an error, because callers decide how to treat tool
// failures. Errors are reserved for the two cases where no exit code
// exists: the command timed out ([ErrTimeout]) or could not be started at
// all ([ErrStart]).
//
// Example usage:
//
//	res, err := runner.New().Run(ctx, []string{"umount", "/mnt/abc123"}, 30*time.Second)
//	if err != nil {
//	    return err // timed out or never ran
//	}
//	if res.ExitCode != 0 {
//	    slog.Warn("umount failed", "stderr", res.Stderr)
//	}
package runner
