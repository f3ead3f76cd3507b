package worker

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/harborlabs/stevedore/internal/paths"
)

// Append-only, human-readable log of one task invocation.
//
// The run log is an operator artifact, never control flow: tasks write a
// line for every skipped disk, unresolved container, and failed cleanup,
// and the file is returned with the task result even when nothing else
// was produced.
type runLog struct {
	artifact Artifact
	file     *os.File
}

// Creates the run-log artifact for a task in dir.
func newRunLog(dir, taskName string) (*runLog, error) {
	path := newOutputPath(dir, "log")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, paths.DefaultFileMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutput, err)
	}

	return &runLog{
		artifact: Artifact{
			Path:        path,
			DisplayName: taskName + ".log",
			DataType:    "worker:log",
		},
		file: f,
	}, nil
}

// Appends one line to the run log.
func (l *runLog) Printf(format string, args ...any) {
	if _, err := fmt.Fprintf(l.file, format+"\n", args...); err != nil {
		slog.Warn("cannot append to run log", "path", l.artifact.Path, "error", err)
	}
}

// Flushes and closes the log file.
func (l *runLog) Close() {
	if err := l.file.Close(); err != nil {
		slog.Warn("cannot close run log", "path", l.artifact.Path, "error", err)
	}
}
