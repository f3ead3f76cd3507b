package worker

import (
	"fmt"
	"os"
	"time"

	"github.com/harborlabs/stevedore/internal/explorer"
	"github.com/harborlabs/stevedore/internal/mount"
	"github.com/harborlabs/stevedore/internal/paths"
	"github.com/harborlabs/stevedore/internal/runner"
)

// Holds worker configuration. Zero values select production defaults;
// tests substitute a fake runner, mount predicate, and private roots.
type Config struct {
	ExplorerBinary     string        // Path to the container-explorer binary. Empty uses [paths.DefaultExplorerBinary].
	DiskMountRoot      string        // Root for per-disk mount points. Empty uses [paths.DefaultDiskMountRoot].
	ContainerMountRoot string        // Root for per-container mount points. Empty uses [paths.DefaultContainerMountRoot].
	Runner             runner.Runner // Command runner shared by all external invocations. Nil uses subprocesses.
	ExplorerTimeout    time.Duration // Deadline per explorer invocation. Zero uses [explorer.DefaultTimeout].
	MountTimeout       time.Duration // Deadline per mount/umount command. Zero uses [mount.DefaultTimeout].

	// Active-mount predicate, consulted before every unmount and
	// removal. Nil uses the host mount table.
	IsMount func(string) bool
}

// Executes forensic container tasks against disk images.
type Worker struct {
	explorer *explorer.Client
	mounts   *mount.Manager
	resolver *mount.Resolver

	diskMountRoot      string
	containerMountRoot string
}

// Creates a worker.
func New(cfg Config) *Worker {
	client := explorer.New(explorer.Config{
		Binary:  cfg.ExplorerBinary,
		Runner:  cfg.Runner,
		Timeout: cfg.ExplorerTimeout,
	})

	mounts := mount.NewManager(mount.Config{
		Runner:  cfg.Runner,
		Timeout: cfg.MountTimeout,
		IsMount: cfg.IsMount,
	})

	diskMountRoot := cfg.DiskMountRoot
	if diskMountRoot == "" {
		diskMountRoot = paths.DefaultDiskMountRoot
	}

	containerMountRoot := cfg.ContainerMountRoot
	if containerMountRoot == "" {
		containerMountRoot = paths.DefaultContainerMountRoot
	}

	return &Worker{
		explorer:           client,
		mounts:             mounts,
		resolver:           mount.NewResolver(client),
		diskMountRoot:      diskMountRoot,
		containerMountRoot: containerMountRoot,
	}
}

// Prepares the output directory and run log for a task invocation.
//
// This is the one failure that aborts a task outright: without an output
// directory there is nowhere to degrade to, so the error propagates
// instead of becoming a log entry.
func (w *Worker) beginTask(req Request, taskName string) (*runLog, error) {
	if req.OutputDir == "" {
		return nil, fmt.Errorf("%w: no output directory given", ErrOutput)
	}
	if err := os.MkdirAll(req.OutputDir, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutput, err)
	}

	return newRunLog(req.OutputDir, taskName)
}

// Creates a session for processing one disk image.
func (w *Worker) newSession(log *runLog) *session {
	return &session{mounts: w.mounts, log: log}
}
