package mount

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/moby/sys/mountinfo"

	"github.com/harborlabs/stevedore/internal/runner"
)

// Default deadline for a single mount or umount command.
const DefaultTimeout = 2 * time.Minute

// Holds manager configuration. Zero values select defaults; tests inject
// a fake runner and is-mount predicate.
type Config struct {
	Runner  runner.Runner     // Command runner. Nil uses a local subprocess runner.
	Timeout time.Duration     // Per-command deadline. Zero uses [DefaultTimeout].
	IsMount func(string) bool // Active-mount predicate. Nil uses the mount table.
}

// Runs mount and umount commands against the host mount table.
type Manager struct {
	runner  runner.Runner
	timeout time.Duration
	isMount func(string) bool
}

// Creates a mount manager.
func NewManager(cfg Config) *Manager {
	r := cfg.Runner
	if r == nil {
		r = runner.New()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	isMount := cfg.IsMount
	if isMount == nil {
		isMount = mounted
	}

	return &Manager{runner: r, timeout: timeout, isMount: isMount}
}

// Consults the host mount table for path.
func mounted(path string) bool {
	isMount, err := mountinfo.Mounted(path)
	if err != nil {
		return false
	}
	return isMount
}

// Mounts a disk image read-only at mountPoint.
//
// The noload option skips journal replay, which would fail on the dirty
// journals forensic images commonly carry and would require write access.
func (m *Manager) MountDisk(ctx context.Context, imagePath, mountPoint string) error {
	argv := []string{"mount", "-o", "ro,noload", imagePath, mountPoint}

	res, err := m.runner.Run(ctx, argv, m.timeout)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMount, err)
	}
	if !res.Success() {
		return fmt.Errorf("%w: mount %s: exit code %d: %s", ErrMount, imagePath, res.ExitCode, res.Stderr)
	}

	slog.Debug("disk mounted", "image", imagePath, "mountpoint", mountPoint)
	return nil
}

// Reports whether path is an active mount point.
func (m *Manager) Mounted(path string) bool {
	if path == "" {
		return false
	}
	return m.isMount(path)
}

// Unmounts path if it is an active mount point.
//
// A path that is not mounted is a no-op, not an error: teardown runs over
// every directory it ever created, including those whose mount never
// succeeded or was already released by an earlier pass.
func (m *Manager) Unmount(ctx context.Context, path string) error {
	if !m.Mounted(path) {
		slog.Debug("skipping unmount, not a mount point", "path", path)
		return nil
	}

	res, err := m.runner.Run(ctx, []string{"umount", path}, m.timeout)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnmount, err)
	}
	if !res.Success() {
		return fmt.Errorf("%w: umount %s: exit code %d: %s", ErrUnmount, path, res.ExitCode, res.Stderr)
	}

	slog.Debug("unmounted", "path", path)
	return nil
}
