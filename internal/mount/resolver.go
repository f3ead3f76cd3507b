package mount

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/harborlabs/stevedore/internal/explorer"
)

// Resolves container IDs to mounted filesystems.
//
// Resolution walks the runtime roots present on a mounted disk in a fixed
// order (containerd, then Docker) and delegates the actual mount to the
// explorer binary. A caller-supplied custom root takes absolute precedence
// and disables the default-root fallback entirely.
type Resolver struct {
	client *explorer.Client
}

// Creates a resolver backed by the given explorer client.
func NewResolver(client *explorer.Client) *Resolver {
	return &Resolver{client: client}
}

// Mounts the filesystem of a single container at mountDir.
//
// With a custom root, the mount is attempted once under that root and no
// default locations are consulted afterwards. Otherwise each well-known
// root that exists on the disk is tried with its own family's flags, first
// success wins. A container that matches nothing resolves to
// [ErrNotFound]; no partial mount survives a failed resolution because a
// failed explorer mount leaves mountDir untouched.
func (r *Resolver) MountSingle(ctx context.Context, containerID, diskMount, mountDir, customRoot string) error {
	if customRoot != "" {
		root := filepath.Join(diskMount, customRoot)
		if !dirExists(root) {
			slog.Debug("custom container root does not exist", "root", root)
			return ErrNotFound
		}

		// The custom root does not say which runtime wrote it, so both
		// flag flavors are tried against the same directory.
		for _, family := range []explorer.Family{explorer.Containerd, explorer.Docker} {
			if r.mountAt(ctx, family, root, containerID, mountDir) {
				return nil
			}
		}
		return ErrNotFound
	}

	for _, candidate := range defaultRoots {
		root := filepath.Join(diskMount, candidate.rel)
		if !dirExists(root) {
			continue
		}
		if r.mountAt(ctx, candidate.family, root, containerID, mountDir) {
			return nil
		}
	}

	return ErrNotFound
}

// Mounts every container on the disk, each into its own subdirectory of
// mountRoot, and returns the container IDs that were mounted.
//
// Unlike [Resolver.MountSingle], the default-root path attempts both
// families in sequence: containerd and Docker containers can coexist on
// one disk, and a bulk operation should surface both. The IDs are
// enumerated from the subdirectories the explorer created under
// mountRoot. No root directory on the disk at all resolves to
// [ErrNotFound]; roots that exist but yield nothing produce an empty
// list, which is not an error.
func (r *Resolver) MountAll(ctx context.Context, diskMount, mountRoot, customRoot string) ([]string, error) {
	if customRoot != "" {
		root := filepath.Join(diskMount, customRoot)
		if !dirExists(root) {
			slog.Debug("custom container root does not exist", "root", root)
			return nil, ErrNotFound
		}

		if !r.mountAllAt(ctx, explorer.Containerd, root, mountRoot) {
			r.mountAllAt(ctx, explorer.Docker, root, mountRoot)
		}
		return mountedIDs(mountRoot), nil
	}

	attempted := false
	for _, candidate := range defaultRoots {
		root := filepath.Join(diskMount, candidate.rel)
		if !dirExists(root) {
			continue
		}
		attempted = true
		r.mountAllAt(ctx, candidate.family, root, mountRoot)
	}

	if !attempted {
		return nil, ErrNotFound
	}

	return mountedIDs(mountRoot), nil
}

// Attempts a single-container mount, logging failure instead of
// propagating it.
func (r *Resolver) mountAt(ctx context.Context, family explorer.Family, root, containerID, mountDir string) bool {
	if err := r.client.Mount(ctx, family, root, containerID, mountDir); err != nil {
		slog.Debug("container mount attempt failed",
			"container", containerID,
			"family", family,
			"root", root,
			"error", err,
		)
		return false
	}

	slog.Info("container mounted", "container", containerID, "family", family, "mountpoint", mountDir)
	return true
}

// Attempts a bulk mount, logging failure instead of propagating it.
func (r *Resolver) mountAllAt(ctx context.Context, family explorer.Family, root, mountRoot string) bool {
	if err := r.client.MountAll(ctx, family, root, mountRoot); err != nil {
		slog.Debug("bulk container mount attempt failed",
			"family", family,
			"root", root,
			"error", err,
		)
		return false
	}

	slog.Info("containers mounted", "family", family, "mountroot", mountRoot)
	return true
}

// Enumerates the container mount points created under mountRoot. Each
// subdirectory is one mounted container, named by its ID.
func mountedIDs(mountRoot string) []string {
	entries, err := os.ReadDir(mountRoot)
	if err != nil {
		slog.Warn("cannot enumerate container mounts", "mountroot", mountRoot, "error", err)
		return nil
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	return ids
}
