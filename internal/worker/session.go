package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/harborlabs/stevedore/internal/mount"
	"github.com/harborlabs/stevedore/internal/paths"
)

// Tracks every resource acquired while processing one disk image.
//
// Directories and mount points are recorded in acquisition order and
// released in reverse by [session.teardown]. The session is the only
// place that creates mount-point directories, which keeps the invariant
// simple: what the session created, the session removes, and nothing
// else is ever unmounted or deleted.
type session struct {
	mounts *mount.Manager
	log    *runLog

	mountPoints []string // Active mounts, in acquisition order.
	tempDirs    []string // Worker-private directories, in creation order.
}

// Records an acquired mount point for teardown.
func (s *session) trackMount(path string) {
	s.mountPoints = append(s.mountPoints, path)
}

// Creates a worker-private directory and records it for removal.
func (s *session) makeDir(path string) error {
	if err := os.MkdirAll(path, paths.DefaultDirMode); err != nil {
		return err
	}
	s.tempDirs = append(s.tempDirs, path)
	return nil
}

// Stages the input image into a private directory under outputDir.
//
// The image is hard-linked to avoid copying; when the link fails (for
// example across devices) the image is copied instead. The caller's file
// is never touched.
func (s *session) stageDisk(outputDir string, input InputFile) (string, error) {
	stageDir := filepath.Join(outputDir, "tmp"+shortID())
	if err := s.makeDir(stageDir); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStage, err)
	}

	staged := filepath.Join(stageDir, filepath.Base(input.Path))
	if err := linkOrCopy(input.Path, staged); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStage, err)
	}

	slog.Debug("staged disk image", "source", input.Path, "staged", staged)
	return staged, nil
}

// Mounts the staged image read-only at a fresh directory under
// diskMountRoot and returns the mount point.
func (s *session) mountDisk(ctx context.Context, staged, diskMountRoot string) (string, error) {
	mountPoint := filepath.Join(diskMountRoot, shortID())
	if err := s.makeDir(mountPoint); err != nil {
		return "", fmt.Errorf("%w: %v", mount.ErrMount, err)
	}

	if err := s.mounts.MountDisk(ctx, staged, mountPoint); err != nil {
		return "", err
	}

	s.trackMount(mountPoint)
	return mountPoint, nil
}

// Creates a fresh container mount directory under containerMountRoot.
func (s *session) containerMountDir(containerMountRoot string) (string, error) {
	dir := filepath.Join(containerMountRoot, shortID())
	if err := s.makeDir(dir); err != nil {
		return "", fmt.Errorf("%w: %v", mount.ErrMount, err)
	}
	return dir, nil
}

// Releases everything the session acquired, in reverse order.
//
// Every unmount is attempted even when an earlier one failed, each gated
// by the is-mount check so a repeated teardown is a no-op. Directories
// are then removed unless something below them is still mounted; such
// residuals are logged and left in place, because deleting the backing
// directory of an active mount is never safe.
func (s *session) teardown(ctx context.Context) {
	for i := len(s.mountPoints) - 1; i >= 0; i-- {
		p := s.mountPoints[i]
		if err := s.mounts.Unmount(ctx, p); err != nil {
			slog.Warn("cleanup: unmount failed", "path", p, "error", err)
			s.log.Printf("Error unmounting %s", p)
		}
	}

	for i := len(s.tempDirs) - 1; i >= 0; i-- {
		dir := s.tempDirs[i]
		if s.mountedUnder(dir) {
			slog.Warn("cleanup: directory still mounted, leaving in place", "path", dir)
			s.log.Printf("Residual mount left in place: %s", dir)
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("cleanup: cannot remove directory", "path", dir, "error", err)
			s.log.Printf("Error removing directory %s", dir)
		}
	}

	s.mountPoints = nil
	s.tempDirs = nil
}

// Reports whether dir, or any mount point the session placed at or below
// dir, is still an active mount.
func (s *session) mountedUnder(dir string) bool {
	if s.mounts.Mounted(dir) {
		return true
	}
	prefix := dir + string(filepath.Separator)
	for _, p := range s.mountPoints {
		if (p == dir || strings.HasPrefix(p, prefix)) && s.mounts.Mounted(p) {
			return true
		}
	}
	return false
}

// Hard-links src to dst, copying the file contents when linking is not
// possible (cross-device staging, restrictive hard-link policies).
func linkOrCopy(src, dst string) error {
	if err := os.Link(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, paths.DefaultFileMode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}

	return out.Close()
}
