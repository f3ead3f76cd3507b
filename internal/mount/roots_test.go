package mount

import (
	"os"
	"path/filepath"
	"testing"
)

func mkdirs(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := os.MkdirAll(p, 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestHasContainerRootDocker(t *testing.T) {
	disk := t.TempDir()
	mkdirs(t, filepath.Join(disk, DockerRoot, "containers"))

	if !HasContainerRoot(disk) {
		t.Fatal("HasContainerRoot = false for docker root with containers dir")
	}
}

func TestHasContainerRootContainerdContainers(t *testing.T) {
	disk := t.TempDir()
	mkdirs(t, filepath.Join(disk, ContainerdRoot, "containers"))

	if !HasContainerRoot(disk) {
		t.Fatal("HasContainerRoot = false for containerd root with containers dir")
	}
}

func TestHasContainerRootContainerdPlugin(t *testing.T) {
	disk := t.TempDir()
	mkdirs(t, filepath.Join(disk, ContainerdRoot, "io.containerd.content.v1.content"))

	if !HasContainerRoot(disk) {
		t.Fatal("HasContainerRoot = false for containerd root with plugin dir")
	}
}

func TestHasContainerRootNoMarkers(t *testing.T) {
	disk := t.TempDir()
	mkdirs(t,
		filepath.Join(disk, DockerRoot, "image"),
		filepath.Join(disk, ContainerdRoot, "tmpmounts"),
	)

	if HasContainerRoot(disk) {
		t.Fatal("HasContainerRoot = true for roots without valid markers")
	}
}

func TestHasContainerRootEmptyDisk(t *testing.T) {
	if HasContainerRoot(t.TempDir()) {
		t.Fatal("HasContainerRoot = true for empty disk")
	}
}
