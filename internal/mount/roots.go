package mount

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/harborlabs/stevedore/internal/explorer"
)

// Well-known runtime state directories relative to a disk mount, in
// resolution order.
const (
	ContainerdRoot = "var/lib/containerd"
	DockerRoot     = "var/lib/docker"
)

// A runtime root candidate: the family decides which explorer flags are
// used for containers found under the path.
type runtimeRoot struct {
	family explorer.Family
	rel    string
}

// Resolution order: containerd is always tried before Docker.
var defaultRoots = []runtimeRoot{
	{explorer.Containerd, ContainerdRoot},
	{explorer.Docker, DockerRoot},
}

// Reports whether path exists and is a directory. A missing root is a
// precondition failure for a mount attempt, never an error.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Reports whether the mounted disk holds a plausible container runtime
// root. Used by listing and drift tasks to skip disks without container
// state before invoking the explorer.
//
// A Docker root counts when it has a containers directory; a containerd
// root counts when it has a containers directory or any io.containerd.*
// plugin directory.
func HasContainerRoot(diskMount string) bool {
	docker := filepath.Join(diskMount, DockerRoot)
	if dirExists(filepath.Join(docker, "containers")) {
		return true
	}

	containerd := filepath.Join(diskMount, ContainerdRoot)
	if dirExists(filepath.Join(containerd, "containers")) {
		return true
	}

	entries, err := os.ReadDir(containerd)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "io.containerd.") {
			return true
		}
	}

	return false
}
