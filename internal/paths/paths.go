package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	workerName = "stevedore"

	// Default location of the container-explorer binary.
	DefaultExplorerBinary = "/opt/container-explorer/bin/ce"

	// Root under which per-disk mount point directories are created.
	DefaultDiskMountRoot = "/mnt"

	// Root under which per-container mount point directories are created.
	DefaultContainerMountRoot = "/tmp/mnt"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the directory for runtime files (sockets, PIDs).
//
//	Linux:   $XDG_RUNTIME_DIR/stevedore or /run/user/<uid>/stevedore
//	macOS:   ~/Library/Caches/stevedore/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, workerName)
	}
	return filepath.Join(xdg.CacheHome, workerName, "run")
}

// Default path to the Unix domain socket for task submission.
//
//	Linux:   $XDG_RUNTIME_DIR/stevedore/stevedore.sock
//	macOS:   ~/Library/Caches/stevedore/run/stevedore.sock
func Socket() string {
	return filepath.Join(Runtime(), workerName+".sock")
}

// Default path to the PID file.
//
//	Linux:   $XDG_RUNTIME_DIR/stevedore/stevedore.pid
//	macOS:   ~/Library/Caches/stevedore/run/stevedore.pid
func PIDFile() string {
	return filepath.Join(Runtime(), workerName+".pid")
}

// Default output directory for task artifacts when none is given.
//
//	Linux:   ~/.local/state/stevedore/output
//	macOS:   ~/Library/Application Support/stevedore/output
func DefaultOutputDir() string {
	return filepath.Join(xdg.StateHome, workerName, "output")
}
