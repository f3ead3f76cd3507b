// Provides platform-appropriate paths for the worker.
//
// Runtime paths (socket, PID file) follow XDG conventions with the worker
// name "stevedore" as the subdirectory under each base path. Mount roots
// are fixed, short paths: overlay mount options embed every layer path,
// and a long mount root can push the option string past the kernel's 4KB
// page limit.
package paths
