// Package mount manages disk and container filesystem mounts.
//
// Disk images are mounted read-only with options that tolerate an unclean
// journal, since forensic images are rarely cleanly unmounted filesystems.
// Container filesystems are mounted through the container-explorer binary
// by [Resolver], which searches the two well-known runtime state roots in
// a fixed order: containerd first, then Docker. A root directory that does
// not exist on the disk is skipped, and a container that matches neither
// family resolves to [ErrNotFound] rather than a failure.
//
// Unmounting is guarded: a path that is not an active mount point is never
// passed to umount. The guard makes teardown idempotent, so a cleanup pass
// can run again over the same paths without producing new errors.
package mount
