// Package explorer drives the container-explorer binary.
//
// The binary inspects container state on a mounted disk image without any
// live runtime: it can list containers, report filesystem drift, mount
// container filesystems, and export them as raw disk images or archives.
// This package only builds command lines and decodes the JSON documents
// the tool writes; it never interprets container internals itself.
//
// Containerd and Docker containers are addressed through the same
// subcommands with different flags, captured by [Family]. Operations that
// produce a report write it to a caller-supplied output file, read back
// with [ReadReport].
package explorer
