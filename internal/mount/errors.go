package mount

import "errors"

var (
	ErrMount    = errors.New("mount failed")
	ErrUnmount  = errors.New("unmount failed")
	ErrNotFound = errors.New("container not found under any runtime root")
)
