package runner

import "errors"

var (
	ErrTimeout = errors.New("command timed out")
	ErrStart   = errors.New("command failed to start")
)
