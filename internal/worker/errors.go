package worker

import "errors"

var (
	ErrStage  = errors.New("cannot stage input file")
	ErrOutput = errors.New("cannot create output directory")
)
