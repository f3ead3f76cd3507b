package explorer

import "errors"

var ErrTool = errors.New("container-explorer failed")
