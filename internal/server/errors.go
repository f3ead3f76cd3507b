package server

import "errors"

// Reported when the server cannot open or secure its socket.
var ErrServer = errors.New("server error")
