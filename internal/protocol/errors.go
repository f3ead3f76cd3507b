package protocol

import "errors"

// Reported when a message cannot be encoded or decoded.
var ErrProtocol = errors.New("protocol error")
