// Package protocol defines the wire format spoken over the worker's
// control socket.
//
// Every message is a single JSON envelope carrying a command name and a
// command-specific payload. Requests and responses share the envelope
// shape; responses use the ok and error commands. Payloads are decoded
// lazily so the dispatcher can route on the command before committing
// to a payload type:
//
//	env, payload, err := protocol.Decode(line)
//	if err != nil {
//	    return err
//	}
//
//	switch env.Command {
//	case protocol.CmdListContainers:
//	    req, err := protocol.DecodePayload[protocol.TaskRequest](payload)
//	    ...
//	}
package protocol
