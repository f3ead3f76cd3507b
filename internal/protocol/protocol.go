package protocol

import (
	"encoding/json"
	"fmt"
)

// A command name carried in the envelope.
type Command string

const (
	// Task commands, one per forensic task.
	CmdListContainers Command = "container-list"
	CmdDetectDrift    Command = "container-drift"
	CmdExportFiles    Command = "container-export"
	CmdExtractFiles   Command = "container-file-extract"

	// Control commands.
	CmdStatus   Command = "status"
	CmdShutdown Command = "shutdown"

	// Response commands.
	CmdOK    Command = "ok"
	CmdError Command = "error"
)

// The outer JSON message exchanged over the socket.
type Envelope struct {
	Command Command         `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Serializes a command and payload into an envelope.
func Encode(cmd Command, payload any) ([]byte, error) {
	env := Envelope{Command: cmd}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: encode %s payload: %v", ErrProtocol, cmd, err)
		}
		env.Payload = data
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s envelope: %v", ErrProtocol, cmd, err)
	}
	return data, nil
}

// Parses an envelope, returning the raw payload for the dispatcher.
func Decode(data []byte) (*Envelope, json.RawMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: malformed envelope: %v", ErrProtocol, err)
	}
	if env.Command == "" {
		return nil, nil, fmt.Errorf("%w: envelope has no command", ErrProtocol)
	}
	return &env, env.Payload, nil
}

// Decodes a raw payload into the command's payload type. A nil payload
// decodes to the zero value.
func DecodePayload[T any](payload json.RawMessage) (T, error) {
	var v T
	if len(payload) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: malformed payload: %v", ErrProtocol, err)
	}
	return v, nil
}
