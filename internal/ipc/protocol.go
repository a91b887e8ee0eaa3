// Package ipc carries session commands over a unix socket, one JSON request
// and one JSON response line per connection.
package ipc

import "encoding/json"

// Request is one command sent to the session owner. A non-empty Exercise must
// match the owner's exercise.
type Request struct {
	Command  string `json:"command"`
	Exercise string `json:"exercise,omitempty"`
}

// Response carries the phase after the command and an optional state snapshot.
type Response struct {
	OK      bool            `json:"ok"`
	State   string          `json:"state,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Failure builds an error response.
func Failure(message string) Response {
	return Response{OK: false, Error: message}
}
