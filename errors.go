package mcpshot

import "errors"

var (
	// ErrSpawn indicates the child process could not be started.
	ErrSpawn = errors.New("spawn failed")
	// ErrTimeout indicates no message arrived within the receive bound.
	ErrTimeout = errors.New("timed out waiting for message")
	// ErrEndOfStream indicates the child closed its stdout; no message follows.
	ErrEndOfStream = errors.New("end of stream")
	// ErrMalformedMessage indicates a stdout line was not a JSON object.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrProtocol indicates a response carried an error where a result was expected.
	ErrProtocol = errors.New("protocol error")
	// ErrDataShape indicates a result payload lacked expected fields.
	ErrDataShape = errors.New("unexpected data shape")
	// ErrInvalidConfig indicates the harness configuration is unusable.
	ErrInvalidConfig = errors.New("invalid config")
)
