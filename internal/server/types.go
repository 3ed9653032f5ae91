// Package server defines the server lifecycle states, startup errors and
// connection error helpers shared across the accept loop and handlers.
package server

import (
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// State is the lifecycle state of a Server.
type State int32

// Server lifecycle: Idle -> Listening -> Closed.
const (
	StateIdle State = iota
	StateListening
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// BindError reports that the listening socket could not be established.
type BindError struct {
	Address string
	Err     error
}

func (e *BindError) Error() string {
	return "bind " + e.Address + ": " + e.Err.Error()
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// isExpectedCloseError checks if an error is expected when a client goes away.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset by peer")
}
