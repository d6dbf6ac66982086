package lan

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a closed client.
	ErrClosed = errors.New("lan: client closed")
	// ErrNotOpen is returned when sending before Open.
	ErrNotOpen = errors.New("lan: client not open")
	// ErrAlreadyOpen is returned by a second call to Open.
	ErrAlreadyOpen = errors.New("lan: client already open")
)

// SocketError reports a failed socket operation.
type SocketError struct {
	Op  string // bind, send or receive
	Err error
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("lan: %s: %v", e.Op, e.Err)
}

func (e *SocketError) Unwrap() error {
	return e.Err
}
