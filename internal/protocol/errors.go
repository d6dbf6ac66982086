package protocol

import "fmt"

// FramingError reports a datagram that cannot carry a packet header.
type FramingError struct {
	Message string
	Offset  int
	Length  int
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("framing: %s (length %d, offset %d)", e.Message, e.Length, e.Offset)
}

// NewFramingError creates a new FramingError
func NewFramingError(message string, offset, length int) *FramingError {
	return &FramingError{Message: message, Offset: offset, Length: length}
}

// DecodeError reports a payload shorter than its message type requires.
type DecodeError struct {
	Type MessageType
	Name string
	Need int
	Have int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s (type %d): payload is %d bytes, need %d", e.Name, e.Type, e.Have, e.Need)
}

// EncodeError reports a message that could not be encoded, usually because
// a field value does not fit its fixed capacity.
type EncodeError struct {
	Type MessageType
	Name string
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("encode type %d: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("encode %s: %v", e.Name, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
