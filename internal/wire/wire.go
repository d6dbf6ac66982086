// Package wire encodes and decodes the fixed-width little-endian primitives
// used by the LIFX LAN protocol.
//
// The Put*/Get style functions operate on a buffer at an offset and require
// the buffer to be long enough. Reader and Writer wrap the same functions
// with a cursor and bounds checks for callers that walk a whole payload.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

var (
	// ErrShortBuffer is returned when a read or write would run past the end
	// of the buffer.
	ErrShortBuffer = errors.New("wire: short buffer")

	// ErrCapacity is returned when a value does not fit its fixed field.
	ErrCapacity = errors.New("wire: value exceeds field capacity")
)

// EncodeError reports a value rejected by a fixed-capacity field.
type EncodeError struct {
	Field    string
	Length   int
	Capacity int
}

func (e *EncodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("wire: %s is %d bytes, capacity %d", e.Field, e.Length, e.Capacity)
	}
	return fmt.Sprintf("wire: value is %d bytes, capacity %d", e.Length, e.Capacity)
}

// Unwrap allows errors.Is(err, ErrCapacity).
func (e *EncodeError) Unwrap() error {
	return ErrCapacity
}

func PutUint8(buf []byte, off int, v uint8) { buf[off] = v }

func PutUint16(buf []byte, off int, v uint16) {
	binary.LittleEndian.PutUint16(buf[off:], v)
}

func PutUint32(buf []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:], v)
}

func PutUint64(buf []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(buf[off:], v)
}

func PutInt16(buf []byte, off int, v int16) { PutUint16(buf, off, uint16(v)) }

func PutInt32(buf []byte, off int, v int32) { PutUint32(buf, off, uint32(v)) }

func PutFloat32(buf []byte, off int, v float32) {
	PutUint32(buf, off, math.Float32bits(v))
}

// PutBool writes 1 for true and 0 for false.
func PutBool(buf []byte, off int, v bool) {
	if v {
		buf[off] = 1
	} else {
		buf[off] = 0
	}
}

// PutBytes copies b into the field and zero-fills the rest of it. A block
// longer than the field is rejected.
func PutBytes(buf []byte, off int, b []byte, capacity int) error {
	if len(b) > capacity {
		return &EncodeError{Length: len(b), Capacity: capacity}
	}
	n := copy(buf[off:off+capacity], b)
	clear(buf[off+n : off+capacity])
	return nil
}

// PutString writes s as UTF-8 into a null-padded field of capacity bytes.
// Strings whose encoded length exceeds capacity are rejected, never
// truncated. A string of exactly capacity bytes carries no terminator.
func PutString(buf []byte, off int, s string, capacity int) error {
	if len(s) > capacity {
		return &EncodeError{Length: len(s), Capacity: capacity}
	}
	n := copy(buf[off:off+capacity], s)
	clear(buf[off+n : off+capacity])
	return nil
}

func Uint8(buf []byte, off int) uint8 { return buf[off] }

func Uint16(buf []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(buf[off:])
}

func Uint32(buf []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(buf[off:])
}

func Uint64(buf []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(buf[off:])
}

func Int16(buf []byte, off int) int16 { return int16(Uint16(buf, off)) }

func Int32(buf []byte, off int) int32 { return int32(Uint32(buf, off)) }

func Float32(buf []byte, off int) float32 {
	return math.Float32frombits(Uint32(buf, off))
}

// Bool treats any non-zero byte as true.
func Bool(buf []byte, off int) bool { return buf[off] != 0 }

// Bytes returns a copy of capacity bytes starting at off.
func Bytes(buf []byte, off int, capacity int) []byte {
	out := make([]byte, capacity)
	copy(out, buf[off:off+capacity])
	return out
}

// String reads a null-terminated string from a field of capacity bytes. When
// no terminator is present the whole field is significant. Invalid UTF-8
// sequences are replaced with U+FFFD; ASCII passes through as-is.
func String(buf []byte, off int, capacity int) string {
	field := buf[off : off+capacity]
	if idx := bytes.IndexByte(field, 0); idx >= 0 {
		field = field[:idx]
	}
	if utf8.Valid(field) {
		return string(field)
	}
	return strings.ToValidUTF8(string(field), string(utf8.RuneError))
}
