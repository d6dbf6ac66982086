package wire

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegers_LittleEndian(t *testing.T) {
	buf := make([]byte, 16)

	PutUint16(buf, 0, 0x1234)
	PutUint32(buf, 2, 0xdeadbeef)
	PutUint64(buf, 6, 0x0102030405060708)

	want := []byte{
		0x34, 0x12,
		0xef, 0xbe, 0xad, 0xde,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}
	assert.Equal(t, want, buf[:14])

	assert.Equal(t, uint16(0x1234), Uint16(buf, 0))
	assert.Equal(t, uint32(0xdeadbeef), Uint32(buf, 2))
	assert.Equal(t, uint64(0x0102030405060708), Uint64(buf, 6))
}

func TestSignedAndFloat(t *testing.T) {
	buf := make([]byte, 10)

	PutInt16(buf, 0, -2)
	PutFloat32(buf, 2, 1.5)
	PutInt32(buf, 6, math.MinInt32)

	assert.Equal(t, []byte{0xfe, 0xff}, buf[:2])
	assert.Equal(t, int16(-2), Int16(buf, 0))
	assert.Equal(t, float32(1.5), Float32(buf, 2))
	assert.Equal(t, int32(math.MinInt32), Int32(buf, 6))
}

func TestBool(t *testing.T) {
	buf := []byte{0xff, 0xff}
	PutBool(buf, 0, false)
	PutBool(buf, 1, true)

	assert.Equal(t, []byte{0, 1}, buf)
	assert.False(t, Bool(buf, 0))
	assert.True(t, Bool([]byte{7}, 0), "any non-zero byte is true")
}

func TestString(t *testing.T) {
	tests := []struct {
		name  string
		field []byte
		want  string
	}{
		{"terminated", append([]byte("Kitchen"), make([]byte, 25)...), "Kitchen"},
		{"empty", make([]byte, 32), ""},
		{"no terminator", bytes.Repeat([]byte{'a'}, 32), strings.Repeat("a", 32)},
		{"bytes after terminator ignored", append([]byte("ab\x00cd"), make([]byte, 27)...), "ab"},
		{"invalid utf-8 replaced", append([]byte{'o', 'k', 0xff}, make([]byte, 29)...), "ok�"},
		{"multibyte", append([]byte("Küche"), make([]byte, 26)...), "Küche"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Len(t, tt.field, 32)
			assert.Equal(t, tt.want, String(tt.field, 0, 32))
		})
	}
}

func TestPutString_Padding(t *testing.T) {
	buf := bytes.Repeat([]byte{0xaa}, 32)

	require.NoError(t, PutString(buf, 0, "Kitchen", 32))

	assert.Equal(t, []byte("Kitchen"), buf[:7])
	assert.Equal(t, make([]byte, 25), buf[7:])
}

func TestPutString_ExactCapacity(t *testing.T) {
	s := strings.Repeat("x", 32)
	buf := make([]byte, 32)

	require.NoError(t, PutString(buf, 0, s, 32))
	assert.Equal(t, s, String(buf, 0, 32))
}

func TestPutString_RejectsOverflow(t *testing.T) {
	buf := make([]byte, 40)
	s := strings.Repeat("x", 33)

	err := PutString(buf, 0, s, 32)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapacity))

	var encErr *EncodeError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, 33, encErr.Length)
	assert.Equal(t, 32, encErr.Capacity)
	assert.Equal(t, make([]byte, 40), buf, "rejected value must not be partially written")
}

func TestPutString_MultibyteOverflow(t *testing.T) {
	// 16 runes but 32+ bytes once UTF-8 encoded.
	s := strings.Repeat("ü", 17)
	err := PutString(make([]byte, 32), 0, s, 32)
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestPutBytes(t *testing.T) {
	buf := bytes.Repeat([]byte{0xaa}, 8)

	require.NoError(t, PutBytes(buf, 0, []byte{1, 2, 3}, 6))
	assert.Equal(t, []byte{1, 2, 3, 0, 0, 0, 0xaa, 0xaa}, buf)

	assert.ErrorIs(t, PutBytes(buf, 0, make([]byte, 7), 6), ErrCapacity)
}

func TestBytes_Copies(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	out := Bytes(buf, 1, 2)
	out[0] = 9

	assert.Equal(t, []byte{1, 2, 3, 4}, buf)
}
