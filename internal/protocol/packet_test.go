package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSite = Site{0xd0, 0x73, 0xd5, 0x01, 0xd0, 0x82}

// buildStatePacket builds a device reply by hand, byte by byte, the way a
// device would put it on the wire.
func buildStatePacket(site Site, sequence uint8, msgType MessageType, payload []byte) []byte {
	packet := make([]byte, HeaderSize+len(payload))

	size := uint16(len(packet))
	packet[0] = byte(size)
	packet[1] = byte(size >> 8)

	// protocol 1024 | addressable
	packet[2] = 0x00
	packet[3] = 0x14

	// source
	packet[4] = 0x78
	packet[5] = 0x56
	packet[6] = 0x34
	packet[7] = 0x12

	copy(packet[8:14], site[:])

	packet[23] = sequence

	packet[32] = byte(msgType)
	packet[33] = byte(msgType >> 8)

	copy(packet[HeaderSize:], payload)
	return packet
}

func TestUnwrap_ValidPacket(t *testing.T) {
	packet := buildStatePacket(testSite, 42, 3, []byte{1, 0x7c, 0xdd, 0, 0})

	h, payload, diag, err := Unwrap(packet)
	require.NoError(t, err)

	assert.Equal(t, uint16(41), h.Size)
	assert.Equal(t, uint16(ProtocolNumber), h.Protocol)
	assert.True(t, h.Addressable)
	assert.False(t, h.Tagged)
	assert.Equal(t, uint32(0x12345678), h.Source)
	assert.Equal(t, testSite, h.Site)
	assert.Equal(t, uint8(42), h.Sequence)
	assert.Equal(t, MessageType(3), h.Type)
	assert.Len(t, payload, 5)
	assert.True(t, diag.Clean(), diag.String())
}

func TestUnwrap_HeaderTruncated(t *testing.T) {
	_, _, _, err := Unwrap(make([]byte, HeaderSize-1))
	require.Error(t, err)

	framingErr, ok := err.(*FramingError)
	require.True(t, ok, "expected *FramingError, got %T", err)
	assert.Equal(t, "header truncated", framingErr.Message)
	assert.Equal(t, HeaderSize-1, framingErr.Length)
}

func TestUnwrap_SizeMismatchIsDiagnostic(t *testing.T) {
	packet := buildStatePacket(testSite, 1, 22, []byte{0xff, 0xff})
	packet[0] = 200 // overstated

	h, payload, diag, err := Unwrap(packet)
	require.NoError(t, err)
	assert.Equal(t, MessageType(22), h.Type)
	assert.Len(t, payload, 2)
	assert.True(t, diag.SizeMismatch())
	assert.Equal(t, 200, diag.Declared)
	assert.Equal(t, 38, diag.Actual)
	assert.False(t, diag.Clean())
}

func TestUnwrap_PaddedPacket(t *testing.T) {
	padded := append([]byte{0x00, 0x00}, make([]byte, 6)...)
	packet := buildStatePacket(testSite, 1, 22, padded)

	_, _, diag, err := Unwrap(packet)
	require.NoError(t, err)
	assert.False(t, diag.SizeMismatch())
	assert.Equal(t, 6, diag.Trailing())
}

func TestHeader_RoundTrip(t *testing.T) {
	h := Header{
		Tagged:           true,
		Origin:           1,
		Source:           0xcafef00d,
		Site:             testSite,
		ResponseRequired: true,
		AckRequired:      true,
		Sequence:         255,
		Timestamp:        1234567890,
		Type:             23,
	}

	packet := Wrap(h, nil)
	require.Len(t, packet, HeaderSize)

	got, _, _, err := Unwrap(packet)
	require.NoError(t, err)

	h.Size = HeaderSize
	h.Protocol = ProtocolNumber
	h.Addressable = true
	assert.Equal(t, h, got)
}

func TestHeader_Layout(t *testing.T) {
	packet := Wrap(Header{
		Tagged:      true,
		Source:      0x01020304,
		Site:        testSite,
		AckRequired: true,
		Sequence:    7,
		Type:        2,
	}, nil)

	want := []byte{
		36, 0, // size
		0x00, 0x34, // protocol 1024 | addressable | tagged
		0x04, 0x03, 0x02, 0x01, // source
		0xd0, 0x73, 0xd5, 0x01, 0xd0, 0x82, // site
		0, 0, 0, 0, 0, 0, 0, 0, // reserved
		0x02,                   // ack required
		7,                      // sequence
		0, 0, 0, 0, 0, 0, 0, 0, // timestamp
		2, 0, // type
		0, 0, // reserved
	}
	assert.Equal(t, want, packet)
}

func TestEncode_SizeInvariantAllTypes(t *testing.T) {
	for _, d := range Descriptors() {
		packet, err := Encode(Header{Site: testSite}, sampleMessage(t, d))
		require.NoError(t, err, d.Name)

		h, _, diag, err := Unwrap(packet)
		require.NoError(t, err, d.Name)
		assert.Equal(t, HeaderSize+d.Size, int(h.Size), d.Name)
		assert.Equal(t, len(packet), int(h.Size), d.Name)
		assert.Equal(t, d.Type, h.Type, d.Name)
		assert.True(t, diag.Clean(), "%s: %s", d.Name, diag)
	}
}

func TestEncode_IgnoresCallerSizeAndType(t *testing.T) {
	packet, err := Encode(Header{Size: 9999, Type: 1}, &SetPower{Level: 1})
	require.NoError(t, err)

	h, _, _, err := Unwrap(packet)
	require.NoError(t, err)
	assert.Equal(t, uint16(38), h.Size)
	assert.Equal(t, SetPower{}.Type(), h.Type)
}

func TestEncode_RejectsOversizeLabel(t *testing.T) {
	packet, err := Encode(Header{}, &SetLabel{Label: "a label that does not fit in thirty-two bytes"})
	assert.Error(t, err)
	assert.Nil(t, packet)
}

func TestDecode_StatePanGateway(t *testing.T) {
	packet := buildStatePacket(testSite, 9, 3, []byte{1, 0x7c, 0xdd, 0, 0})

	p, err := Decode(packet)
	require.NoError(t, err)
	assert.Equal(t, testSite, p.Header.Site)
	assert.Equal(t, &StatePanGateway{Service: ServiceUDP, Port: 56700}, p.Message)
}

func TestDecode_ShortPayload(t *testing.T) {
	packet := buildStatePacket(testSite, 1, 33, make([]byte, 4))

	_, err := Decode(packet)
	var decErr *DecodeError
	assert.ErrorAs(t, err, &decErr)
}

func TestDecode_UnknownType(t *testing.T) {
	packet := buildStatePacket(testSite, 1, 4000, []byte{9, 9})

	p, err := Decode(packet)
	require.NoError(t, err)
	assert.Equal(t, &Unknown{Code: 4000, Payload: []byte{9, 9}}, p.Message)
	assert.Equal(t, -1, p.Diagnostic.Expected)
}

func TestParseSite(t *testing.T) {
	tests := []struct {
		in      string
		want    Site
		wantErr bool
	}{
		{"D073D501D082", testSite, false},
		{"d0:73:d5:01:d0:82", testSite, false},
		{"d0-73-d5-01-d0-82", testSite, false},
		{"D073D501D0", Site{}, true},
		{"ZZ73D501D082", Site{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSite(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "D073D501D082", got.String())
		})
	}
}

func TestSite_IsBroadcast(t *testing.T) {
	assert.True(t, BroadcastSite.IsBroadcast())
	assert.False(t, testSite.IsBroadcast())
}

func TestEnums(t *testing.T) {
	assert.Equal(t, "udp", ServiceUDP.String())
	assert.Equal(t, "tcp", ServiceTCP.String())
	assert.Equal(t, "service(9)", Service(9).String())

	s, ok := ParseService("TCP")
	assert.True(t, ok)
	assert.Equal(t, ServiceTCP, s)

	assert.Equal(t, "sine", WaveformSine.String())
	assert.Equal(t, "state", KindState.String())
	assert.Equal(t, "light", NamespaceLight.String())
	assert.Equal(t, uint16(65535), PowerLevel(true))
	assert.Equal(t, uint16(0), PowerLevel(false))
}
