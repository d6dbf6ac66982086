package protocol

import (
	"fmt"

	"lifx-monitor/internal/wire"
)

// Protocol word and flag bits
const (
	protocolMask   = 0x0fff
	addressableBit = 1 << 12
	taggedBit      = 1 << 13
	originShift    = 14

	flagResponseRequired = 1 << 0
	flagAckRequired      = 1 << 1
)

// Header offsets
const (
	offSize      = 0
	offProtocol  = 2
	offSource    = 4
	offSite      = 8
	offFlags     = 22
	offSequence  = 23
	offTimestamp = 24
	offType      = 32
)

// Header is the fixed 36-byte preamble of every packet.
//
// Layout (little-endian):
//
//	0  size u16          2  protocol word u16   4  source u32
//	8  site [6]          14 reserved [8]        22 flags u8
//	23 sequence u8       24 timestamp u64       32 type u16
//	34 reserved u16
type Header struct {
	Size             uint16
	Protocol         uint16
	Addressable      bool
	Tagged           bool
	Origin           uint8
	Source           uint32
	Site             Site
	ResponseRequired bool
	AckRequired      bool
	Sequence         uint8
	Timestamp        uint64
	Type             MessageType
}

func (h Header) put(buf []byte) {
	word := h.Protocol & protocolMask
	if h.Addressable {
		word |= addressableBit
	}
	if h.Tagged {
		word |= taggedBit
	}
	word |= uint16(h.Origin&0x3) << originShift

	var flags uint8
	if h.ResponseRequired {
		flags |= flagResponseRequired
	}
	if h.AckRequired {
		flags |= flagAckRequired
	}

	clear(buf[:HeaderSize])
	wire.PutUint16(buf, offSize, h.Size)
	wire.PutUint16(buf, offProtocol, word)
	wire.PutUint32(buf, offSource, h.Source)
	copy(buf[offSite:offSite+SiteSize], h.Site[:])
	wire.PutUint8(buf, offFlags, flags)
	wire.PutUint8(buf, offSequence, h.Sequence)
	wire.PutUint64(buf, offTimestamp, h.Timestamp)
	wire.PutUint16(buf, offType, uint16(h.Type))
}

func parseHeader(buf []byte) Header {
	word := wire.Uint16(buf, offProtocol)
	flags := wire.Uint8(buf, offFlags)

	h := Header{
		Size:             wire.Uint16(buf, offSize),
		Protocol:         word & protocolMask,
		Addressable:      word&addressableBit != 0,
		Tagged:           word&taggedBit != 0,
		Origin:           uint8(word >> originShift),
		Source:           wire.Uint32(buf, offSource),
		ResponseRequired: flags&flagResponseRequired != 0,
		AckRequired:      flags&flagAckRequired != 0,
		Sequence:         wire.Uint8(buf, offSequence),
		Timestamp:        wire.Uint64(buf, offTimestamp),
		Type:             MessageType(wire.Uint16(buf, offType)),
	}
	copy(h.Site[:], buf[offSite:offSite+SiteSize])
	return h
}

// Diagnostic describes tolerated irregularities in a received datagram.
type Diagnostic struct {
	Declared int // size field of the header
	Actual   int // datagram length
	Expected int // header plus catalog payload size, -1 for unknown types
}

// SizeMismatch reports whether the header's size field disagrees with the
// datagram length.
func (d Diagnostic) SizeMismatch() bool {
	return d.Declared != d.Actual
}

// Trailing returns how many bytes follow the catalog payload.
func (d Diagnostic) Trailing() int {
	if d.Expected < 0 || d.Actual <= d.Expected {
		return 0
	}
	return d.Actual - d.Expected
}

// Clean reports whether there is nothing worth logging.
func (d Diagnostic) Clean() bool {
	return !d.SizeMismatch() && d.Trailing() == 0
}

func (d Diagnostic) String() string {
	if d.Clean() {
		return "ok"
	}
	return fmt.Sprintf("declared %d bytes, received %d, expected %d", d.Declared, d.Actual, d.Expected)
}

// Wrap serializes h followed by payload. Size is always computed from the
// payload, the protocol number defaults to 1024, and the addressable bit is
// set as the protocol requires.
func Wrap(h Header, payload []byte) []byte {
	h.Size = uint16(HeaderSize + len(payload))
	if h.Protocol == 0 {
		h.Protocol = ProtocolNumber
	}
	h.Addressable = true

	buf := make([]byte, HeaderSize+len(payload))
	h.put(buf)
	copy(buf[HeaderSize:], payload)
	return buf
}

// Unwrap splits a datagram into header and payload. Only a datagram too
// short to hold a header is an error; size disagreements are reported in
// the Diagnostic and the payload is everything after the header.
func Unwrap(datagram []byte) (Header, []byte, Diagnostic, error) {
	if len(datagram) < HeaderSize {
		return Header{}, nil, Diagnostic{}, NewFramingError("header truncated", 0, len(datagram))
	}

	h := parseHeader(datagram)
	diag := Diagnostic{
		Declared: int(h.Size),
		Actual:   len(datagram),
		Expected: -1,
	}
	if size := PayloadSize(h.Type); size >= 0 {
		diag.Expected = HeaderSize + size
	}
	return h, datagram[HeaderSize:], diag, nil
}

// Packet is a decoded datagram.
type Packet struct {
	Header     Header
	Message    Message
	Diagnostic Diagnostic
}

// Decode unwraps a datagram and decodes its payload.
func Decode(datagram []byte) (*Packet, error) {
	h, payload, diag, err := Unwrap(datagram)
	if err != nil {
		return nil, err
	}
	msg, err := DecodePayload(h.Type, payload, 0)
	if err != nil {
		return nil, err
	}
	return &Packet{Header: h, Message: msg, Diagnostic: diag}, nil
}

// Encode builds a complete packet for msg. The header's Type and Size are
// taken from msg.
func Encode(h Header, msg Message) ([]byte, error) {
	payload, err := EncodePayload(msg)
	if err != nil {
		return nil, err
	}
	h.Type = msg.Type()
	return Wrap(h, payload), nil
}
