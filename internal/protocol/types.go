// Package protocol implements the LIFX LAN packet format: the 36-byte header,
// the catalog of typed payloads and the generic codec that maps them to bytes.
package protocol

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// LIFX LAN protocol constants
const (
	DefaultPort     = 56700
	HeaderSize      = 36
	ProtocolNumber  = 1024
	MaxLabelSize    = 32
	EchoPayloadSize = 64
	SiteSize        = 6
	MaxDatagramSize = 1500
	PowerLevelOn    = 65535
	PowerLevelOff   = 0
)

// Site is the 6-byte hardware address that identifies a device.
type Site [SiteSize]byte

// BroadcastSite addresses every device.
var BroadcastSite = Site{}

// IsBroadcast reports whether s is the all-zero broadcast pattern.
func (s Site) IsBroadcast() bool {
	return s == BroadcastSite
}

// String returns the site as upper-case hex, e.g. D073D501D082.
func (s Site) String() string {
	return strings.ToUpper(hex.EncodeToString(s[:]))
}

// ParseSite parses a site written as 12 hex digits, with or without ':' or
// '-' separators.
func ParseSite(s string) (Site, error) {
	var site Site
	clean := strings.NewReplacer(":", "", "-", "").Replace(s)
	if len(clean) != SiteSize*2 {
		return site, fmt.Errorf("invalid site %q: want %d hex digits", s, SiteSize*2)
	}
	if _, err := hex.Decode(site[:], []byte(clean)); err != nil {
		return site, fmt.Errorf("invalid site %q: %w", s, err)
	}
	return site, nil
}

// MessageType is the numeric type code carried in the packet header.
type MessageType uint16

// Kind classifies a message by direction and purpose.
type Kind uint8

const (
	// KindCommand is sent by the client to change device state.
	KindCommand Kind = iota + 1
	// KindQuery is sent by the client to ask for a state reply.
	KindQuery
	// KindState is sent by a device to report its state.
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindQuery:
		return "query"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Namespace groups message types the way the protocol does.
type Namespace uint8

const (
	NamespaceDevice Namespace = iota + 1
	NamespaceLight
)

func (n Namespace) String() string {
	switch n {
	case NamespaceDevice:
		return "device"
	case NamespaceLight:
		return "light"
	default:
		return "unknown"
	}
}

// namespaceOf maps a type code to its namespace. Light messages start at 100.
func namespaceOf(t MessageType) Namespace {
	if t >= 100 {
		return NamespaceLight
	}
	return NamespaceDevice
}

// Service is the transport a device advertises in StatePanGateway.
type Service uint8

const (
	ServiceUDP Service = 1
	ServiceTCP Service = 2
)

func (s Service) String() string {
	switch s {
	case ServiceUDP:
		return "udp"
	case ServiceTCP:
		return "tcp"
	default:
		return fmt.Sprintf("service(%d)", uint8(s))
	}
}

// ParseService maps a name back to a Service.
func ParseService(name string) (Service, bool) {
	switch strings.ToLower(name) {
	case "udp":
		return ServiceUDP, true
	case "tcp":
		return ServiceTCP, true
	default:
		return 0, false
	}
}

// Waveform selects the shape used by LightSetWaveform.
type Waveform uint8

const (
	WaveformSaw Waveform = iota
	WaveformSine
	WaveformHalfSine
	WaveformTriangle
	WaveformPulse
)

func (w Waveform) String() string {
	switch w {
	case WaveformSaw:
		return "saw"
	case WaveformSine:
		return "sine"
	case WaveformHalfSine:
		return "half-sine"
	case WaveformTriangle:
		return "triangle"
	case WaveformPulse:
		return "pulse"
	default:
		return fmt.Sprintf("waveform(%d)", uint8(w))
	}
}

// HSBK is the raw color tuple carried by light messages.
type HSBK struct {
	Hue        uint16
	Saturation uint16
	Brightness uint16
	Kelvin     uint16
}

// PowerLevel converts an on/off flag to the protocol's power level.
func PowerLevel(on bool) uint16 {
	if on {
		return PowerLevelOn
	}
	return PowerLevelOff
}
