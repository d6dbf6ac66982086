// Package device keeps the client-side view of every device seen on the LAN.
//
// The Registry is the only shared mutable structure in the client. State is
// changed by applying decoded state messages (Apply) or by optimistically
// applying a command the client itself sent (Predict). Readers always get
// value snapshots.
package device

import (
	"maps"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"lifx-monitor/internal/protocol"
)

// Change is a bit set naming the parts of a State that changed.
type Change uint32

const (
	ChangeDiscovered Change = 1 << iota
	ChangeAddr
	ChangeService
	ChangePower
	ChangeLabel
	ChangeColor
	ChangeTags
	ChangeGroup
	ChangeLocation
	ChangeVersion
	ChangeFirmware
	ChangeRadio
	ChangeInfo

	ChangeAll Change = 1<<iota - 1
)

var changeNames = []struct {
	bit  Change
	name string
}{
	{ChangeDiscovered, "discovered"},
	{ChangeAddr, "addr"},
	{ChangeService, "service"},
	{ChangePower, "power"},
	{ChangeLabel, "label"},
	{ChangeColor, "color"},
	{ChangeTags, "tags"},
	{ChangeGroup, "group"},
	{ChangeLocation, "location"},
	{ChangeVersion, "version"},
	{ChangeFirmware, "firmware"},
	{ChangeRadio, "radio"},
	{ChangeInfo, "info"},
}

// Has reports whether every bit of other is set in c.
func (c Change) Has(other Change) bool {
	return c&other == other
}

func (c Change) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for _, n := range changeNames {
		if c&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Collection is a group or location assignment. UpdatedAt is the device's
// own timestamp for the assignment and decides which of two reports wins.
type Collection struct {
	ID        uuid.UUID
	Label     string
	UpdatedAt uint64
}

// Version identifies the hardware.
type Version struct {
	Vendor  uint32
	Product uint32
	Version uint32
}

// Firmware describes an installed firmware image.
type Firmware struct {
	Build   uint64
	Install uint64
	Version uint32
}

// Radio holds signal and traffic counters for the wifi interface.
type Radio struct {
	Signal         float32
	Tx             uint32
	Rx             uint32
	McuTemperature int16
}

// Info is the device's clock and uptime report, in nanoseconds.
type Info struct {
	Time     uint64
	Uptime   uint64
	Downtime uint64
}

// State is a snapshot of everything known about one device.
type State struct {
	Site    protocol.Site
	Addr    net.Addr
	Service protocol.Service
	Port    uint32

	Label   string
	Power   uint16
	Powered bool
	Color   protocol.HSBK
	Dim     int16

	Tags      uint64
	TagLabels map[uint64]string

	Group    Collection
	Location Collection

	Version  Version
	Firmware Firmware
	Radio    Radio
	Info     Info

	FirstSeen time.Time
	LastSeen  time.Time

	// Predicted marks fields last written by a local command and not yet
	// confirmed by the device.
	Predicted Change

	hasGroup    bool
	hasLocation bool
}

// IsStale returns true if the device hasn't been heard from within timeout
func (s State) IsStale(timeout time.Duration) bool {
	if s.LastSeen.IsZero() {
		return true
	}
	return time.Since(s.LastSeen) > timeout
}

// HasGroup reports whether a group assignment has been received.
func (s State) HasGroup() bool { return s.hasGroup }

// HasLocation reports whether a location assignment has been received.
func (s State) HasLocation() bool { return s.hasLocation }

// clone returns a copy that shares no mutable memory with s.
func (s State) clone() State {
	if s.TagLabels != nil {
		s.TagLabels = maps.Clone(s.TagLabels)
	}
	return s
}

// merge applies msg to s. touched names the fields msg carries, changed the
// ones whose value actually moved. Group and location reports for a field in
// pending are taken as authoritative regardless of their timestamp.
func (s *State) merge(msg protocol.Message, pending Change) (touched, changed Change) {
	switch m := msg.(type) {
	case *protocol.StatePanGateway:
		touched = ChangeService
		if s.Service != m.Service || s.Port != m.Port {
			s.Service, s.Port = m.Service, m.Port
			changed = ChangeService
		}

	case *protocol.StatePower:
		return s.setPower(m.Level)
	case *protocol.SetPower:
		return s.setPower(m.Level)
	case *protocol.LightStatePower:
		return s.setPower(m.Level)
	case *protocol.LightSetPower:
		return s.setPower(m.Level)

	case *protocol.StateLabel:
		return s.setLabel(m.Label)
	case *protocol.SetLabel:
		return s.setLabel(m.Label)

	case *protocol.StateTags:
		return s.setTags(m.Tags)
	case *protocol.SetTags:
		return s.setTags(m.Tags)

	case *protocol.StateTagLabels:
		touched = ChangeTags
		if s.TagLabels[m.Tags] != m.Label {
			if s.TagLabels == nil {
				s.TagLabels = make(map[uint64]string)
			}
			s.TagLabels[m.Tags] = m.Label
			changed = ChangeTags
		}

	case *protocol.LightSetColor:
		touched = ChangeColor
		if s.Color != m.Color {
			s.Color = m.Color
			changed = ChangeColor
		}

	case *protocol.LightState:
		touched = ChangeColor | ChangePower | ChangeLabel | ChangeTags
		if s.Color != m.Color || s.Dim != m.Dim {
			s.Color, s.Dim = m.Color, m.Dim
			changed |= ChangeColor
		}
		_, c := s.setPower(m.Power)
		changed |= c
		_, c = s.setLabel(m.Label)
		changed |= c
		_, c = s.setTags(m.Tags)
		changed |= c

	case *protocol.StateGroup:
		return mergeCollection(&s.Group, &s.hasGroup, Collection{m.Group, m.Label, m.UpdatedAt}, ChangeGroup, pending.Has(ChangeGroup))
	case *protocol.SetGroup:
		return mergeCollection(&s.Group, &s.hasGroup, Collection{m.Group, m.Label, m.UpdatedAt}, ChangeGroup, false)
	case *protocol.StateLocation:
		return mergeCollection(&s.Location, &s.hasLocation, Collection{m.Location, m.Label, m.UpdatedAt}, ChangeLocation, pending.Has(ChangeLocation))
	case *protocol.SetLocation:
		return mergeCollection(&s.Location, &s.hasLocation, Collection{m.Location, m.Label, m.UpdatedAt}, ChangeLocation, false)

	case *protocol.StateVersion:
		touched = ChangeVersion
		v := Version{m.Vendor, m.Product, m.Version}
		if s.Version != v {
			s.Version = v
			changed = ChangeVersion
		}

	case *protocol.StateWifiFirmware:
		touched = ChangeFirmware
		fw := Firmware{m.Build, m.Install, m.Version}
		if s.Firmware != fw {
			s.Firmware = fw
			changed = ChangeFirmware
		}

	case *protocol.StateWifiInfo:
		touched = ChangeRadio
		r := Radio{m.Signal, m.Tx, m.Rx, m.McuTemperature}
		if s.Radio != r {
			s.Radio = r
			changed = ChangeRadio
		}

	case *protocol.StateInfo:
		touched = ChangeInfo
		info := Info{m.Time, m.Uptime, m.Downtime}
		if s.Info != info {
			s.Info = info
			changed = ChangeInfo
		}
	}
	return touched, changed
}

func (s *State) setPower(level uint16) (Change, Change) {
	if s.Power == level {
		return ChangePower, 0
	}
	s.Power = level
	s.Powered = level != 0
	return ChangePower, ChangePower
}

func (s *State) setLabel(label string) (Change, Change) {
	if s.Label == label {
		return ChangeLabel, 0
	}
	s.Label = label
	return ChangeLabel, ChangeLabel
}

func (s *State) setTags(tags uint64) (Change, Change) {
	if s.Tags == tags {
		return ChangeTags, 0
	}
	s.Tags = tags
	return ChangeTags, ChangeTags
}

// mergeCollection is last-writer-wins on the embedded timestamp: a report
// that is not strictly newer than the stored one is ignored. A forced merge
// replaces a predicted value with whatever the device reports.
func mergeCollection(dst *Collection, known *bool, in Collection, bit Change, force bool) (Change, Change) {
	if *known && !force && in.UpdatedAt <= dst.UpdatedAt {
		return 0, 0
	}
	changed := !*known || *dst != in
	*dst = in
	*known = true
	if !changed {
		return bit, 0
	}
	return bit, bit
}
