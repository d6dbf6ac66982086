package stats

import (
	"sync"
	"time"

	"lifx-monitor/internal/protocol"
)

// Constants for reply tracking
const (
	// replyWindowDuration is the time window for recent unanswered ratio
	replyWindowDuration = time.Minute
)

// ErrorKind classifies inbound packets that could not be used
type ErrorKind int

const (
	ErrorFraming ErrorKind = iota // datagram shorter than a header
	ErrorDecode                   // payload shorter than its message
	ErrorUnknown                  // message type not in the catalog
	ErrorSocket                   // failed read or write
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorFraming:
		return "framing"
	case ErrorDecode:
		return "decode"
	case ErrorUnknown:
		return "unknown"
	case ErrorSocket:
		return "socket"
	default:
		return "invalid"
	}
}

// RequestEvent records a request or reply for sliding window tracking
type RequestEvent struct {
	Timestamp time.Time
	Sent      uint64
	Answered  uint64
}

// DeviceStats tracks traffic for a single device
type DeviceStats struct {
	Site        protocol.Site
	PacketCount uint64
	TypeCounts  map[protocol.MessageType]uint64
	Requests    uint64
	Replies     uint64
	LastPacket  time.Time

	packetsInWindow []time.Time    // For rate calculation
	requestWindow   []RequestEvent // For sliding window reply ratio
	mu              sync.RWMutex
}

// Snapshot is a copy of DeviceStats safe to read without locks
type Snapshot struct {
	Site        protocol.Site
	PacketCount uint64
	TypeCounts  map[protocol.MessageType]uint64
	Requests    uint64
	Replies     uint64
	LastPacket  time.Time
}

// Tracker tracks packet statistics for all devices
type Tracker struct {
	devices    map[protocol.Site]*DeviceStats
	errors     map[ErrorKind]uint64
	rateWindow time.Duration
	now        func() time.Time
	mu         sync.RWMutex
}

// NewTracker creates a new stats tracker
func NewTracker() *Tracker {
	return &Tracker{
		devices:    make(map[protocol.Site]*DeviceStats),
		errors:     make(map[ErrorKind]uint64),
		rateWindow: time.Second, // Calculate rate over 1 second window
		now:        time.Now,
	}
}

func (t *Tracker) device(site protocol.Site) *DeviceStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats, exists := t.devices[site]
	if !exists {
		stats = &DeviceStats{
			Site:       site,
			TypeCounts: make(map[protocol.MessageType]uint64),
		}
		t.devices[site] = stats
	}
	return stats
}

func (t *Tracker) lookup(site protocol.Site) *DeviceStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.devices[site]
}

// RecordPacket records a decoded packet received from site
func (t *Tracker) RecordPacket(site protocol.Site, msgType protocol.MessageType) {
	stats := t.device(site)

	stats.mu.Lock()
	defer stats.mu.Unlock()

	now := t.now()
	stats.PacketCount++
	stats.TypeCounts[msgType]++
	stats.LastPacket = now

	// Add to rate window and drop what fell out of it
	stats.packetsInWindow = append(stats.packetsInWindow, now)
	cutoff := now.Add(-t.rateWindow)
	newWindow := stats.packetsInWindow[:0]
	for _, pt := range stats.packetsInWindow {
		if pt.After(cutoff) {
			newWindow = append(newWindow, pt)
		}
	}
	stats.packetsInWindow = newWindow
}

// RecordRequest records a request sent to site that expects a reply
func (t *Tracker) RecordRequest(site protocol.Site) {
	t.recordRequestEvent(site, RequestEvent{Sent: 1})
}

// RecordReply records a reply matched to an earlier request
func (t *Tracker) RecordReply(site protocol.Site) {
	t.recordRequestEvent(site, RequestEvent{Answered: 1})
}

func (t *Tracker) recordRequestEvent(site protocol.Site, evt RequestEvent) {
	stats := t.device(site)

	stats.mu.Lock()
	defer stats.mu.Unlock()

	now := t.now()
	evt.Timestamp = now
	stats.Requests += evt.Sent
	stats.Replies += evt.Answered
	stats.requestWindow = append(stats.requestWindow, evt)

	cutoff := now.Add(-replyWindowDuration)
	newWindow := stats.requestWindow[:0]
	for _, e := range stats.requestWindow {
		if e.Timestamp.After(cutoff) {
			newWindow = append(newWindow, e)
		}
	}
	stats.requestWindow = newWindow
}

// RecordError counts an inbound packet or socket operation that failed
func (t *Tracker) RecordError(kind ErrorKind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors[kind]++
}

// Errors returns the error count for kind
func (t *Tracker) Errors(kind ErrorKind) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.errors[kind]
}

// GetDeviceStats returns a snapshot of the stats for site
func (t *Tracker) GetDeviceStats(site protocol.Site) (Snapshot, bool) {
	stats := t.lookup(site)
	if stats == nil {
		return Snapshot{}, false
	}

	stats.mu.RLock()
	defer stats.mu.RUnlock()

	types := make(map[protocol.MessageType]uint64, len(stats.TypeCounts))
	for k, v := range stats.TypeCounts {
		types[k] = v
	}
	return Snapshot{
		Site:        stats.Site,
		PacketCount: stats.PacketCount,
		TypeCounts:  types,
		Requests:    stats.Requests,
		Replies:     stats.Replies,
		LastPacket:  stats.LastPacket,
	}, true
}

// GetPacketRate returns packets per second for a device
func (t *Tracker) GetPacketRate(site protocol.Site) float64 {
	stats := t.lookup(site)
	if stats == nil {
		return 0
	}

	stats.mu.RLock()
	defer stats.mu.RUnlock()

	cutoff := t.now().Add(-t.rateWindow)
	count := 0
	for _, pt := range stats.packetsInWindow {
		if pt.After(cutoff) {
			count++
		}
	}

	return float64(count) / t.rateWindow.Seconds()
}

// GetUnansweredPercentage returns the cumulative share of requests to site
// that got no reply
func (t *Tracker) GetUnansweredPercentage(site protocol.Site) float64 {
	stats := t.lookup(site)
	if stats == nil {
		return 0
	}

	stats.mu.RLock()
	defer stats.mu.RUnlock()

	return unansweredPercentage(stats.Requests, stats.Replies)
}

// GetRecentUnansweredPercentage is GetUnansweredPercentage over the last minute
func (t *Tracker) GetRecentUnansweredPercentage(site protocol.Site) float64 {
	stats := t.lookup(site)
	if stats == nil {
		return 0
	}

	stats.mu.RLock()
	defer stats.mu.RUnlock()

	cutoff := t.now().Add(-replyWindowDuration)
	var sent, answered uint64
	for _, evt := range stats.requestWindow {
		if evt.Timestamp.After(cutoff) {
			sent += evt.Sent
			answered += evt.Answered
		}
	}
	return unansweredPercentage(sent, answered)
}

func unansweredPercentage(sent, answered uint64) float64 {
	if sent == 0 || answered >= sent {
		return 0
	}
	return float64(sent-answered) / float64(sent) * 100
}

// ResetDeviceStats clears all statistics for a specific device
func (t *Tracker) ResetDeviceStats(site protocol.Site) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if stats, exists := t.devices[site]; exists {
		stats.mu.Lock()
		stats.PacketCount = 0
		stats.Requests = 0
		stats.Replies = 0
		stats.TypeCounts = make(map[protocol.MessageType]uint64)
		stats.packetsInWindow = nil
		stats.requestWindow = nil
		stats.mu.Unlock()
	}
}

// ResetAllStats clears all tracked data
func (t *Tracker) ResetAllStats() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.devices = make(map[protocol.Site]*DeviceStats)
	t.errors = make(map[ErrorKind]uint64)
}
