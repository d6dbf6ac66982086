package device

import (
	"net"
	"sync"
	"time"

	"lifx-monitor/internal/protocol"
)

// Registry manages all discovered devices
type Registry struct {
	devices map[protocol.Site]*State
	order   []protocol.Site // first-seen order
	subs    map[uint64]*Subscription
	nextSub uint64
	closed  bool
	now     func() time.Time
	mu      sync.RWMutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		devices: make(map[protocol.Site]*State),
		subs:    make(map[uint64]*Subscription),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply merges a message received from site into the registry and returns
// what changed. Only state messages touch device fields; any message marks
// the device as seen. Applying the same message twice changes nothing the
// second time.
func (r *Registry) Apply(site protocol.Site, msg protocol.Message) Change {
	return r.ApplyFrom(site, nil, msg)
}

// ApplyFrom is Apply with the UDP source address of the packet.
func (r *Registry) ApplyFrom(site protocol.Site, addr net.Addr, msg protocol.Message) Change {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0
	}

	now := r.now()
	s, change := r.getOrCreate(site, now)
	s.LastSeen = now

	if addr != nil && (s.Addr == nil || s.Addr.String() != addr.String()) {
		s.Addr = addr
		change |= ChangeAddr
	}

	if isState(msg) {
		touched, changed := s.merge(msg, s.Predicted)
		s.Predicted &^= touched
		change |= changed
	}

	if change != 0 {
		r.notify(site, change, s)
	}
	return change
}

// Predict applies a command the client has just sent, so callers see the
// expected state before the device confirms it. The fields touched are
// marked Predicted until a state message overwrites them. Unknown sites are
// ignored; the broadcast site applies to every known device.
func (r *Registry) Predict(site protocol.Site, msg protocol.Message) Change {
	d, ok := protocol.Lookup(msg.Type())
	if !ok || d.Kind != protocol.KindCommand {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0
	}

	targets := []protocol.Site{site}
	if site.IsBroadcast() {
		targets = r.order
	}

	var all Change
	for _, t := range targets {
		s, ok := r.devices[t]
		if !ok {
			continue
		}
		touched, changed := s.merge(msg, 0)
		s.Predicted |= touched
		if changed != 0 {
			r.notify(t, changed, s)
		}
		all |= changed
	}
	return all
}

func isState(msg protocol.Message) bool {
	d, ok := protocol.Lookup(msg.Type())
	return ok && d.Kind == protocol.KindState
}

// getOrCreate must be called with the write lock held.
func (r *Registry) getOrCreate(site protocol.Site, now time.Time) (*State, Change) {
	if s, exists := r.devices[site]; exists {
		return s, 0
	}
	s := &State{Site: site, FirstSeen: now}
	r.devices[site] = s
	r.order = append(r.order, site)
	return s, ChangeDiscovered
}

// Get returns a snapshot of the device, or false if it has never been seen
func (r *Registry) Get(site protocol.Site) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.devices[site]
	if !ok {
		return State{}, false
	}
	return s.clone(), true
}

// List returns snapshots of all devices in first-seen order
func (r *Registry) List() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]State, 0, len(r.order))
	for _, site := range r.order {
		result = append(result, r.devices[site].clone())
	}
	return result
}

// Active returns all devices heard from within the timeout
func (r *Registry) Active(timeout time.Duration) []State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	result := make([]State, 0, len(r.order))
	for _, site := range r.order {
		s := r.devices[site]
		if now.Sub(s.LastSeen) <= timeout {
			result = append(result, s.clone())
		}
	}
	return result
}

// Count returns the number of known devices
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Prune removes all devices that haven't been heard from within the timeout
func (r *Registry) Prune(timeout time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	kept := r.order[:0]
	pruned := 0
	for _, site := range r.order {
		if now.Sub(r.devices[site].LastSeen) > timeout {
			delete(r.devices, site)
			pruned++
			continue
		}
		kept = append(kept, site)
	}
	r.order = kept
	return pruned
}

// Close closes every subscription. Further Apply and Predict calls are
// ignored; reads keep working on the last state.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for id, sub := range r.subs {
		close(sub.ch)
		delete(r.subs, id)
	}
}
