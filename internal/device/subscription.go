package device

import (
	"slices"
	"sync/atomic"

	"lifx-monitor/internal/protocol"
)

// DefaultSubscriptionBuffer is used when Filter.Buffer is zero.
const DefaultSubscriptionBuffer = 64

// Filter selects which events a subscription receives.
type Filter struct {
	Sites   []protocol.Site // empty means every device
	Changes Change          // zero means every change
	Buffer  int
}

func (f Filter) match(site protocol.Site, change Change) bool {
	if f.Changes != 0 && f.Changes&change == 0 {
		return false
	}
	return len(f.Sites) == 0 || slices.Contains(f.Sites, site)
}

// Event is delivered to subscribers when a device changes.
type Event struct {
	Site   protocol.Site
	Change Change
	State  State
}

// Subscription receives device change events. Delivery never blocks the
// registry: when the buffer is full the event is dropped and counted.
type Subscription struct {
	id      uint64
	filter  Filter
	ch      chan Event
	dropped atomic.Uint64
}

// Events returns the event channel. It is closed by Unsubscribe or when the
// registry closes.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Dropped returns the number of events lost to a full buffer.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Subscribe registers a listener. On a closed registry the returned
// subscription's channel is already closed.
func (r *Registry) Subscribe(f Filter) *Subscription {
	if f.Buffer <= 0 {
		f.Buffer = DefaultSubscriptionBuffer
	}
	sub := &Subscription{filter: f, ch: make(chan Event, f.Buffer)}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		close(sub.ch)
		return sub
	}
	r.nextSub++
	sub.id = r.nextSub
	r.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (r *Registry) Unsubscribe(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[sub.id]; !ok {
		return
	}
	delete(r.subs, sub.id)
	close(sub.ch)
}

// notify must be called with the write lock held.
func (r *Registry) notify(site protocol.Site, change Change, s *State) {
	if len(r.subs) == 0 {
		return
	}
	ev := Event{Site: site, Change: change, State: s.clone()}
	for _, sub := range r.subs {
		if !sub.filter.match(site, change) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
		}
	}
}
