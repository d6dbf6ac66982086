package lan

import (
	"context"
	"fmt"
	"net"

	"lifx-monitor/internal/protocol"
)

// SendOption modifies a single Send call.
type SendOption func(*sendOptions)

type sendOptions struct {
	ack bool
}

// WithAck asks the device to acknowledge the packet. Send then blocks until
// the acknowledgement arrives or ctx is done.
func WithAck() SendOption {
	return func(o *sendOptions) { o.ack = true }
}

// Send encodes msg and sends it to site without waiting for a reply. The
// all-zero site broadcasts. A message that cannot be encoded is rejected
// before anything is written to the network.
func (c *Client) Send(ctx context.Context, site protocol.Site, msg protocol.Message, opts ...SendOption) error {
	var o sendOptions
	for _, opt := range opts {
		opt(&o)
	}

	if !o.ack {
		_, err := c.send(ctx, site, msg, protocol.Header{})
		return err
	}

	_, err := c.exchange(ctx, site, msg, protocol.Header{AckRequired: true})
	return err
}

// Broadcast sends msg to every device.
func (c *Client) Broadcast(ctx context.Context, msg protocol.Message) error {
	return c.Send(ctx, protocol.BroadcastSite, msg)
}

// Request sends msg with the response-required flag and returns the first
// reply carrying the same sequence number. It is unblocked by ctx, by the
// configured request timeout when ctx has no deadline, and by Close.
func (c *Client) Request(ctx context.Context, site protocol.Site, msg protocol.Message) (protocol.Message, error) {
	pkt, err := c.exchange(ctx, site, msg, protocol.Header{ResponseRequired: true})
	if err != nil {
		return nil, err
	}
	return pkt.Message, nil
}

// exchange sends a packet and waits for the packet that answers it.
func (c *Client) exchange(ctx context.Context, site protocol.Site, msg protocol.Message, h protocol.Header) (*protocol.Packet, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Network.RequestTimeout)
		defer cancel()
	}

	h.Sequence = c.nextSequence()
	reply := make(chan *protocol.Packet, 1)

	c.mu.Lock()
	c.pending[h.Sequence] = reply
	c.mu.Unlock()
	defer c.forget(h.Sequence, reply)

	if _, err := c.send(ctx, site, msg, h); err != nil {
		return nil, err
	}
	c.stats.RecordRequest(site)

	select {
	case pkt := <-reply:
		c.stats.RecordReply(site)
		return pkt, nil
	case <-c.done:
		return nil, c.closedErr()
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for reply to %s: %w", protocol.Name(msg.Type()), ctx.Err())
	}
}

// send frames msg with h and writes it. h.Sequence is assigned when zero.
func (c *Client) send(ctx context.Context, site protocol.Site, msg protocol.Message, h protocol.Header) (uint8, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	state, conn := c.state, c.conn
	c.mu.Unlock()
	switch state {
	case StateIdle:
		return 0, ErrNotOpen
	case StateClosed:
		return 0, c.closedErr()
	}

	if h.Sequence == 0 {
		h.Sequence = c.nextSequence()
	}
	h.Source = c.source
	h.Site = site
	h.Tagged = site.IsBroadcast()

	data, err := protocol.Encode(h, msg)
	if err != nil {
		return 0, err
	}

	dst := c.destination(site)
	if _, err := conn.WriteTo(data, nil, dst); err != nil {
		return 0, &SocketError{Op: "send", Err: err}
	}

	c.log.Trace().
		Stringer("site", site).
		Str("type", protocol.Name(msg.Type())).
		Uint8("sequence", h.Sequence).
		Stringer("to", dst).
		Msg("sent")
	return h.Sequence, nil
}

// destination is the device's last known address, or the broadcast address
// for broadcasts and devices not heard from yet.
func (c *Client) destination(site protocol.Site) net.Addr {
	if site.IsBroadcast() {
		return c.broadcast
	}
	if s, ok := c.registry.Get(site); ok && s.Addr != nil {
		return s.Addr
	}
	return c.broadcast
}

// resolve hands pkt to the request waiting on sequence, if any.
func (c *Client) resolve(sequence uint8, pkt *protocol.Packet) {
	c.mu.Lock()
	reply, ok := c.pending[sequence]
	if ok {
		delete(c.pending, sequence)
	}
	c.mu.Unlock()

	if ok {
		reply <- pkt
	}
}

func (c *Client) forget(sequence uint8, reply chan *protocol.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[sequence] == reply {
		delete(c.pending, sequence)
	}
}
