package lan

import (
	"context"
	"errors"
	"net"

	"lifx-monitor/internal/protocol"
	"lifx-monitor/internal/stats"
)

// receiveLoop continuously reads packets from the UDP socket. It returns nil
// when the socket is closed and a *SocketError after too many consecutive
// read failures.
func (c *Client) receiveLoop(ctx context.Context) error {
	buf := make([]byte, protocol.MaxDatagramSize)
	failures := 0

	for {
		n, _, src, err := c.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			failures++
			c.stats.RecordError(stats.ErrorSocket)
			c.log.Warn().Err(err).Int("failures", failures).Msg("receive failed")
			if failures >= c.cfg.Network.MaxReadErrors {
				return &SocketError{Op: "receive", Err: err}
			}
			continue
		}
		failures = 0

		c.handleDatagram(buf[:n], src)
	}
}

// handleDatagram decodes one datagram and routes it to the registry and to a
// waiting request. Bad packets are logged and dropped.
func (c *Client) handleDatagram(datagram []byte, src net.Addr) {
	pkt, err := protocol.Decode(datagram)
	if err != nil {
		var framing *protocol.FramingError
		if errors.As(err, &framing) {
			c.stats.RecordError(stats.ErrorFraming)
		} else {
			c.stats.RecordError(stats.ErrorDecode)
		}
		c.log.Warn().Err(err).Stringer("from", src).Int("size", len(datagram)).Msg("dropping packet")
		return
	}

	h := pkt.Header
	if !pkt.Diagnostic.Clean() {
		c.log.Warn().
			Stringer("site", h.Site).
			Str("type", protocol.Name(h.Type)).
			Int("size", len(datagram)).
			Str("diagnostic", pkt.Diagnostic.String()).
			Msg("irregular packet")
	}

	if _, unknown := pkt.Message.(*protocol.Unknown); unknown {
		c.stats.RecordError(stats.ErrorUnknown)
		c.log.Debug().
			Stringer("site", h.Site).
			Uint16("type", uint16(h.Type)).
			Int("size", len(datagram)).
			Msg("skipping unknown message")
		return
	}

	// Queries and commands seen here are our own broadcasts looping back or
	// another controller's traffic; neither describes a device.
	if !isReply(h.Type) {
		return
	}
	if h.Site.IsBroadcast() {
		c.log.Debug().Str("type", protocol.Name(h.Type)).Stringer("from", src).Msg("reply without site")
		return
	}

	c.stats.RecordPacket(h.Site, h.Type)
	if change := c.registry.ApplyFrom(h.Site, src, pkt.Message); change != 0 {
		c.log.Debug().
			Stringer("site", h.Site).
			Str("type", protocol.Name(h.Type)).
			Stringer("change", change).
			Msg("device updated")
	}
	c.markActive()

	if h.Source == c.source {
		c.resolve(h.Sequence, pkt)
	}
}

func isReply(t protocol.MessageType) bool {
	d, ok := protocol.Lookup(t)
	return ok && d.Kind == protocol.KindState
}
