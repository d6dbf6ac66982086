// Package lan talks to devices on the local network: it owns the UDP socket,
// broadcasts discovery, polls device state, feeds the device registry and
// pairs requests with their replies.
package lan

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/ipv4"
	"golang.org/x/sync/errgroup"

	"lifx-monitor/internal/config"
	"lifx-monitor/internal/device"
	"lifx-monitor/internal/protocol"
	"lifx-monitor/internal/schedule"
	"lifx-monitor/internal/stats"
)

// ConnState is the lifecycle state of a Client.
type ConnState int

const (
	StateIdle        ConnState = iota // created, socket not bound
	StateDiscovering                  // bound, no device has replied yet
	StateActive                       // at least one device replied
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// Client is a LAN client bound to one UDP socket.
type Client struct {
	cfg       config.Config
	registry  *device.Registry
	stats     *stats.Tracker
	log       zerolog.Logger
	source    uint32
	broadcast *net.UDPAddr

	sequence atomic.Uint32

	mu      sync.Mutex
	state   ConnState
	err     error
	conn    packetConn
	listen  func() (packetConn, net.Addr, error)
	cancel  context.CancelFunc
	pending map[uint8]chan *protocol.Packet

	active     chan struct{} // closed on the first reply
	activeOnce sync.Once
	done       chan struct{} // closed once every goroutine has exited
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.log = logger.With().Str("component", "lan").Logger() }
}

// WithStats feeds traffic counters into tracker.
func WithStats(tracker *stats.Tracker) Option {
	return func(c *Client) { c.stats = tracker }
}

// New creates an idle client that will apply received state to registry.
func New(cfg *config.Config, registry *device.Registry, opts ...Option) *Client {
	c := &Client{
		cfg:       *cfg,
		registry:  registry,
		stats:     stats.NewTracker(),
		log:       zerolog.Nop(),
		source:    cfg.Network.Source,
		broadcast: cfg.BroadcastAddr(),
		pending:   make(map[uint8]chan *protocol.Packet),
		active:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	c.listen = c.listenUDP
	for _, opt := range opts {
		opt(c)
	}
	for c.source == 0 {
		c.source = rand.Uint32()
	}
	return c
}

// Source is the identifier this client stamps on every packet.
func (c *Client) Source() uint32 { return c.source }

// Registry returns the registry the client feeds.
func (c *Client) Registry() *device.Registry { return c.registry }

// Stats returns the traffic tracker.
func (c *Client) Stats() *stats.Tracker { return c.stats }

// State returns the current lifecycle state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that closed the client, if it was closed by a
// socket failure rather than by Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed when the client has shut down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Open binds the socket and starts the receive loop, discovery and polling.
// ctx bounds the lifetime of the client. Open returns after the first device
// reply or after the configured initial wait, whichever comes first.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return ErrClosed
	case StateDiscovering, StateActive:
		c.mu.Unlock()
		return ErrAlreadyOpen
	}

	conn, local, err := c.listen()
	if err != nil {
		c.mu.Unlock()
		return &SocketError{Op: "bind", Err: err}
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.conn = conn
	c.cancel = cancel
	c.state = StateDiscovering
	c.mu.Unlock()

	c.log.Info().
		Stringer("addr", local).
		Stringer("broadcast", c.broadcast).
		Uint32("source", c.source).
		Msg("client open")

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		<-gctx.Done()
		return conn.Close()
	})
	g.Go(func() error {
		return c.receiveLoop(gctx)
	})
	g.Go(func() error {
		<-schedule.Every(gctx, c.cfg.Discovery.Interval, c.discover).Done()
		return nil
	})
	if c.cfg.Discovery.PollInterval > 0 {
		g.Go(func() error {
			<-schedule.Every(gctx, c.cfg.Discovery.PollInterval, c.poll).Done()
			return nil
		})
	}
	go c.wait(g)

	timer := time.NewTimer(c.cfg.Discovery.InitialWait)
	defer timer.Stop()

	select {
	case <-c.active:
	case <-timer.C:
	case <-c.done:
		return c.closedErr()
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// packetConn is the part of *ipv4.PacketConn the client uses.
type packetConn interface {
	ReadFrom(b []byte) (int, *ipv4.ControlMessage, net.Addr, error)
	WriteTo(b []byte, cm *ipv4.ControlMessage, dst net.Addr) (int, error)
	Close() error
}

// listenUDP binds the configured address and wraps it for control messages.
func (c *Client) listenUDP() (packetConn, net.Addr, error) {
	raw, err := net.ListenPacket("udp4", c.cfg.Network.Bind)
	if err != nil {
		return nil, nil, err
	}
	if size := c.cfg.Network.ReadBuffer; size > 0 {
		if udp, ok := raw.(*net.UDPConn); ok {
			if err := udp.SetReadBuffer(size); err != nil {
				c.log.Warn().Err(err).Int("size", size).Msg("could not set read buffer")
			}
		}
	}

	conn := ipv4.NewPacketConn(raw)
	if err := conn.SetControlMessage(ipv4.FlagDst, true); err != nil {
		// Non-fatal on some platforms
		c.log.Debug().Err(err).Msg("could not set control message")
	}
	return conn, raw.LocalAddr(), nil
}

// wait collects the goroutines and finishes the shutdown.
func (c *Client) wait(g *errgroup.Group) {
	err := g.Wait()

	c.mu.Lock()
	var sockErr *SocketError
	if errors.As(err, &sockErr) {
		c.err = sockErr
		c.log.Error().Err(err).Msg("client failed")
	}
	c.state = StateClosed
	c.cancel()
	c.mu.Unlock()

	c.registry.Close()
	close(c.done)
	c.log.Info().Msg("client closed")
}

// Close stops every task, closes the socket and fails pending requests with
// ErrClosed. It returns once everything has shut down. Safe to call more
// than once.
func (c *Client) Close() error {
	c.mu.Lock()
	switch c.state {
	case StateIdle:
		c.state = StateClosed
		c.mu.Unlock()
		c.registry.Close()
		close(c.done)
		return nil
	case StateClosed:
		c.mu.Unlock()
		<-c.done
		return nil
	}
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	<-c.done
	return nil
}

func (c *Client) closedErr() error {
	if err := c.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return ErrClosed
}

func (c *Client) markActive() {
	c.activeOnce.Do(func() {
		c.mu.Lock()
		if c.state == StateDiscovering {
			c.state = StateActive
		}
		c.mu.Unlock()
		close(c.active)
	})
}

// nextSequence skips zero, which send treats as unassigned.
func (c *Client) nextSequence() uint8 {
	for {
		if seq := uint8(c.sequence.Add(1)); seq != 0 {
			return seq
		}
	}
}

// discover broadcasts a gateway query; every device answers with its
// service and port.
func (c *Client) discover(ctx context.Context) {
	if err := c.Broadcast(ctx, &protocol.GetPanGateway{}); err != nil && ctx.Err() == nil {
		c.log.Warn().Err(err).Msg("discovery broadcast failed")
	}
}

// pollQueries are broadcast on every poll tick.
var pollQueries = []protocol.Message{
	&protocol.GetLabel{},
	&protocol.GetPower{},
	&protocol.GetGroup{},
	&protocol.GetLocation{},
	&protocol.GetVersion{},
	&protocol.LightGet{},
}

func (c *Client) poll(ctx context.Context) {
	for _, q := range pollQueries {
		if ctx.Err() != nil {
			return
		}
		if err := c.Broadcast(ctx, q); err != nil && ctx.Err() == nil {
			c.log.Warn().Err(err).Str("type", protocol.Name(q.Type())).Msg("poll broadcast failed")
		}
	}
}
