package lan

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"lifx-monitor/internal/device"
	"lifx-monitor/internal/protocol"
)

// SetPower switches a device, or every device for the broadcast site, on or
// off and records the expected state in the registry.
func (c *Client) SetPower(ctx context.Context, site protocol.Site, on bool) error {
	return c.command(ctx, site, &protocol.SetPower{Level: protocol.PowerLevel(on)})
}

// SetLabel renames a device. Labels longer than 32 bytes are rejected.
func (c *Client) SetLabel(ctx context.Context, site protocol.Site, label string) error {
	return c.command(ctx, site, &protocol.SetLabel{Label: label})
}

// SetColor fades a light to color over duration.
func (c *Client) SetColor(ctx context.Context, site protocol.Site, color protocol.HSBK, duration time.Duration) error {
	return c.command(ctx, site, &protocol.LightSetColor{
		Color:    color,
		Duration: uint32(duration.Milliseconds()),
	})
}

func (c *Client) command(ctx context.Context, site protocol.Site, msg protocol.Message) error {
	if err := c.Send(ctx, site, msg); err != nil {
		return err
	}
	c.registry.Predict(site, msg)
	return nil
}

// Refresh asks one device for its label, power, group, location, version
// and light state, and waits for every reply. Replies update the registry;
// queries left unanswered count against the device in the stats tracker.
func (c *Client) Refresh(ctx context.Context, site protocol.Site) error {
	var g errgroup.Group
	for _, q := range pollQueries {
		q := q
		g.Go(func() error {
			_, err := c.Request(ctx, site, q)
			return err
		})
	}
	return g.Wait()
}

// DiscoverDevices streams every device as it is first seen, starting with
// the ones already known. A slow reader does not lose devices. The channel
// closes when ctx is done or the client closes.
func (c *Client) DiscoverDevices(ctx context.Context) <-chan device.State {
	out := make(chan device.State, 16)
	sub := c.registry.Subscribe(device.Filter{Changes: device.ChangeDiscovered})

	go func() {
		defer close(out)
		defer c.registry.Unsubscribe(sub)

		seen := make(map[protocol.Site]bool)
		emit := func(s device.State) bool {
			if seen[s.Site] {
				return true
			}
			seen[s.Site] = true
			select {
			case out <- s:
				return true
			case <-ctx.Done():
				return false
			case <-c.done:
				return false
			}
		}

		// scan emits every known device not sent yet. It also recovers
		// devices whose events the subscription dropped while out was full.
		var dropped uint64
		scan := func() bool {
			dropped = sub.Dropped()
			for _, s := range c.registry.List() {
				if !emit(s) {
					return false
				}
			}
			return true
		}

		if !scan() {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case ev, ok := <-sub.Events():
				if !ok || !emit(ev.State) {
					return
				}
				if sub.Dropped() != dropped && !scan() {
					return
				}
			}
		}
	}()

	return out
}
