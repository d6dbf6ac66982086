package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"lifx-monitor/internal/device"
	"lifx-monitor/internal/lan"
	"lifx-monitor/internal/protocol"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Discover devices and print their state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetDuration("wait")

		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		collect(s, wait)
		printDevices(cmd.OutOrStdout(), s.registry.List())
		return s.client.Err()
	},
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Discover devices and print their groups and locations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetDuration("wait")

		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		collect(s, wait)
		devices := s.registry.List()
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Groups")
		printMemberships(out, s.registry.Groups(), devices)
		fmt.Fprintln(out, "\nLocations")
		printMemberships(out, s.registry.Locations(), devices)
		return s.client.Err()
	},
}

func init() {
	for _, cmd := range []*cobra.Command{listCmd, groupsCmd} {
		cmd.Flags().Duration("wait", 3*time.Second, "How long to listen for replies")
	}
}

// collect refreshes every discovered device until wait runs out.
func collect(s *session, wait time.Duration) {
	ctx, cancel := context.WithTimeout(s.ctx, wait)
	defer cancel()

	var refreshes sync.WaitGroup
	defer refreshes.Wait()

	found := s.client.DiscoverDevices(ctx)
	for d := range found {
		refreshes.Add(1)
		go func(site protocol.Site) {
			defer refreshes.Done()
			err := s.client.Refresh(ctx, site)
			if err != nil && ctx.Err() == nil && !errors.Is(err, lan.ErrClosed) {
				s.log.Warn().Err(err).Stringer("site", site).Msg("refresh failed")
			}
		}(d.Site)
	}
}

func printDevices(w io.Writer, devices []device.State) {
	if len(devices) == 0 {
		fmt.Fprintln(w, "No devices found.")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("SITE", "ADDR", "LABEL", "POWER", "HSBK", "GROUP", "LOCATION", "PRODUCT")
	for _, d := range devices {
		addr := "-"
		if d.Addr != nil {
			addr = d.Addr.String()
		}
		power := "off"
		if d.Powered {
			power = "on"
		}
		t.Row(
			d.Site.String(),
			addr,
			d.Label,
			power,
			fmt.Sprintf("%d/%d/%d/%d", d.Color.Hue, d.Color.Saturation, d.Color.Brightness, d.Color.Kelvin),
			d.Group.Label,
			d.Location.Label,
			fmt.Sprintf("%d/%d", d.Version.Vendor, d.Version.Product),
		)
	}
	fmt.Fprintln(w, t.Render())
}

func printMemberships(w io.Writer, collections map[uuid.UUID]device.Membership, devices []device.State) {
	if len(collections) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}

	labels := make(map[protocol.Site]string, len(devices))
	for _, d := range devices {
		labels[d.Site] = d.Label
	}

	list := make([]device.Membership, 0, len(collections))
	for _, c := range collections {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Label < list[j].Label
	})

	for _, c := range list {
		fmt.Fprintf(w, "  %s (%s)\n", c.Label, c.ID)
		for _, site := range c.Members {
			fmt.Fprintf(w, "    %s  %s\n", site, labels[site])
		}
	}
}
