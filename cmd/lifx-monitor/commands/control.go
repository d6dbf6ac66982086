package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lifx-monitor/internal/protocol"
)

var powerCmd = &cobra.Command{
	Use:       "power <site|all> <on|off>",
	Short:     "Switch a device on or off",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		site, err := parseTarget(args[0])
		if err != nil {
			return err
		}
		var on bool
		switch strings.ToLower(args[1]) {
		case "on":
			on = true
		case "off":
		default:
			return fmt.Errorf("power must be on or off, got %q", args[1])
		}

		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.client.SetPower(s.ctx, site, on); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s power %s\n", targetName(site), args[1])
		return nil
	},
}

var labelCmd = &cobra.Command{
	Use:   "label <site> <label>",
	Short: "Rename a device",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		site, err := protocol.ParseSite(args[0])
		if err != nil {
			return fmt.Errorf("invalid device %q: %w", args[0], err)
		}
		if len(args[1]) > protocol.MaxLabelSize {
			return fmt.Errorf("label is %d bytes, at most %d allowed", len(args[1]), protocol.MaxLabelSize)
		}

		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.client.SetLabel(s.ctx, site, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s label %q\n", site, args[1])
		return nil
	},
}

var colorCmd = &cobra.Command{
	Use:   "color <site|all> <hue> <saturation> <brightness> <kelvin>",
	Short: "Set a light's color as raw HSBK values (0-65535, kelvin 2500-9000)",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		site, err := parseTarget(args[0])
		if err != nil {
			return err
		}
		var values [4]uint16
		for i, arg := range args[1:] {
			v, err := strconv.ParseUint(arg, 10, 16)
			if err != nil {
				return fmt.Errorf("invalid color component %q: %w", arg, err)
			}
			values[i] = uint16(v)
		}
		duration, _ := cmd.Flags().GetDuration("duration")

		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		color := protocol.HSBK{Hue: values[0], Saturation: values[1], Brightness: values[2], Kelvin: values[3]}
		if err := s.client.SetColor(s.ctx, site, color, duration); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s color %d/%d/%d/%d\n", targetName(site), values[0], values[1], values[2], values[3])
		return nil
	},
}

func init() {
	colorCmd.Flags().Duration("duration", 0, "Fade duration")
}

func targetName(site protocol.Site) string {
	if site.IsBroadcast() {
		return "all devices"
	}
	return site.String()
}
