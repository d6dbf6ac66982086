package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"lifx-monitor/internal/config"
	"lifx-monitor/internal/device"
	"lifx-monitor/internal/lan"
	"lifx-monitor/internal/logging"
	"lifx-monitor/internal/protocol"
	"lifx-monitor/internal/stats"
)

const appName = "lifx-monitor"

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Discover, monitor and control LIFX lights on the local network",
	Long: `lifx-monitor discovers LIFX devices with UDP broadcasts, keeps their
state up to date and shows it in a terminal UI.

Run without a command to start the monitor.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMonitor,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./"+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (trace, debug, info, warn, error, off)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(powerCmd)
	rootCmd.AddCommand(labelCmd)
	rootCmd.AddCommand(colorCmd)
}

// versionCmd shows version info
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "lifx-monitor\n")
		fmt.Fprintf(out, "  Version:  %s\n", Version)
		fmt.Fprintf(out, "  Commit:   %s\n", Commit)
		fmt.Fprintf(out, "  Protocol: %d\n", protocol.ProtocolNumber)
		fmt.Fprintf(out, "  Messages: %d\n", len(protocol.Descriptors()))
	},
}

// loadConfig reads ./.env and --config, falling back to the default path
// when it exists, and applies --log-level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadEnvFile(config.DefaultEnvFile); err != nil {
		return nil, err
	}

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			path = config.DefaultPath
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

// session is an open client plus everything that has to be released with it.
type session struct {
	cfg      *config.Config
	log      zerolog.Logger
	client   *lan.Client
	registry *device.Registry
	stats    *stats.Tracker
	ctx      context.Context

	closers []func()
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openSession loads the configuration, sets up logging and opens a client.
// The session context ends on SIGINT or SIGTERM.
func openSession(cmd *cobra.Command, quiet bool) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg}

	logCfg := cfg.Logging
	if quiet && isTerminalOutput(logCfg.Output) {
		// The terminal belongs to the UI; only file logging survives.
		logCfg.Level = "off"
	}
	logger, closer, err := logging.New(logCfg, appName)
	if err != nil {
		return nil, err
	}
	s.log = logger
	s.closers = append(s.closers, func() { closeQuietly(closer) })

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	s.ctx = ctx
	s.closers = append(s.closers, stop)

	s.registry = device.NewRegistry()
	s.stats = stats.NewTracker()
	s.client = lan.New(cfg, s.registry, lan.WithLogger(logger), lan.WithStats(s.stats))

	if err := s.client.Open(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("opening client: %w", err)
	}
	s.closers = append(s.closers, func() { s.client.Close() })
	return s, nil
}

func isTerminalOutput(output string) bool {
	switch strings.ToLower(output) {
	case "", "stdout", "stderr":
		return true
	}
	return false
}

func closeQuietly(c io.Closer) {
	if c != nil {
		c.Close()
	}
}

// parseTarget accepts a site in hex or "all" for every device.
func parseTarget(arg string) (protocol.Site, error) {
	if strings.EqualFold(arg, "all") {
		return protocol.BroadcastSite, nil
	}
	site, err := protocol.ParseSite(arg)
	if err != nil {
		return protocol.Site{}, fmt.Errorf("invalid device %q: %w", arg, err)
	}
	return site, nil
}
