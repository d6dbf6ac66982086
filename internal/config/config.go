// Package config loads lifx-monitor settings from YAML with environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"lifx-monitor/internal/protocol"
)

// DefaultPath is looked up when no --config flag is given.
const DefaultPath = "lifx-monitor.yaml"

// DefaultEnvFile holds LIFX_* variables for local runs.
const DefaultEnvFile = ".env"

// Config is the root configuration structure.
type Config struct {
	Network   NetworkConfig   `yaml:"network"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// NetworkConfig contains the UDP transport settings.
type NetworkConfig struct {
	// Port is the device port packets are sent to.
	Port int `yaml:"port"`
	// Broadcast is the IPv4 address used for discovery and for devices
	// whose address is not yet known.
	Broadcast string `yaml:"broadcast"`
	// Bind is the local address of the client socket. Port 0 picks an
	// ephemeral port.
	Bind string `yaml:"bind"`
	// Source identifies this client in every packet header. 0 picks a
	// random value at startup.
	Source uint32 `yaml:"source"`
	// ReadBuffer is the socket receive buffer in bytes, 0 keeps the OS default.
	ReadBuffer int `yaml:"read_buffer"`
	// MaxReadErrors consecutive receive failures close the client.
	MaxReadErrors int `yaml:"max_read_errors"`
	// RequestTimeout bounds Request calls whose context has no deadline.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DiscoveryConfig contains the discovery and polling schedule.
type DiscoveryConfig struct {
	Interval     time.Duration `yaml:"interval"`
	PollInterval time.Duration `yaml:"poll_interval"` // 0 disables polling
	InitialWait  time.Duration `yaml:"initial_wait"`
	StaleTimeout time.Duration `yaml:"stale_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
	Output string `yaml:"output"` // stdout, stderr or a file path
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Network: NetworkConfig{
			Port:           protocol.DefaultPort,
			Broadcast:      net.IPv4bcast.String(),
			Bind:           "0.0.0.0:0",
			ReadBuffer:     0,
			MaxReadErrors:  10,
			RequestTimeout: 2 * time.Second,
		},
		Discovery: DiscoveryConfig{
			Interval:     5 * time.Second,
			PollInterval: 10 * time.Second,
			InitialWait:  500 * time.Millisecond,
			StaleTimeout: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// Load reads the YAML file at path on top of the defaults, applies
// environment overrides and validates the result. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// LoadEnvFile exports the variables in a dotenv file so the LIFX_* overrides
// see them. Variables already set in the environment win. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	// Network
	if v := os.Getenv("LIFX_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Network.Port = port
		}
	}
	if v := os.Getenv("LIFX_BROADCAST"); v != "" {
		cfg.Network.Broadcast = v
	}
	if v := os.Getenv("LIFX_BIND"); v != "" {
		cfg.Network.Bind = v
	}
	if v := os.Getenv("LIFX_SOURCE"); v != "" {
		if source, err := strconv.ParseUint(v, 0, 32); err == nil {
			cfg.Network.Source = uint32(source)
		}
	}

	// Discovery
	if v := os.Getenv("LIFX_DISCOVERY_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Discovery.Interval = d
		}
	}
	if v := os.Getenv("LIFX_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Discovery.PollInterval = d
		}
	}

	// Logging
	if v := os.Getenv("LIFX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LIFX_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Network.Port < 1 || c.Network.Port > 65535 {
		errs = append(errs, "network.port must be between 1 and 65535")
	}
	if ip := net.ParseIP(c.Network.Broadcast); ip == nil || ip.To4() == nil {
		errs = append(errs, "network.broadcast must be an IPv4 address")
	}
	if _, _, err := net.SplitHostPort(c.Network.Bind); err != nil {
		errs = append(errs, "network.bind must be host:port")
	}
	if c.Network.ReadBuffer < 0 {
		errs = append(errs, "network.read_buffer must not be negative")
	}
	if c.Network.MaxReadErrors < 1 {
		errs = append(errs, "network.max_read_errors must be at least 1")
	}
	if c.Network.RequestTimeout <= 0 {
		errs = append(errs, "network.request_timeout must be positive")
	}

	if c.Discovery.Interval <= 0 {
		errs = append(errs, "discovery.interval must be positive")
	}
	if c.Discovery.PollInterval < 0 {
		errs = append(errs, "discovery.poll_interval must not be negative")
	}
	if c.Discovery.InitialWait < 0 {
		errs = append(errs, "discovery.initial_wait must not be negative")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		errs = append(errs, "logging.format must be console or json")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// BroadcastAddr returns the UDP address used for broadcasts.
func (c *Config) BroadcastAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(c.Network.Broadcast).To4(), Port: c.Network.Port}
}
