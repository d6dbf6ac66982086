package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lifx-monitor.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
network:
  port: 56701
  broadcast: "192.168.1.255"
  bind: "0.0.0.0:56700"
  source: 1234
discovery:
  interval: 2s
  poll_interval: 0s
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Network.Port != 56701 {
		t.Errorf("Network.Port = %d, want 56701", cfg.Network.Port)
	}
	if cfg.Network.Broadcast != "192.168.1.255" {
		t.Errorf("Network.Broadcast = %q, want %q", cfg.Network.Broadcast, "192.168.1.255")
	}
	if cfg.Network.Source != 1234 {
		t.Errorf("Network.Source = %d, want 1234", cfg.Network.Source)
	}
	if cfg.Discovery.Interval != 2*time.Second {
		t.Errorf("Discovery.Interval = %v, want 2s", cfg.Discovery.Interval)
	}
	if cfg.Discovery.PollInterval != 0 {
		t.Errorf("Discovery.PollInterval = %v, want 0", cfg.Discovery.PollInterval)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}

	// Unset fields keep their defaults
	if cfg.Network.MaxReadErrors != 10 {
		t.Errorf("Network.MaxReadErrors = %d, want 10", cfg.Network.MaxReadErrors)
	}
	if cfg.Discovery.StaleTimeout != time.Minute {
		t.Errorf("Discovery.StaleTimeout = %v, want 1m", cfg.Discovery.StaleTimeout)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Network.Port != 56700 {
		t.Errorf("Network.Port = %d, want 56700", cfg.Network.Port)
	}
	if cfg.Network.Broadcast != "255.255.255.255" {
		t.Errorf("Network.Broadcast = %q, want 255.255.255.255", cfg.Network.Broadcast)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/lifx-monitor.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
network:
  port: 0
  broadcast: "not-an-ip"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "network.port") {
		t.Errorf("error %q does not mention network.port", err)
	}
	if !strings.Contains(err.Error(), "network.broadcast") {
		t.Errorf("error %q does not mention network.broadcast", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LIFX_PORT", "56800")
	t.Setenv("LIFX_BROADCAST", "10.0.0.255")
	t.Setenv("LIFX_SOURCE", "0x2a")
	t.Setenv("LIFX_DISCOVERY_INTERVAL", "30s")
	t.Setenv("LIFX_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Network.Port != 56800 {
		t.Errorf("Network.Port = %d, want 56800", cfg.Network.Port)
	}
	if cfg.Network.Broadcast != "10.0.0.255" {
		t.Errorf("Network.Broadcast = %q, want 10.0.0.255", cfg.Network.Broadcast)
	}
	if cfg.Network.Source != 42 {
		t.Errorf("Network.Source = %d, want 42", cfg.Network.Source)
	}
	if cfg.Discovery.Interval != 30*time.Second {
		t.Errorf("Discovery.Interval = %v, want 30s", cfg.Discovery.Interval)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"ipv6 broadcast", func(c *Config) { c.Network.Broadcast = "::1" }, "network.broadcast"},
		{"bad bind", func(c *Config) { c.Network.Bind = "nowhere" }, "network.bind"},
		{"zero interval", func(c *Config) { c.Discovery.Interval = 0 }, "discovery.interval"},
		{"negative poll", func(c *Config) { c.Discovery.PollInterval = -time.Second }, "discovery.poll_interval"},
		{"no read errors", func(c *Config) { c.Network.MaxReadErrors = 0 }, "network.max_read_errors"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestBroadcastAddr(t *testing.T) {
	cfg := Default()

	addr := cfg.BroadcastAddr()
	if addr.String() != "255.255.255.255:56700" {
		t.Errorf("BroadcastAddr() = %s, want 255.255.255.255:56700", addr)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("LIFX_PORT=56701\nLIFX_LOG_LEVEL=debug\n"), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("LIFX_PORT", "")
	os.Unsetenv("LIFX_PORT")
	t.Setenv("LIFX_LOG_LEVEL", "warn")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Network.Port != 56701 {
		t.Errorf("Network.Port = %d, want 56701", cfg.Network.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q (environment wins)", cfg.Logging.Level, "warn")
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("LoadEnvFile() error = %v, want nil", err)
	}
}
