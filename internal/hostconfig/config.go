// Package hostconfig holds the host-level configuration for running the
// orchestrator: ports, palette overrides, and batch window. These sit
// outside the merge core's own compile-time constants — nothing here is
// read by internal/merge, internal/processor, or
// internal/orchestrator's defaults. This is strictly the outer,
// host-owned layer that decides what values to pass to them.
package hostconfig

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the host-level configuration loaded from a YAML file (or
// built with DefaultConfig) and handed to the cmd/actograph server
// command.
type Config struct {
	// ListenAddr is where the host-facing push server (internal/hostlink)
	// listens for front-end connections.
	ListenAddr string `yaml:"listen_addr"`

	// BatchWindow is the outbound batcher's flush cadence.
	// Default: 200ms (~5Hz).
	BatchWindow time.Duration `yaml:"batch_window"`

	// SocketHighWaterBytes is the per-connection retained-buffer
	// threshold above which the agent socket is paused.
	// Default: 262144 (256 KiB).
	SocketHighWaterBytes int `yaml:"socket_high_water_bytes"`

	// PaletteOverride replaces the default color palette when non-empty.
	PaletteOverride []string `yaml:"palette_override"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() Config {
	return Config{
		ListenAddr:           "127.0.0.1:7777",
		BatchWindow:          200 * time.Millisecond,
		SocketHighWaterBytes: 256 * 1024,
	}
}

// Load parses YAML config data over DefaultConfig and validates the
// result. Fields absent from the YAML keep their default values; a field
// set explicitly to a zero value keeps that zero value.
func Load(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("hostconfig: parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run
// with.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("hostconfig: listen_addr must not be empty")
	}
	if c.BatchWindow <= 0 {
		return fmt.Errorf("hostconfig: batch_window must be positive (got %v)", c.BatchWindow)
	}
	if c.BatchWindow > 10*time.Second {
		return fmt.Errorf("hostconfig: batch_window too large (got %v, max 10s)", c.BatchWindow)
	}
	if c.SocketHighWaterBytes <= 0 {
		return fmt.Errorf("hostconfig: socket_high_water_bytes must be positive (got %d)", c.SocketHighWaterBytes)
	}
	return nil
}

// String returns a human-readable representation of the config.
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{ListenAddr: %s, BatchWindow: %v, SocketHighWaterBytes: %d, PaletteOverride: %d colors}",
		c.ListenAddr, c.BatchWindow, c.SocketHighWaterBytes, len(c.PaletteOverride),
	)
}
