// Package config loads the simulator's YAML configuration: listener address,
// port range, device mix, pool tuning, startup tuning, and optional profile
// and behavior overrides. All settings have working defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/awksedgreep/snmp-sim-go/internal/device"
	"github.com/awksedgreep/snmp-sim-go/internal/fleet"
	"github.com/awksedgreep/snmp-sim-go/internal/pool"
)

// Config is the full configuration surface.
type Config struct {
	Listen struct {
		Addr      string `yaml:"addr"`
		PortStart int    `yaml:"portStart"`
		PortEnd   int    `yaml:"portEnd"`
	} `yaml:"listen"`

	Mix string `yaml:"mix"`

	Pool struct {
		IdleTimeoutMs    int `yaml:"idleTimeoutMs"`
		MaxDevices       int `yaml:"maxDevices"`
		ReaperIntervalMs int `yaml:"reaperIntervalMs"`
	} `yaml:"pool"`

	Startup struct {
		ParallelWorkers  int  `yaml:"parallelWorkers"`
		PerTaskTimeoutMs int  `yaml:"perTaskTimeoutMs"`
		Prewarm          bool `yaml:"prewarm"`
	} `yaml:"startup"`

	// BehaviorFile points at behavior bindings YAML; empty means built-in
	// defaults per device type.
	BehaviorFile string `yaml:"behaviorFile"`

	// ProfileFiles maps device types to snmprec profile paths; missing types
	// use generated defaults.
	ProfileFiles map[string]string `yaml:"profileFiles"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Default returns a configuration with every field at its default.
func Default() *Config {
	c := &Config{}
	c.Listen.Addr = "0.0.0.0"
	c.Listen.PortStart = 20000
	c.Listen.PortEnd = 30000
	c.Mix = "medium_test"
	c.Pool.IdleTimeoutMs = int(pool.DefaultIdleTimeout / time.Millisecond)
	c.Pool.MaxDevices = pool.DefaultMaxDevices
	c.Startup.ParallelWorkers = fleet.DefaultParallelWorkers
	c.Startup.PerTaskTimeoutMs = int(fleet.DefaultPerTaskTimeout / time.Millisecond)
	c.Metrics.Enabled = true
	c.Metrics.Addr = ":9116"
	c.Logging.Level = "info"
	return c
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// Validate checks ranges and referenced device types.
func (c *Config) Validate() error {
	if err := c.PortRange().Validate(); err != nil {
		return err
	}
	if c.Mix != "" {
		if _, err := device.GetDeviceMix(c.Mix); err != nil {
			return err
		}
	}
	if c.Pool.IdleTimeoutMs < 0 || c.Pool.ReaperIntervalMs < 0 {
		return fmt.Errorf("pool timeouts must be non-negative")
	}
	if c.Pool.MaxDevices < 0 {
		return fmt.Errorf("maxDevices must be non-negative")
	}
	for t := range c.ProfileFiles {
		if !device.Type(t).Valid() {
			return fmt.Errorf("profile for unknown device type %q", t)
		}
	}
	return nil
}

// PortRange returns the configured candidate range.
func (c *Config) PortRange() device.PortRange {
	return device.PortRange{Start: c.Listen.PortStart, End: c.Listen.PortEnd}
}

// PoolConfig translates the pool section.
func (c *Config) PoolConfig() pool.Config {
	return pool.Config{
		IdleTimeout:    time.Duration(c.Pool.IdleTimeoutMs) * time.Millisecond,
		MaxDevices:     c.Pool.MaxDevices,
		ReaperInterval: time.Duration(c.Pool.ReaperIntervalMs) * time.Millisecond,
	}
}

// StartupOptions translates the startup section.
func (c *Config) StartupOptions() fleet.Options {
	return fleet.Options{
		PortRange:       c.PortRange(),
		ParallelWorkers: c.Startup.ParallelWorkers,
		PerTaskTimeout:  time.Duration(c.Startup.PerTaskTimeoutMs) * time.Millisecond,
	}
}
