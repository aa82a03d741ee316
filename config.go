package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"dash-service/obd"
)

// Config is the YAML service configuration. Flags override the
// device and redis fields after loading.
type Config struct {
	Device     string `yaml:"device"`
	SerialBaud int    `yaml:"serial_baud"`
	Bitrate    int    `yaml:"bitrate"`
	Catalog    string `yaml:"catalog"`

	Channels []ChannelConfig `yaml:"channels"`
	Poll     PollConfig      `yaml:"poll"`
	Redis    RedisConfig     `yaml:"redis"`
}

// ChannelConfig binds one catalog signal to a published channel.
// Alpha is the optional smoothing factor in (0,1].
type ChannelConfig struct {
	Signal string  `yaml:"signal"`
	Name   string  `yaml:"name"`
	Alpha  float64 `yaml:"alpha"`
}

// PollConfig tunes the request loop. MinIntervalsMs throttles
// individual parameters below the global cadence, keyed by
// parameter name.
type PollConfig struct {
	IntervalMs     int            `yaml:"interval_ms"`
	TimeoutMs      int            `yaml:"timeout_ms"`
	StaleAfter     int            `yaml:"stale_after"`
	RPMAlpha       float64        `yaml:"rpm_alpha"`
	MinIntervalsMs map[string]int `yaml:"min_intervals_ms"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
	Port uint16 `yaml:"port"`
}

// LoadConfig reads and validates the YAML file at path.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %v", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Device == "" {
		c.Device = "can0"
	}
	if c.SerialBaud == 0 {
		c.SerialBaud = 115200
	}
	if c.Bitrate == 0 {
		c.Bitrate = 500000
	}
	if c.Poll.IntervalMs == 0 {
		c.Poll.IntervalMs = 50
	}
	if c.Poll.TimeoutMs == 0 {
		c.Poll.TimeoutMs = c.Poll.IntervalMs
	}
	if c.Poll.StaleAfter == 0 {
		c.Poll.StaleAfter = 3
	}
	if c.Poll.RPMAlpha == 0 {
		c.Poll.RPMAlpha = 0.25
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
}

func (c *Config) validate() error {
	if c.Catalog == "" {
		return fmt.Errorf("config: catalog file is required")
	}
	seen := make(map[string]bool)
	for i, ch := range c.Channels {
		if ch.Signal == "" || ch.Name == "" {
			return fmt.Errorf("config: channel %d needs both signal and name", i)
		}
		if seen[ch.Name] {
			return fmt.Errorf("config: duplicate channel name %q", ch.Name)
		}
		seen[ch.Name] = true
		if ch.Alpha < 0 || ch.Alpha > 1 {
			return fmt.Errorf("config: channel %q alpha %v out of range", ch.Name, ch.Alpha)
		}
	}
	if c.Poll.RPMAlpha < 0 || c.Poll.RPMAlpha > 1 {
		return fmt.Errorf("config: rpm_alpha %v out of range", c.Poll.RPMAlpha)
	}
	known := make(map[string]bool)
	for _, p := range obd.StandardParameters() {
		known[p.Name] = true
	}
	for name, ms := range c.Poll.MinIntervalsMs {
		if !known[name] {
			return fmt.Errorf("config: min interval for unknown parameter %q", name)
		}
		if ms < 0 {
			return fmt.Errorf("config: parameter %q min interval %dms is negative", name, ms)
		}
	}
	return nil
}

// PollParameters returns the poll set with the configured
// per-parameter minimum intervals applied.
func (c *Config) PollParameters() []obd.Parameter {
	params := obd.StandardParameters()
	for i := range params {
		if ms, ok := c.Poll.MinIntervalsMs[params[i].Name]; ok {
			params[i].MinInterval = time.Duration(ms) * time.Millisecond
		}
	}
	return params
}

// ChannelMap returns the signal to channel binding for the pipeline.
func (c *Config) ChannelMap() map[string]string {
	m := make(map[string]string, len(c.Channels))
	for _, ch := range c.Channels {
		m[ch.Signal] = ch.Name
	}
	return m
}

// AlphaMap returns the per-channel smoothing factors, including the
// polled rpm channel.
func (c *Config) AlphaMap() map[string]float64 {
	m := make(map[string]float64)
	for _, ch := range c.Channels {
		if ch.Alpha > 0 {
			m[ch.Name] = ch.Alpha
		}
	}
	if c.Poll.RPMAlpha > 0 {
		m["rpm"] = c.Poll.RPMAlpha
	}
	return m
}
