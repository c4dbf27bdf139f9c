package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfig is written out by `-write-config` and documents every knob.
const DefaultConfig = `# framewire configuration file

server:
  # Address the daemon listens on.
  listen: 127.0.0.1:18090
  # Shared token peers must present when connecting. Empty disables the check.
  token: ""

wire:
  # Largest encoded frame allowed on the wire; larger logical frames are
  # fragmented and reassembled transparently.
  max_frame_size: 16384
  # Reject fragment chains from different streams interleaving on the wire.
  strict_fragments: false
  # Largest single websocket message accepted.
  read_limit: 1048576

keepalive:
  # How often to probe the peer.
  interval: 20s
  # Close the connection when nothing arrives for this long.
  timeout: 60s
`

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Wire      WireConfig      `yaml:"wire"`
	Keepalive KeepaliveConfig `yaml:"keepalive"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
	Token  string `yaml:"token"`
}

type WireConfig struct {
	MaxFrameSize    int   `yaml:"max_frame_size"`
	StrictFragments bool  `yaml:"strict_fragments"`
	ReadLimit       int64 `yaml:"read_limit"`
}

type KeepaliveConfig struct {
	Interval Duration `yaml:"interval"`
	Timeout  Duration `yaml:"timeout"`
}

// Duration accepts either a Go duration string ("20s") or a bare number of
// seconds in YAML.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("config: bad duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	return fmt.Errorf("config: bad duration node at line %d", value.Line)
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	if err := yaml.Unmarshal([]byte(DefaultConfig), &c); err != nil {
		panic(fmt.Sprintf("config: default config does not parse: %v", err))
	}
	return c
}

// Load reads path when it exists, falling back to the defaults, then applies
// FRAMEWIRE_* environment overrides.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	c.applyEnv()
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("FRAMEWIRE_LISTEN")); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("FRAMEWIRE_TOKEN"); v != "" {
		c.Server.Token = v
	}
	c.Wire.MaxFrameSize = envInt("FRAMEWIRE_MAX_FRAME_SIZE", c.Wire.MaxFrameSize)
	c.Wire.ReadLimit = envInt64("FRAMEWIRE_READ_LIMIT", c.Wire.ReadLimit)
	if v := strings.TrimSpace(os.Getenv("FRAMEWIRE_STRICT_FRAGMENTS")); v != "" {
		c.Wire.StrictFragments = v == "1" || strings.EqualFold(v, "true")
	}
	c.Keepalive.Interval = Duration(envDuration("FRAMEWIRE_KEEPALIVE_INTERVAL", c.Keepalive.Interval.Std()))
	c.Keepalive.Timeout = Duration(envDuration("FRAMEWIRE_KEEPALIVE_TIMEOUT", c.Keepalive.Timeout.Std()))
}

func (c *Config) validate() error {
	if c.Wire.MaxFrameSize < 16 {
		return fmt.Errorf("config: max_frame_size %d too small", c.Wire.MaxFrameSize)
	}
	if c.Keepalive.Timeout < c.Keepalive.Interval {
		return fmt.Errorf("config: keepalive timeout %s shorter than interval %s", c.Keepalive.Timeout, c.Keepalive.Interval)
	}
	return nil
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
