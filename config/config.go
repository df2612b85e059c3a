// Package config handles bpfobject configuration.
//
// Configuration is loaded with overlay semantics:
//
//  1. Start with built-in defaults (embedded from default.toml)
//  2. Overlay with config file values (if the file exists)
//  3. CLI flags and environment variables override at runtime
//
// The TOML decoder only sets fields present in the file, leaving
// unspecified fields at their default values. A file that exists but
// does not parse, or that sets unknown keys, is an error.
package config

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed default.toml
var defaultConfigTOML string

// DefaultConfigPath is where Load looks when given no path.
const DefaultConfigPath = "/etc/bpfobject/bpfobject.toml"

// Config is the top-level configuration.
type Config struct {
	Logging  LoggingConfig  `toml:"logging"`
	Events   EventsConfig   `toml:"events"`
	Recorder RecorderConfig `toml:"recorder"`
	BPFFS    BPFFSConfig    `toml:"bpffs"`
}

// LoggingConfig controls logging behaviour.
type LoggingConfig struct {
	// Level is the log spec (e.g. "info" or "warn,events=debug").
	Level string `toml:"level"`
	// Format is the output format: "text" or "json".
	Format string `toml:"format"`
	// Components sets per-component levels, appended to Level.
	Components map[string]string `toml:"components"`
}

// ToSpec returns the log spec: Level followed by the Components
// overrides in name order.
func (c *LoggingConfig) ToSpec() string {
	var parts []string
	if c.Level != "" {
		parts = append(parts, c.Level)
	}
	for _, component := range slices.Sorted(maps.Keys(c.Components)) {
		parts = append(parts, component+"="+c.Components[component])
	}
	return strings.Join(parts, ",")
}

// EventsConfig holds event buffer defaults.
type EventsConfig struct {
	PageCount       int    `toml:"page_count"`
	PollTimeout     string `toml:"poll_timeout"`
	LostLogInterval string `toml:"lost_log_interval"`
}

// PollTimeoutDuration parses PollTimeout.
func (c *EventsConfig) PollTimeoutDuration() (time.Duration, error) {
	return parseDuration("events.poll_timeout", c.PollTimeout)
}

// LostLogIntervalDuration parses LostLogInterval.
func (c *EventsConfig) LostLogIntervalDuration() (time.Duration, error) {
	return parseDuration("events.lost_log_interval", c.LostLogInterval)
}

// RecorderConfig controls event recording.
type RecorderConfig struct {
	DBPath string `toml:"db_path"`
}

// BPFFSConfig locates the BPF filesystem.
type BPFFSConfig struct {
	// Root is the bpffs mount point relative pin directories are
	// resolved against.
	Root      string `toml:"root"`
	MountInfo string `toml:"mountinfo"`
}

func parseDuration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, s)
	}
	return d, nil
}

// DefaultConfig returns the configuration embedded in default.toml.
func DefaultConfig() Config {
	var cfg Config
	if _, err := toml.Decode(defaultConfigTOML, &cfg); err != nil {
		panic(fmt.Sprintf("embedded default.toml: %v", err))
	}
	return cfg
}

// Load reads configuration from path with overlay semantics.
//
// Behaviour:
//   - File missing: returns the default configuration (no error)
//   - File exists and valid: overlays file values onto defaults
//   - File exists but invalid: returns an error (fail fast)
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if n := c.Events.PageCount; n <= 0 || n&(n-1) != 0 {
		return fmt.Errorf("events.page_count: %d is not a positive power of two", n)
	}
	if _, err := c.Events.PollTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Events.LostLogIntervalDuration(); err != nil {
		return err
	}
	if c.BPFFS.Root == "" {
		return fmt.Errorf("bpffs.root: must not be empty")
	}
	return nil
}
