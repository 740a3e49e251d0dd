package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the bridge configuration.
const (
	DefaultHTTPPort     = 3000
	DefaultLogLevel     = "info"
	DefaultMockInterval = time.Second
	DefaultBaudRate     = 9600
	DefaultMaxLineBytes = 64 * 1024
	DefaultLatestTTL    = 5 * time.Minute
)

// Config holds all bridge settings.
type Config struct {
	// HTTPPort is the port the dashboard, REST API and WebSocket listen on.
	HTTPPort int `yaml:"http_port"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	Mock   MockConfig   `yaml:"mock"`
	Serial SerialConfig `yaml:"serial"`
	Latest LatestConfig `yaml:"latest"`
}

// MockConfig controls the simulated source.
type MockConfig struct {
	// Enabled adds the simulated entry to the port list and allows connecting to it.
	Enabled bool `yaml:"enabled"`

	// Interval is the time between two simulated readings.
	Interval time.Duration `yaml:"interval"`

	// SmoothingFactor is the share (0-1) of each new value blended into the
	// previous one. 0 delivers the raw random walk.
	SmoothingFactor float64 `yaml:"smoothing_factor"`
}

// SerialConfig controls real serial connections.
type SerialConfig struct {
	DefaultBaudRate int `yaml:"default_baud_rate"`

	// MaxLineBytes bounds a single line; a longer line is a device error.
	MaxLineBytes int `yaml:"max_line_bytes"`
}

// LatestConfig controls the last-reading cache.
type LatestConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// SlogLevel maps LogLevel to a slog.Level. Unknown values map to Info;
// validate rejects them before this is reached.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		HTTPPort: DefaultHTTPPort,
		LogLevel: DefaultLogLevel,
		Mock: MockConfig{
			Enabled:  true,
			Interval: DefaultMockInterval,
		},
		Serial: SerialConfig{
			DefaultBaudRate: DefaultBaudRate,
			MaxLineBytes:    DefaultMaxLineBytes,
		},
		Latest: LatestConfig{
			TTL: DefaultLatestTTL,
		},
	}
}

// Validate checks structural constraints. It is exported so CLI overrides
// can be re-checked after they are applied.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port %d is out of range [1, 65535]", c.HTTPPort)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q unknown: want debug|info|warn|error", c.LogLevel)
	}
	if c.Mock.Interval <= 0 {
		return fmt.Errorf("mock.interval must be positive")
	}
	if c.Mock.SmoothingFactor < 0 || c.Mock.SmoothingFactor > 1 {
		return fmt.Errorf("mock.smoothing_factor %v is out of range [0, 1]", c.Mock.SmoothingFactor)
	}
	if c.Serial.DefaultBaudRate <= 0 {
		return fmt.Errorf("serial.default_baud_rate must be positive")
	}
	if c.Serial.MaxLineBytes < 64 {
		return fmt.Errorf("serial.max_line_bytes %d is below the minimum of 64", c.Serial.MaxLineBytes)
	}
	if c.Latest.TTL <= 0 {
		return fmt.Errorf("latest.ttl must be positive")
	}
	return nil
}
