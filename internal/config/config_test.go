package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.HTTPPort, DefaultHTTPPort)
	}
	if !cfg.Mock.Enabled {
		t.Error("mock.enabled: got false, want true")
	}
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, `log_level: debug
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Mock.Interval != DefaultMockInterval {
		t.Errorf("mock.interval: got %v, want %v", cfg.Mock.Interval, DefaultMockInterval)
	}
	if cfg.Serial.DefaultBaudRate != DefaultBaudRate {
		t.Errorf("serial.default_baud_rate: got %d, want %d", cfg.Serial.DefaultBaudRate, DefaultBaudRate)
	}
	if cfg.Serial.MaxLineBytes != DefaultMaxLineBytes {
		t.Errorf("serial.max_line_bytes: got %d, want %d", cfg.Serial.MaxLineBytes, DefaultMaxLineBytes)
	}
	if cfg.Latest.TTL != DefaultLatestTTL {
		t.Errorf("latest.ttl: got %v, want %v", cfg.Latest.TTL, DefaultLatestTTL)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel: got %v, want debug", cfg.SlogLevel())
	}
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `http_port: 8081
log_level: warn
mock:
  enabled: false
  interval: 250ms
  smoothing_factor: 0.25
serial:
  default_baud_rate: 115200
  max_line_bytes: 4096
latest:
  ttl: 30s
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != 8081 {
		t.Errorf("http_port: got %d, want 8081", cfg.HTTPPort)
	}
	if cfg.Mock.Enabled {
		t.Error("mock.enabled: got true, want false")
	}
	if cfg.Mock.Interval != 250*time.Millisecond {
		t.Errorf("mock.interval: got %v, want 250ms", cfg.Mock.Interval)
	}
	if cfg.Mock.SmoothingFactor != 0.25 {
		t.Errorf("mock.smoothing_factor: got %v, want 0.25", cfg.Mock.SmoothingFactor)
	}
	if cfg.Serial.DefaultBaudRate != 115200 {
		t.Errorf("serial.default_baud_rate: got %d, want 115200", cfg.Serial.DefaultBaudRate)
	}
	if cfg.Latest.TTL != 30*time.Second {
		t.Errorf("latest.ttl: got %v, want 30s", cfg.Latest.TTL)
	}
	if cfg.SlogLevel() != slog.LevelWarn {
		t.Errorf("SlogLevel: got %v, want warn", cfg.SlogLevel())
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"port out of range":   "http_port: 70000\n",
		"unknown log level":   "log_level: chatty\n",
		"zero mock interval":  "mock:\n  interval: 0s\n",
		"smoothing above one": "mock:\n  smoothing_factor: 1.5\n",
		"negative baud":       "serial:\n  default_baud_rate: -1\n",
		"tiny line limit":     "serial:\n  max_line_bytes: 8\n",
		"zero ttl":            "latest:\n  ttl: 0s\n",
		"malformed yaml":      "http_port: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
