package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	watch "github.com/nuwatch/modularwatch"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.DeviceName != "NU Modular Watch" {
		t.Errorf("DeviceName = %q, want %q", cfg.DeviceName, "NU Modular Watch")
	}
	if cfg.AdvertisingInterval != 5*time.Second {
		t.Errorf("AdvertisingInterval = %v, want 5s", cfg.AdvertisingInterval)
	}
	if cfg.PollPeriod != time.Second {
		t.Errorf("PollPeriod = %v, want 1s", cfg.PollPeriod)
	}
	if cfg.PollWhileDisconnected {
		t.Error("PollWhileDisconnected should default to false")
	}
	if cfg.ConnectionParams.Enabled {
		t.Error("ConnectionParams should be disabled by default")
	}
	if cfg.Sensor.Address != 0x5A {
		t.Errorf("Sensor.Address = %#x, want 0x5a", cfg.Sensor.Address)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
device_name: Test Watch
advertising_interval: 1s
poll_period: 250ms
poll_while_disconnected: true
connection_params:
  enabled: true
  min_interval: 30ms
  max_interval: 50ms
  supervision_timeout: 4s
  latency: 2
device_info:
  serial: SN42
link:
  backend: bluez
  adapter: hci1
sensor:
  kind: none
battery:
  path: auto
log_level: debug
`
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.DeviceName != "Test Watch" {
		t.Errorf("DeviceName = %q, want %q", cfg.DeviceName, "Test Watch")
	}
	if cfg.PollPeriod != 250*time.Millisecond {
		t.Errorf("PollPeriod = %v, want 250ms", cfg.PollPeriod)
	}
	if cfg.Link.Backend != "bluez" || cfg.Link.Adapter != "hci1" {
		t.Errorf("Link = %+v, want bluez on hci1", cfg.Link)
	}
	if cfg.Battery.Path != "auto" {
		t.Errorf("Battery.Path = %q, want auto", cfg.Battery.Path)
	}
	// Unset fields keep their defaults.
	if cfg.DeviceInfo.Manufacturer != "ARM" || cfg.DeviceInfo.Serial != "SN42" {
		t.Errorf("DeviceInfo = %+v", cfg.DeviceInfo)
	}
	if cfg.AdvertiseRetry != watch.DefaultAdvertiseRetry {
		t.Errorf("AdvertiseRetry = %v, want default", cfg.AdvertiseRetry)
	}

	opts := cfg.Options()
	if opts.ConnectionParams == nil {
		t.Fatal("Options().ConnectionParams is nil")
	}
	want := watch.ConnectionParams{
		MinInterval: 30 * time.Millisecond,
		MaxInterval: 50 * time.Millisecond,
		Timeout:     4 * time.Second,
		Latency:     2,
	}
	if *opts.ConnectionParams != want {
		t.Errorf("ConnectionParams = %+v, want %+v", *opts.ConnectionParams, want)
	}
	if !opts.PollWhileDisconnected {
		t.Error("PollWhileDisconnected not carried into options")
	}
	if opts.DeviceInformation.Serial != "SN42" {
		t.Errorf("DeviceInformation.Serial = %q", opts.DeviceInformation.Serial)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("poll_period: soon\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		substr string
	}{
		{"empty name", func(c *Config) { c.DeviceName = "" }, "device_name"},
		{"long name", func(c *Config) { c.DeviceName = strings.Repeat("x", 20) }, "advertising payload"},
		{"fast advertising", func(c *Config) { c.AdvertisingInterval = time.Millisecond }, "advertising_interval"},
		{"zero poll period", func(c *Config) { c.PollPeriod = 0 }, "poll_period"},
		{"zero retry", func(c *Config) { c.AdvertiseRetry = 0 }, "advertise_retry"},
		{"backend", func(c *Config) { c.Link.Backend = "serial" }, "link.backend"},
		{"sensor kind", func(c *Config) { c.Sensor.Kind = "dht22" }, "sensor.kind"},
		{"sensor address", func(c *Config) { c.Sensor.Address = 0x80 }, "sensor.address"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"conn interval order", func(c *Config) {
			c.ConnectionParams.Enabled = true
			c.ConnectionParams.MinInterval = time.Second
			c.ConnectionParams.MaxInterval = 500 * time.Millisecond
		}, "min_interval"},
		{"conn timeout", func(c *Config) {
			c.ConnectionParams.Enabled = true
			c.ConnectionParams.SupervisionTimeout = time.Second
		}, "supervision_timeout"},
		{"conn latency", func(c *Config) {
			c.ConnectionParams.Enabled = true
			c.ConnectionParams.Latency = 500
		}, "latency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q does not mention %q", err, tt.substr)
			}
			if trace := fmt.Sprintf("%+v", err); !strings.Contains(trace, "internal/config.") {
				t.Errorf("error %q carries no stack trace", err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"

	var buf bytes.Buffer
	logger, err := cfg.NewLogger(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if logger.GetLevel() != logrus.WarnLevel {
		t.Errorf("level = %v, want warn", logger.GetLevel())
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected log output %q", buf.String())
	}

	cfg.LogLevel = "loud"
	if _, err := cfg.NewLogger(&buf); err == nil {
		t.Error("expected error for invalid level")
	}
}
