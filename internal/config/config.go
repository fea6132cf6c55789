// Package config loads the watch configuration from YAML.
package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	watch "github.com/nuwatch/modularwatch"
)

// Config holds all configuration of the watch.
type Config struct {
	DeviceName            string                 `yaml:"device_name"`
	AdvertisingInterval   time.Duration          `yaml:"advertising_interval"`
	PollPeriod            time.Duration          `yaml:"poll_period"`
	PollWhileDisconnected bool                   `yaml:"poll_while_disconnected"`
	AdvertiseRetry        time.Duration          `yaml:"advertise_retry"`
	ConnectionParams      ConnectionParamsConfig `yaml:"connection_params"`
	DeviceInfo            DeviceInfoConfig       `yaml:"device_info"`
	Link                  LinkConfig             `yaml:"link"`
	Sensor                SensorConfig           `yaml:"sensor"`
	Battery               BatteryConfig          `yaml:"battery"`
	LogLevel              string                 `yaml:"log_level"`
}

// ConnectionParamsConfig holds the connection parameters requested from a
// new peer.
type ConnectionParamsConfig struct {
	Enabled            bool          `yaml:"enabled"`
	MinInterval        time.Duration `yaml:"min_interval"`
	MaxInterval        time.Duration `yaml:"max_interval"`
	SupervisionTimeout time.Duration `yaml:"supervision_timeout"`
	Latency            uint16        `yaml:"latency"`
}

// DeviceInfoConfig holds the strings of the device information service.
type DeviceInfoConfig struct {
	Manufacturer     string `yaml:"manufacturer"`
	Model            string `yaml:"model"`
	Serial           string `yaml:"serial"`
	HardwareRevision string `yaml:"hardware_revision"`
	FirmwareRevision string `yaml:"firmware_revision"`
	SoftwareRevision string `yaml:"software_revision"`
}

// LinkConfig selects the wireless link backend.
type LinkConfig struct {
	Backend string `yaml:"backend"` // "native" or "bluez"
	Adapter string `yaml:"adapter"` // BlueZ adapter id, e.g. "hci0"
}

// SensorConfig selects the temperature sensor.
type SensorConfig struct {
	Kind    string `yaml:"kind"`    // "mlx90614" or "none"
	Bus     int    `yaml:"bus"`     // /dev/i2c-N
	Address uint16 `yaml:"address"` // I2C address
}

// BatteryConfig selects the battery monitor.
type BatteryConfig struct {
	// Path is a sysfs capacity file. "auto" picks the first battery, empty
	// disables battery monitoring.
	Path string `yaml:"path"`
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "modularwatch", "config.yaml")
}

// Default returns the configuration of the prototype watch.
func Default() *Config {
	info := watch.DefaultDeviceInformation
	params := watch.DefaultConnectionParams
	return &Config{
		DeviceName:          watch.DefaultDeviceName,
		AdvertisingInterval: watch.DefaultAdvertisingInterval,
		PollPeriod:          watch.DefaultPollPeriod,
		AdvertiseRetry:      watch.DefaultAdvertiseRetry,
		ConnectionParams: ConnectionParamsConfig{
			MinInterval:        params.MinInterval,
			MaxInterval:        params.MaxInterval,
			SupervisionTimeout: params.Timeout,
			Latency:            params.Latency,
		},
		DeviceInfo: DeviceInfoConfig{
			Manufacturer:     info.Manufacturer,
			Model:            info.Model,
			Serial:           info.Serial,
			HardwareRevision: info.HardwareRevision,
			FirmwareRevision: info.FirmwareRevision,
			SoftwareRevision: info.SoftwareRevision,
		},
		Link: LinkConfig{
			Backend: "native",
		},
		Sensor: SensorConfig{
			Kind:    "mlx90614",
			Bus:     1,
			Address: 0x5A,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config file")
	}
	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.DeviceName == "" {
		return errors.New("device_name must not be empty")
	}
	payload := watch.NewAdvertisingPayload(c.DeviceName,
		watch.ServiceUUIDCounter, watch.ServiceUUIDBattery, watch.ServiceUUIDDeviceInformation)
	if _, err := payload.Bytes(); err != nil {
		return errors.Errorf("device_name %q does not fit in the advertising payload", c.DeviceName)
	}

	if c.AdvertisingInterval < 20*time.Millisecond || c.AdvertisingInterval > 10240*time.Millisecond {
		return errors.Errorf("advertising_interval must be between 20ms and 10.24s, got %v", c.AdvertisingInterval)
	}
	if c.PollPeriod <= 0 {
		return errors.New("poll_period must be > 0")
	}
	if c.AdvertiseRetry <= 0 {
		return errors.New("advertise_retry must be > 0")
	}

	if c.ConnectionParams.Enabled {
		if err := c.ConnectionParams.validate(); err != nil {
			return err
		}
	}

	switch c.Link.Backend {
	case "native", "bluez":
	default:
		return errors.Errorf("link.backend must be \"native\" or \"bluez\", got %q", c.Link.Backend)
	}

	switch c.Sensor.Kind {
	case "mlx90614":
		if c.Sensor.Bus < 0 {
			return errors.New("sensor.bus must be >= 0")
		}
		if c.Sensor.Address == 0 || c.Sensor.Address > 0x7F {
			return errors.Errorf("sensor.address must be a 7-bit address, got %#x", c.Sensor.Address)
		}
	case "none":
	default:
		return errors.Errorf("sensor.kind must be \"mlx90614\" or \"none\", got %q", c.Sensor.Kind)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}
	return nil
}

// Limits of the Bluetooth Core specification, Vol 6, Part B, 4.5.1.
func (p ConnectionParamsConfig) validate() error {
	if p.MinInterval < 7500*time.Microsecond || p.MaxInterval > 4*time.Second {
		return errors.New("connection_params intervals must be between 7.5ms and 4s")
	}
	if p.MinInterval > p.MaxInterval {
		return errors.New("connection_params.min_interval must not exceed max_interval")
	}
	if p.SupervisionTimeout < 100*time.Millisecond || p.SupervisionTimeout > 32*time.Second {
		return errors.New("connection_params.supervision_timeout must be between 100ms and 32s")
	}
	if p.Latency > 499 {
		return errors.New("connection_params.latency must be <= 499")
	}
	// The supervision timeout must outlast the longest possible gap between
	// two connection events the peripheral listens to.
	if p.SupervisionTimeout <= time.Duration(1+int64(p.Latency))*p.MaxInterval*2 {
		return errors.New("connection_params.supervision_timeout too short for max_interval and latency")
	}
	return nil
}

// Options converts the config to peripheral options. The battery monitor and
// logger are left for the caller to fill in.
func (c *Config) Options() watch.Options {
	opts := watch.Options{
		DeviceName:            c.DeviceName,
		AdvertisingInterval:   c.AdvertisingInterval,
		PollPeriod:            c.PollPeriod,
		PollWhileDisconnected: c.PollWhileDisconnected,
		AdvertiseRetry:        c.AdvertiseRetry,
		DeviceInformation: watch.DeviceInformation{
			Manufacturer:     c.DeviceInfo.Manufacturer,
			Model:            c.DeviceInfo.Model,
			Serial:           c.DeviceInfo.Serial,
			HardwareRevision: c.DeviceInfo.HardwareRevision,
			FirmwareRevision: c.DeviceInfo.FirmwareRevision,
			SoftwareRevision: c.DeviceInfo.SoftwareRevision,
		},
	}
	if c.ConnectionParams.Enabled {
		opts.ConnectionParams = &watch.ConnectionParams{
			MinInterval: c.ConnectionParams.MinInterval,
			MaxInterval: c.ConnectionParams.MaxInterval,
			Timeout:     c.ConnectionParams.SupervisionTimeout,
			Latency:     c.ConnectionParams.Latency,
		}
	}
	return opts
}

// NewLogger returns a logger writing to out at the configured level.
func (c *Config) NewLogger(out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "log_level")
	}
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger, nil
}
