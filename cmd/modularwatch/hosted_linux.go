//go:build linux && !baremetal

package main

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	watch "github.com/nuwatch/modularwatch"
	"github.com/nuwatch/modularwatch/internal/config"
	"github.com/nuwatch/modularwatch/link/bluez"
	"github.com/nuwatch/modularwatch/link/native"
	"github.com/nuwatch/modularwatch/sensor/i2cdev"
	"github.com/nuwatch/modularwatch/sensor/mlx90614"
)

func newLink(cfg *config.Config, log logrus.FieldLogger) (watch.Link, func(), error) {
	switch cfg.Link.Backend {
	case "bluez":
		l := bluez.New(cfg.Link.Adapter, log)
		return l, l.Close, nil
	case "native":
		return native.New(nil, log), func() {}, nil
	}
	return nil, nil, errors.Errorf("unknown link backend %q", cfg.Link.Backend)
}

func newSensor(cfg *config.Config) (watch.Sensor, func(), error) {
	if cfg.Sensor.Kind != "mlx90614" {
		return nil, func() {}, nil
	}
	bus, err := i2cdev.Open(cfg.Sensor.Bus)
	if err != nil {
		return nil, nil, err
	}
	dev := mlx90614.New(bus)
	dev.Address = cfg.Sensor.Address
	return dev, func() { bus.Close() }, nil
}
