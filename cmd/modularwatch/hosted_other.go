//go:build !linux && !baremetal

package main

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	watch "github.com/nuwatch/modularwatch"
	"github.com/nuwatch/modularwatch/internal/config"
	"github.com/nuwatch/modularwatch/link/native"
)

func newLink(cfg *config.Config, log logrus.FieldLogger) (watch.Link, func(), error) {
	if cfg.Link.Backend != "native" {
		return nil, nil, errors.Errorf("link backend %q is only available on Linux", cfg.Link.Backend)
	}
	return native.New(nil, log), func() {}, nil
}

func newSensor(cfg *config.Config) (watch.Sensor, func(), error) {
	if cfg.Sensor.Kind != "none" {
		return nil, nil, errors.Errorf("sensor %q is only available on Linux", cfg.Sensor.Kind)
	}
	return nil, func() {}, nil
}
