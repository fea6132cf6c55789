//go:build nrf

package main

import (
	"context"
	"machine"

	"github.com/sirupsen/logrus"

	watch "github.com/nuwatch/modularwatch"
	"github.com/nuwatch/modularwatch/battery"
	"github.com/nuwatch/modularwatch/link/native"
	"github.com/nuwatch/modularwatch/sensor/mlx90614"
)

// Battery voltage divider input.
const batteryPin = machine.P0_31

func main() {
	log := logrus.New()
	log.SetOutput(machine.Serial)
	log.SetLevel(logrus.InfoLevel)

	must("configure I2C", machine.I2C0.Configure(machine.I2CConfig{
		Frequency: 100 * machine.KHz,
	}))
	thermometer := mlx90614.New(machine.I2C0)

	machine.InitADC()
	adc := machine.ADC{Pin: batteryPin}
	adc.Configure(machine.ADCConfig{})

	params := watch.DefaultConnectionParams
	p := watch.NewPeripheral(native.New(nil, log), thermometer, watch.TickerTimer{}, watch.Options{
		ConnectionParams: &params,
		Battery:          battery.NewADCMonitor(adc),
		Logger:           log,
	})
	must("run watch", serve(context.Background(), p))
}
