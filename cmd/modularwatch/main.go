// Command modularwatch runs the NU Modular Watch: a BLE peripheral that
// advertises itself, exposes a counter, battery and device information
// service, and publishes the temperature of an IR thermometer once a second.
//
// Built with TinyGo for an nRF board it is the watch firmware. On a desktop
// or Linux board it runs on the host Bluetooth adapter, or in a simulator
// driven from the keyboard.
package main

import (
	"context"

	"github.com/pkg/errors"

	watch "github.com/nuwatch/modularwatch"
)

// serve starts p and runs its main loop until ctx is done.
func serve(ctx context.Context, p *watch.Peripheral) error {
	if err := p.Start(); err != nil {
		return err
	}
	defer p.Stop()
	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func must(action string, err error) {
	if err != nil {
		panic("failed to " + action + ": " + err.Error())
	}
}
