// Package watch is the control core of the NU Modular Watch, a battery
// powered Bluetooth Low Energy wearable.
//
// It owns the advertising/connection lifecycle of the wireless link, composes
// the counter, battery and device information services onto it exactly once,
// and bridges a periodic timer tick into a main-loop sensor read that updates
// the published attributes.
//
// The wireless stack, the sensor bus and the timer are passed in as
// capabilities (Link, Sensor, Timer) so the same core runs on a
// microcontroller with TinyGo, on a Linux host with BlueZ, and against the
// in-memory fakes of package sim.
package watch // import "github.com/nuwatch/modularwatch"
