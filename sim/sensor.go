package sim

import (
	"sync"

	watch "github.com/nuwatch/modularwatch"
)

type reading struct {
	celsius float32
	err     error
}

// Sensor is a scripted watch.Sensor. Queued readings are returned first, in
// order; after that every read returns the current temperature or error.
type Sensor struct {
	mu      sync.Mutex
	celsius float32
	err     error
	queue   []reading
	reads   int
}

var _ watch.Sensor = (*Sensor)(nil)

// NewSensor returns a sensor that reads celsius.
func NewSensor(celsius float32) *Sensor {
	return &Sensor{celsius: celsius}
}

// ReadTemperature implements watch.Sensor.
func (s *Sensor) ReadTemperature() (float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if len(s.queue) > 0 {
		r := s.queue[0]
		s.queue = s.queue[1:]
		return r.celsius, r.err
	}
	if s.err != nil {
		return 0, s.err
	}
	return s.celsius, nil
}

// SetTemperature changes the steady-state reading and clears any error.
func (s *Sensor) SetTemperature(celsius float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.celsius = celsius
	s.err = nil
}

// Adjust adds delta to the steady-state reading.
func (s *Sensor) Adjust(delta float32) float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.celsius += delta
	return s.celsius
}

// SetError makes every following read fail with err until SetTemperature or
// SetError(nil) is called.
func (s *Sensor) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Failing reports whether reads currently fail.
func (s *Sensor) Failing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err != nil
}

// Push queues a single reading.
func (s *Sensor) Push(celsius float32, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, reading{celsius: celsius, err: err})
}

// Reads returns the number of ReadTemperature calls so far.
func (s *Sensor) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Battery is a watch.BatteryMonitor with a settable level.
type Battery struct {
	mu    sync.Mutex
	level uint8
	err   error
}

var _ watch.BatteryMonitor = (*Battery)(nil)

// NewBattery returns a battery at level percent.
func NewBattery(level uint8) *Battery {
	return &Battery{level: level}
}

// BatteryLevel implements watch.BatteryMonitor.
func (b *Battery) BatteryLevel() (uint8, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.level, b.err
}

// SetLevel changes the reported level.
func (b *Battery) SetLevel(level uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.level = level
}

// SetError makes BatteryLevel fail with err. A nil err restores success.
func (b *Battery) SetError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}
