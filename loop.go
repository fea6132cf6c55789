package watch

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Run executes the main loop until ctx is done. Start must have been called.
func (p *Peripheral) Run(ctx context.Context) error {
	for {
		if err := p.Step(ctx); err != nil {
			return err
		}
	}
}

// Step runs one iteration of the main loop.
//
// A failed advertising restart whose retry is due is attempted first,
// whatever woke the loop. Then, if a poll is due and allowed, Step clears it,
// reads the sensor and publishes the result. Otherwise it blocks until the
// next tick, link event, advertising retry or the end of ctx, and returns
// without polling.
func (p *Peripheral) Step(ctx context.Context) error {
	if !p.started.Load() {
		return ErrNotStarted
	}

	if pending, wait := p.retryDue(); pending && wait <= 0 {
		p.retryAdvertise()
	}

	signal := p.scheduler.Signal()
	if p.pollAllowed() && signal.Take() {
		p.poll()
		return nil
	}

	var retry <-chan time.Time
	if pending, wait := p.retryDue(); pending {
		t := time.NewTimer(wait)
		defer t.Stop()
		retry = t.C
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-signal.Wake():
	case <-p.events:
	case <-retry:
	}
	return nil
}

func (p *Peripheral) pollAllowed() bool {
	return p.opts.PollWhileDisconnected || p.link.Connected()
}

// poll performs one sensor read and publishes it. A failed read publishes
// nothing: the previous value stays in place until a later read succeeds.
func (p *Peripheral) poll() {
	if p.sensor != nil {
		p.pollTemperature()
	}
	if p.opts.Battery != nil {
		p.pollBattery()
	}
}

func (p *Peripheral) pollTemperature() {
	p.polls.Add(1)
	celsius, err := p.sensor.ReadTemperature()
	if err != nil {
		p.readFailures.Add(1)
		p.log.WithError(err).Warn("temperature read failed")
		return
	}

	log := p.log.WithFields(logrus.Fields{
		"celsius":   celsius,
		"connected": p.link.Connected(),
	})
	if err := p.counter.Update(TemperatureToByte(celsius)); err != nil {
		log.WithError(err).Warn("publish temperature")
		return
	}
	p.publishes.Add(1)
	log.Debug("temperature published")
}

func (p *Peripheral) pollBattery() {
	level, err := p.opts.Battery.BatteryLevel()
	if err != nil {
		p.log.WithError(err).Warn("battery read failed")
		return
	}
	if err := p.battery.SetLevel(level); err != nil {
		p.log.WithError(err).WithField("level", level).Warn("publish battery level")
	}
}
