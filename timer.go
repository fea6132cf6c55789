package watch

import (
	"sync"
	"time"
)

// Timer calls a function periodically. The function runs outside the main
// loop and must return promptly.
type Timer interface {
	// AttachPeriodic starts calling fn every period. The returned function
	// stops the calls; it may be called more than once.
	AttachPeriodic(fn func(), period time.Duration) (detach func())
}

// TickerTimer implements Timer with a time.Ticker. It works on hosted systems
// and with the TinyGo scheduler.
type TickerTimer struct{}

// AttachPeriodic implements Timer.
func (TickerTimer) AttachPeriodic(fn func(), period time.Duration) func() {
	ticker := time.NewTicker(period)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
