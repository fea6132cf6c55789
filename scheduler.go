package watch

import (
	"sync"
	"time"
)

// DefaultPollPeriod is how often the sensor is polled.
const DefaultPollPeriod = time.Second

// Scheduler defers sensor polling from the timer callback to the main loop.
//
// The timer callback (Tick) does nothing but raise the poll signal. The slow
// sensor transaction happens in the main loop, which takes the signal.
type Scheduler struct {
	timer  Timer
	period time.Duration
	signal *PollSignal

	mu     sync.Mutex
	detach func()
}

// NewScheduler returns a stopped scheduler. A zero period means
// DefaultPollPeriod.
func NewScheduler(timer Timer, period time.Duration) *Scheduler {
	if period <= 0 {
		period = DefaultPollPeriod
	}
	return &Scheduler{
		timer:  timer,
		period: period,
		signal: NewPollSignal(),
	}
}

// Start attaches Tick to the timer. Starting a started scheduler does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detach != nil {
		return
	}
	s.detach = s.timer.AttachPeriodic(s.Tick, s.period)
}

// Stop detaches the scheduler from the timer. A pending poll stays pending.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detach != nil {
		s.detach()
		s.detach = nil
	}
}

// Tick is the timer callback. It must stay limited to raising the signal.
func (s *Scheduler) Tick() {
	s.signal.Raise()
}

// Signal returns the poll signal shared with the main loop.
func (s *Scheduler) Signal() *PollSignal {
	return s.signal
}

// Period returns the tick period.
func (s *Scheduler) Period() time.Duration {
	return s.period
}
