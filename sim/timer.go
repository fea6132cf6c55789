package sim

import (
	"sync"
	"time"

	watch "github.com/nuwatch/modularwatch"
)

// Timer is a watch.Timer that only fires when told to.
type Timer struct {
	mu     sync.Mutex
	fn     func()
	period time.Duration
}

var _ watch.Timer = (*Timer)(nil)

// AttachPeriodic implements watch.Timer.
func (t *Timer) AttachPeriodic(fn func(), period time.Duration) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fn = fn
	t.period = period
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.fn = nil
	}
}

// Fire runs the attached callback n times. It does nothing when no callback
// is attached.
func (t *Timer) Fire(n int) {
	t.mu.Lock()
	fn := t.fn
	t.mu.Unlock()
	if fn == nil {
		return
	}
	for i := 0; i < n; i++ {
		fn()
	}
}

// Attached reports whether a callback is attached.
func (t *Timer) Attached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fn != nil
}

// Period returns the period of the last attached callback.
func (t *Timer) Period() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.period
}
