package watch

import "sync/atomic"

// PollSignal carries "a poll is due" from the timer callback to the main loop.
//
// It has exactly one producer (Raise, called from the timer callback) and one
// consumer (Take, called from the main loop). Raises that happen while a poll
// is already pending collapse into that poll: missed cycles are dropped, never
// queued.
//
// Raise only performs an atomic store and a non-blocking channel send, so it
// is safe to call from contexts that must not block.
type PollSignal struct {
	pending atomic.Bool
	wake    chan struct{}

	raised    atomic.Uint32
	coalesced atomic.Uint32
}

// NewPollSignal returns a signal with no poll pending.
func NewPollSignal() *PollSignal {
	return &PollSignal{wake: make(chan struct{}, 1)}
}

// Raise marks a poll as pending and wakes the main loop.
func (s *PollSignal) Raise() {
	s.raised.Add(1)
	if s.pending.Swap(true) {
		s.coalesced.Add(1)
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Take clears the pending flag and reports whether it was set.
func (s *PollSignal) Take() bool {
	return s.pending.Swap(false)
}

// Pending reports whether a poll is pending, without clearing it.
func (s *PollSignal) Pending() bool {
	return s.pending.Load()
}

// Wake returns a channel that receives a value after Raise. A receive only
// means the pending flag should be checked again; it does not clear it.
func (s *PollSignal) Wake() <-chan struct{} {
	return s.wake
}

// Raised returns the number of Raise calls so far.
func (s *PollSignal) Raised() uint32 {
	return s.raised.Load()
}

// Coalesced returns the number of Raise calls that found a poll already
// pending.
func (s *PollSignal) Coalesced() uint32 {
	return s.coalesced.Load()
}
