package watch

import (
	"math"
	"testing"
)

func TestPollSignalCoalesces(t *testing.T) {
	s := NewPollSignal()
	if s.Take() {
		t.Fatal("new signal is pending")
	}
	s.Raise()
	s.Raise()
	s.Raise()
	if !s.Pending() {
		t.Fatal("expected pending poll after Raise")
	}
	if !s.Take() {
		t.Fatal("expected Take to report the pending poll")
	}
	if s.Take() {
		t.Error("three raises produced more than one poll")
	}
	if got := s.Raised(); got != 3 {
		t.Errorf("Raised() = %d, want 3", got)
	}
	if got := s.Coalesced(); got != 2 {
		t.Errorf("Coalesced() = %d, want 2", got)
	}
}

func TestPollSignalWake(t *testing.T) {
	s := NewPollSignal()
	s.Raise()
	s.Raise()
	select {
	case <-s.Wake():
	default:
		t.Fatal("expected a wake token after Raise")
	}
	select {
	case <-s.Wake():
		t.Error("wake tokens were queued")
	default:
	}
	if !s.Pending() {
		t.Error("receiving from Wake cleared the pending flag")
	}
}

func TestTemperatureToByte(t *testing.T) {
	for _, tc := range []struct {
		celsius float32
		want    byte
	}{
		{25, 25},
		{25.9, 25},
		{0.5, 0},
		{0, 0},
		{-12.3, 0},
		{254.99, 254},
		{255, 255},
		{1000, 255},
		{float32(math.NaN()), 0},
		{float32(math.Inf(1)), 255},
		{float32(math.Inf(-1)), 0},
	} {
		if got := TemperatureToByte(tc.celsius); got != tc.want {
			t.Errorf("TemperatureToByte(%v) = %d, want %d", tc.celsius, got, tc.want)
		}
	}
}
