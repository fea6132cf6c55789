//go:build !baremetal

package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	watch "github.com/nuwatch/modularwatch"
)

func startedSimulator(t *testing.T, opts watch.Options) (*simulator, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	s := newSimulator(opts, &out, nil)
	require.NoError(t, s.p.Start())
	// Ticks are driven by the test.
	s.p.Stop()
	return s, &out
}

// settle runs the main loop until nothing is left to do.
func settle(t *testing.T, p *watch.Peripheral) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 16; i++ {
		if err := p.Step(ctx); err != nil {
			return
		}
	}
	t.Fatal("main loop did not settle")
}

func TestSimulatorKeys(t *testing.T) {
	s, out := startedSimulator(t, watch.Options{})

	assert.True(t, s.key('c'))
	assert.Equal(t, watch.StateConnected, s.p.State())

	assert.True(t, s.key('+'))
	assert.Contains(t, out.String(), "26.0")

	assert.True(t, s.key('t'))
	settle(t, s.p)
	assert.Equal(t, byte(26), s.p.Counter().Value())

	assert.True(t, s.key('f'))
	assert.True(t, s.key('t'))
	settle(t, s.p)
	assert.Equal(t, byte(26), s.p.Counter().Value())
	assert.Equal(t, uint32(1), s.p.Stats().ReadFailures)

	assert.True(t, s.key('d'))
	assert.Equal(t, watch.StateAdvertising, s.p.State())
	assert.True(t, s.link.Advertising())

	out.Reset()
	assert.True(t, s.key('s'))
	assert.Contains(t, out.String(), "state: advertising")

	out.Reset()
	assert.True(t, s.key('?'))
	assert.Contains(t, out.String(), "keys:")

	assert.False(t, s.key('q'))
	assert.False(t, s.key(0x18))
}

func TestServeStopsOnCancel(t *testing.T) {
	s, _ := startedSimulator(t, watch.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Already started: serve reports the failed start.
	assert.ErrorIs(t, serve(ctx, s.p), watch.ErrAlreadyStarted)

	fresh := newSimulator(watch.Options{}, &bytes.Buffer{}, nil)
	assert.NoError(t, serve(ctx, fresh.p))
}
