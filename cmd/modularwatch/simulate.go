//go:build !baremetal

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	watch "github.com/nuwatch/modularwatch"
	"github.com/nuwatch/modularwatch/rawterm"
	"github.com/nuwatch/modularwatch/sim"
)

const simulateHelp = `keys: c connect  d disconnect  t tick  f toggle sensor failure
      + warmer  - colder  s status  q quit
`

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the watch against a simulated link and sensor",
	Long: `Runs the complete watch core against an in-memory link and a simulated
thermometer. The central is played from the keyboard:

` + simulateHelp,
	RunE: runSimulate,
}

var simulatePeer = watch.Peer{Address: "SI:MU:LA:TE:D0:01"}

// simulator wires the peripheral to the simulated hardware.
type simulator struct {
	link    *sim.Link
	sensor  *sim.Sensor
	battery *sim.Battery
	p       *watch.Peripheral
	out     io.Writer
}

func newSimulator(opts watch.Options, out io.Writer, log logrus.FieldLogger) *simulator {
	s := &simulator{
		link:    sim.NewLink(),
		sensor:  sim.NewSensor(25),
		battery: sim.NewBattery(100),
		out:     out,
	}
	opts.Battery = s.battery
	opts.Logger = log
	s.p = watch.NewPeripheral(s.link, s.sensor, watch.TickerTimer{}, opts)
	return s
}

// key handles a single key press. It returns false when the simulator
// should quit.
func (s *simulator) key(ch byte) bool {
	switch ch {
	case 'c':
		if s.link.Connected() {
			fmt.Fprintln(s.out, "already connected")
			break
		}
		s.link.Connect(simulatePeer)
	case 'd':
		s.link.Disconnect()
	case 't':
		s.p.Scheduler().Tick()
	case 'f':
		if s.sensor.Failing() {
			s.sensor.SetError(nil)
			fmt.Fprintln(s.out, "sensor ok")
		} else {
			s.sensor.SetError(watch.ErrNoAck)
			fmt.Fprintln(s.out, "sensor failing")
		}
	case '+':
		fmt.Fprintf(s.out, "temperature %.1f°C\n", s.sensor.Adjust(1))
	case '-':
		fmt.Fprintf(s.out, "temperature %.1f°C\n", s.sensor.Adjust(-1))
	case 's':
		s.status()
	case 'q', 0x18: // Ctrl-X
		return false
	case '\n':
	default:
		fmt.Fprint(s.out, simulateHelp)
	}
	return true
}

func (s *simulator) status() {
	stats := s.p.Stats()
	signal := s.p.Scheduler().Signal()
	fmt.Fprintf(s.out, "state: %s  advertising: %t  count: %d  battery: %d%%\n",
		s.p.State(), s.link.Advertising(), s.p.Counter().Value(), s.p.Battery().Value())
	fmt.Fprintf(s.out, "polls: %d  failures: %d  published: %d  readvertised: %d  ticks: %d  coalesced: %d  pending: %t\n",
		stats.Polls, stats.ReadFailures, stats.Publishes, stats.Readvertisements,
		signal.Raised(), signal.Coalesced(), signal.Pending())
	if stats.ReadvertisePending {
		fmt.Fprintf(s.out, "advertising restart failed %d times, retry pending\n", stats.AdvertiseFailures)
	}
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	term := rawterm.Stdio()
	if err := term.Configure(); err != nil {
		return err
	}
	defer term.Restore()

	log, err := cfg.NewLogger(term)
	if err != nil {
		return err
	}
	s := newSimulator(cfg.Options(), term, log)
	if err := s.p.Start(); err != nil {
		return err
	}
	defer s.p.Stop()

	ctx, cancel := signalContext()
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.p.Run(ctx) }()

	fmt.Fprint(term, simulateHelp)
	keys := make(chan byte)
	go func() {
		defer close(keys)
		for {
			ch, err := term.Getchar()
			if err != nil {
				return
			}
			keys <- ch
		}
	}()

	for {
		select {
		case ch, ok := <-keys:
			if ok && s.key(ch) {
				continue
			}
			cancel()
			<-done
			return nil
		case err := <-done:
			if err == context.Canceled {
				return nil
			}
			return err
		}
	}
}
