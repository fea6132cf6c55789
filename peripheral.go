package watch

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Defaults of the NU Modular Watch.
const (
	DefaultDeviceName          = "NU Modular Watch"
	DefaultAdvertisingInterval = 5 * time.Second // longer interval, longer battery life
	DefaultAdvertiseRetry      = time.Second
	DefaultInitialCount        = 1
	DefaultBatteryLevel        = 100
)

var (
	ErrAlreadyStarted = errors.New("watch: peripheral already started")
	ErrNotStarted     = errors.New("watch: peripheral not started")
)

// State is the lifecycle state of the wireless link as seen by the watch.
type State int32

const (
	StateUninitialized State = iota
	StateAdvertising
	StateConnected

	// StateDisconnected means the peer is gone and restarting advertising
	// failed. The main loop retries until it succeeds.
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAdvertising:
		return "advertising"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Options configures a Peripheral. Zero values select the defaults.
type Options struct {
	DeviceName          string
	AdvertisingInterval time.Duration
	PollPeriod          time.Duration
	InitialCount        byte
	InitialBatteryLevel uint8
	DeviceInformation   DeviceInformation

	// ConnectionParams, if set, are requested from every new peer. The
	// request is best effort: a rejection is ignored.
	ConnectionParams *ConnectionParams

	// PollWhileDisconnected makes the loop read the sensor and update the
	// stored values while no peer is connected. By default a due poll is
	// held until the next connection.
	PollWhileDisconnected bool

	// AdvertiseRetry is the delay between attempts to restart advertising
	// after a failed restart.
	AdvertiseRetry time.Duration

	// Battery, if set, is read on every poll to update the battery service.
	Battery BatteryMonitor

	Logger logrus.FieldLogger
}

func (o *Options) setDefaults() {
	if o.DeviceName == "" {
		o.DeviceName = DefaultDeviceName
	}
	if o.AdvertisingInterval <= 0 {
		o.AdvertisingInterval = DefaultAdvertisingInterval
	}
	if o.PollPeriod <= 0 {
		o.PollPeriod = DefaultPollPeriod
	}
	if o.InitialCount == 0 {
		o.InitialCount = DefaultInitialCount
	}
	if o.InitialBatteryLevel == 0 || o.InitialBatteryLevel > 100 {
		o.InitialBatteryLevel = DefaultBatteryLevel
	}
	if o.DeviceInformation == (DeviceInformation{}) {
		o.DeviceInformation = DefaultDeviceInformation
	}
	if o.AdvertiseRetry <= 0 {
		o.AdvertiseRetry = DefaultAdvertiseRetry
	}
	if o.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Logger = l
	}
}

// Stats counts what the main loop has done so far.
type Stats struct {
	Polls            uint32 // sensor reads issued
	ReadFailures     uint32 // sensor reads that failed
	Publishes        uint32 // temperatures written to the counter service
	Readvertisements uint32 // successful advertising restarts after a disconnection

	AdvertiseFailures  uint32 // failed advertising restarts
	ReadvertisePending bool   // a failed restart is waiting for its retry
}

// Peripheral is the lifecycle controller of the watch. It owns the link's
// advertising/connection lifecycle, the exposed services and the deferred
// sensor polling.
type Peripheral struct {
	link   Link
	sensor Sensor
	opts   Options
	log    logrus.FieldLogger

	registry  *Registry
	scheduler *Scheduler
	counter   *AttributeService
	battery   *BatteryService
	devinfo   *DeviceInformationService
	payload   AdvertisingPayload

	started     atomic.Bool
	advMu       sync.Mutex // serializes advertising restarts with connections
	state       atomic.Int32
	readvertise atomic.Bool
	retryAt     atomic.Int64 // unix nanoseconds of the next advertising retry
	events      chan struct{} // link events for the main loop, coalesced

	polls            atomic.Uint32
	readFailures     atomic.Uint32
	publishes        atomic.Uint32
	readvertisements  atomic.Uint32
	advertiseFailures atomic.Uint32
}

// NewPeripheral returns an uninitialized peripheral. Nothing touches the link
// until Start is called. sensor may be nil, in which case polls only update
// the battery service.
func NewPeripheral(link Link, sensor Sensor, timer Timer, opts Options) *Peripheral {
	opts.setDefaults()
	return &Peripheral{
		link:      link,
		sensor:    sensor,
		opts:      opts,
		log:       opts.Logger,
		registry:  NewRegistry(link),
		scheduler: NewScheduler(timer, opts.PollPeriod),
		events:    make(chan struct{}, 1),
	}
}

// Start brings up the link, composes the services, starts advertising and
// attaches the poll timer, in that order.
//
// A Start that failed may be called again. Enable and SetConnectHandler are
// repeated on the link, so both must tolerate a second call. Services created
// by the failed attempt are kept and not registered again.
func (p *Peripheral) Start() (err error) {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer func() {
		if err != nil {
			p.started.Store(false)
		}
	}()

	if err := p.link.Enable(); err != nil {
		return errors.Wrap(err, "enable link")
	}

	// Registered before advertising starts: the disconnection branch is the
	// only way back to advertising after a link drop.
	p.link.SetConnectHandler(p.handleConnect)

	if err := p.composeServices(); err != nil {
		return err
	}

	p.payload = NewAdvertisingPayload(p.opts.DeviceName,
		ServiceUUIDCounter, ServiceUUIDBattery, ServiceUUIDDeviceInformation)
	err = p.link.ConfigureAdvertising(p.payload, AdvertisingParams{
		Type:     AdvertisingConnectableUndirected,
		Interval: p.opts.AdvertisingInterval,
	})
	if err != nil {
		return errors.Wrap(err, "configure advertising")
	}
	if err := p.link.StartAdvertising(); err != nil {
		return errors.Wrap(err, "start advertising")
	}
	p.setState(StateAdvertising)

	p.scheduler.Start()
	p.log.WithFields(logrus.Fields{
		"name":     p.opts.DeviceName,
		"interval": p.opts.AdvertisingInterval,
	}).Info("advertising")
	return nil
}

// composeServices creates the services still missing, so that a retried
// Start owns the registrations of the attempt that created them.
func (p *Peripheral) composeServices() error {
	if p.counter == nil {
		counter, err := NewCounterService(p.registry, p.opts.InitialCount)
		if err != nil {
			return errors.Wrap(err, "counter service")
		}
		p.counter = counter
	}
	if p.battery == nil {
		battery, err := NewBatteryService(p.registry, p.opts.InitialBatteryLevel)
		if err != nil {
			return errors.Wrap(err, "battery service")
		}
		p.battery = battery
	}
	if p.devinfo == nil {
		devinfo, err := NewDeviceInformationService(p.registry, p.opts.DeviceInformation)
		if err != nil {
			return errors.Wrap(err, "device information service")
		}
		p.devinfo = devinfo
	}
	return nil
}

// Stop detaches the poll timer. The link is left as it is.
func (p *Peripheral) Stop() {
	p.scheduler.Stop()
}

func (p *Peripheral) handleConnect(peer Peer, connected bool) {
	log := p.log.WithField("peer", peer.String())
	if connected {
		p.advMu.Lock()
		p.readvertise.Store(false)
		p.setState(StateConnected)
		p.advMu.Unlock()
		log.Info("connected")
		if p.opts.ConnectionParams != nil {
			if err := p.link.RequestConnectionParams(peer, *p.opts.ConnectionParams); err != nil {
				log.WithError(err).Debug("connection parameters not updated")
			}
		}
	} else {
		log.Info("disconnected")
		p.advertise()
	}
	p.notify()
}

// advertise restarts advertising. On failure a retry is armed for the main
// loop, AdvertiseRetry from now.
func (p *Peripheral) advertise() {
	p.advMu.Lock()
	defer p.advMu.Unlock()
	p.restartAdvertising()
}

// retryAdvertise is the main loop's retry of a failed restart. It does nothing
// if a peer connected in the meantime.
func (p *Peripheral) retryAdvertise() {
	p.advMu.Lock()
	defer p.advMu.Unlock()
	if !p.readvertise.Load() {
		return
	}
	p.restartAdvertising()
}

func (p *Peripheral) restartAdvertising() {
	if err := p.link.StartAdvertising(); err != nil {
		p.advertiseFailures.Add(1)
		p.retryAt.Store(time.Now().Add(p.opts.AdvertiseRetry).UnixNano())
		p.readvertise.Store(true)
		p.setState(StateDisconnected)
		p.log.WithError(err).WithField("retry", p.opts.AdvertiseRetry).Error("restart advertising")
		return
	}
	p.readvertise.Store(false)
	p.setState(StateAdvertising)
	p.readvertisements.Add(1)
}

// retryDue reports whether a failed advertising restart is pending and how
// long until its retry is due.
func (p *Peripheral) retryDue() (pending bool, wait time.Duration) {
	if !p.readvertise.Load() {
		return false, 0
	}
	return true, time.Until(time.Unix(0, p.retryAt.Load()))
}

func (p *Peripheral) notify() {
	select {
	case p.events <- struct{}{}:
	default:
	}
}

func (p *Peripheral) setState(s State) {
	p.state.Store(int32(s))
}

// State returns the current lifecycle state.
func (p *Peripheral) State() State {
	return State(p.state.Load())
}

// Payload returns the advertising payload assembled by Start.
func (p *Peripheral) Payload() AdvertisingPayload {
	return p.payload
}

// Registry returns the service registry of the link.
func (p *Peripheral) Registry() *Registry {
	return p.registry
}

// Scheduler returns the poll scheduler.
func (p *Peripheral) Scheduler() *Scheduler {
	return p.scheduler
}

// Counter returns the counter service, once started.
func (p *Peripheral) Counter() *AttributeService {
	return p.counter
}

// Battery returns the battery service, once started.
func (p *Peripheral) Battery() *BatteryService {
	return p.battery
}

// DeviceInformation returns the device information service, once started.
func (p *Peripheral) DeviceInformation() *DeviceInformationService {
	return p.devinfo
}

// Stats returns the loop counters.
func (p *Peripheral) Stats() Stats {
	return Stats{
		Polls:            p.polls.Load(),
		ReadFailures:     p.readFailures.Load(),
		Publishes:        p.publishes.Load(),
		Readvertisements: p.readvertisements.Load(),

		AdvertiseFailures:  p.advertiseFailures.Load(),
		ReadvertisePending: p.readvertise.Load(),
	}
}
