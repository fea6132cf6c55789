// Package sim provides in-memory stand-ins for the hardware capabilities of
// the watch: the wireless link, the periodic timer, the temperature sensor
// and the battery monitor. They are used by tests and by the simulator.
package sim

import (
	"sync"

	"github.com/pkg/errors"

	watch "github.com/nuwatch/modularwatch"
)

var (
	errNotEnabled    = errors.New("sim: link not enabled")
	errUnknownHandle = errors.New("sim: unknown attribute handle")
	errNotConnected  = errors.New("sim: not connected")
)

// Update is a value written to the attribute table.
type Update struct {
	Handle   watch.Handle
	Value    []byte
	Notified bool // a connected peer was subscribed
}

type attribute struct {
	value  []byte
	notify bool
}

// Link is an in-memory watch.Link. Connect and Disconnect play the role of
// the remote central and call the connect handler synchronously.
type Link struct {
	mu sync.Mutex

	enabled    bool
	handler    func(peer watch.Peer, connected bool)
	services   []watch.Service
	nextHandle watch.Handle
	attrs      map[watch.Handle]*attribute
	updates    []Update

	payload     watch.AdvertisingPayload
	params      watch.AdvertisingParams
	advertising bool
	starts      int

	connected     bool
	peer          watch.Peer
	paramRequests []watch.ConnectionParams

	enableErr     error
	addServiceErr error
	advertiseErr  error
	connParamsErr error
}

var _ watch.Link = (*Link)(nil)

// NewLink returns a disabled link with an empty attribute table.
func NewLink() *Link {
	return &Link{
		nextHandle: 1,
		attrs:      make(map[watch.Handle]*attribute),
	}
}

// Enable implements watch.Link.
func (l *Link) Enable() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.enableErr != nil {
		return l.enableErr
	}
	l.enabled = true
	return nil
}

// SetConnectHandler implements watch.Link.
func (l *Link) SetConnectHandler(h func(peer watch.Peer, connected bool)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = h
}

// AddService implements watch.Link. Handles are allocated the way an ATT
// server lays out its table: one for the service declaration, then a
// declaration and a value handle per characteristic.
func (l *Link) AddService(svc *watch.Service) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return errNotEnabled
	}
	if l.addServiceErr != nil {
		return l.addServiceErr
	}

	stored := watch.Service{UUID: svc.UUID}
	l.nextHandle++ // service declaration
	for _, char := range svc.Characteristics {
		l.nextHandle++ // characteristic declaration
		handle := l.nextHandle
		l.nextHandle++
		l.attrs[handle] = &attribute{
			value:  append([]byte(nil), char.Value...),
			notify: char.Flags.Notify(),
		}
		if char.Handle != nil {
			*char.Handle = handle
		}
		char.Value = append([]byte(nil), char.Value...)
		stored.Characteristics = append(stored.Characteristics, char)
	}
	l.services = append(l.services, stored)
	return nil
}

// UpdateValue implements watch.Link.
func (l *Link) UpdateValue(h watch.Handle, value []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	attr, ok := l.attrs[h]
	if !ok {
		return errUnknownHandle
	}
	attr.value = append(attr.value[:0], value...)
	l.updates = append(l.updates, Update{
		Handle:   h,
		Value:    append([]byte(nil), value...),
		Notified: l.connected && attr.notify,
	})
	return nil
}

// ConfigureAdvertising implements watch.Link.
func (l *Link) ConfigureAdvertising(p watch.AdvertisingPayload, params watch.AdvertisingParams) error {
	if _, err := p.Bytes(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return errNotEnabled
	}
	p.ServiceUUIDs = append([]watch.UUID(nil), p.ServiceUUIDs...)
	l.payload = p
	l.params = params
	return nil
}

// StartAdvertising implements watch.Link.
func (l *Link) StartAdvertising() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return errNotEnabled
	}
	if l.advertiseErr != nil {
		return l.advertiseErr
	}
	l.advertising = true
	l.starts++
	return nil
}

// Connected implements watch.Link.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// RequestConnectionParams implements watch.Link.
func (l *Link) RequestConnectionParams(peer watch.Peer, params watch.ConnectionParams) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return errNotConnected
	}
	l.paramRequests = append(l.paramRequests, params)
	return l.connParamsErr
}

// Connect simulates a central connecting. Advertising stops, as it does on a
// single-connection controller.
func (l *Link) Connect(peer watch.Peer) {
	l.mu.Lock()
	l.connected = true
	l.advertising = false
	l.peer = peer
	h := l.handler
	l.mu.Unlock()
	if h != nil {
		h(peer, true)
	}
}

// Disconnect simulates the central dropping the link.
func (l *Link) Disconnect() {
	l.mu.Lock()
	if !l.connected {
		l.mu.Unlock()
		return
	}
	l.connected = false
	peer := l.peer
	l.peer = watch.Peer{}
	h := l.handler
	l.mu.Unlock()
	if h != nil {
		h(peer, false)
	}
}

// FailEnable makes Enable return err.
func (l *Link) FailEnable(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enableErr = err
}

// FailAddService makes AddService return err. A nil err restores success.
func (l *Link) FailAddService(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addServiceErr = err
}

// FailAdvertising makes StartAdvertising return err. A nil err restores
// success.
func (l *Link) FailAdvertising(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advertiseErr = err
}

// RejectConnectionParams makes RequestConnectionParams return err after
// recording the request.
func (l *Link) RejectConnectionParams(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connParamsErr = err
}

// Advertising reports whether the link is currently advertising.
func (l *Link) Advertising() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.advertising
}

// AdvertisingStarts returns the number of successful StartAdvertising calls.
func (l *Link) AdvertisingStarts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.starts
}

// Payload returns the configured advertising payload and parameters.
func (l *Link) Payload() (watch.AdvertisingPayload, watch.AdvertisingParams) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.payload, l.params
}

// Services returns the services written to the attribute table, in order.
func (l *Link) Services() []watch.Service {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]watch.Service(nil), l.services...)
}

// ServiceCount returns how many times a service with the given UUID was
// written to the attribute table.
func (l *Link) ServiceCount(uuid watch.UUID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, svc := range l.services {
		if svc.UUID == uuid {
			n++
		}
	}
	return n
}

// Value returns the current value of an attribute.
func (l *Link) Value(h watch.Handle) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	attr, ok := l.attrs[h]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), attr.value...), true
}

// Updates returns every UpdateValue call so far.
func (l *Link) Updates() []Update {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Update(nil), l.updates...)
}

// ConnectionParamRequests returns the connection parameters requested so far.
func (l *Link) ConnectionParamRequests() []watch.ConnectionParams {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]watch.ConnectionParams(nil), l.paramRequests...)
}
