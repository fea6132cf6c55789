// Package native implements watch.Link on top of tinygo.org/x/bluetooth. It
// works wherever that package does: Nordic SoftDevices and HCI radios under
// TinyGo, and BlueZ, CoreBluetooth or WinRT on desktop systems.
package native

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	watch "github.com/nuwatch/modularwatch"
)

var errUnknownHandle = errors.New("native: unknown attribute handle")

// Link is a watch.Link backed by a bluetooth.Adapter.
//
// The stack may report connections from an event handler that must return
// quickly, so the connect handler only records the change. A goroutine started
// by the first successful Enable delivers it to the handler set with
// SetConnectHandler.
type Link struct {
	adapter *bluetooth.Adapter
	log     logrus.FieldLogger

	connected atomic.Bool
	events    *connectionEvents

	mu         sync.Mutex
	enabled    bool
	handler    func(peer watch.Peer, connected bool)
	chars      map[watch.Handle]*bluetooth.Characteristic
	nextHandle watch.Handle
	devices    map[string]bluetooth.Device
	adv        *bluetooth.Advertisement
}

var _ watch.Link = (*Link)(nil)

// New returns a link on adapter. A nil adapter selects
// bluetooth.DefaultAdapter.
func New(adapter *bluetooth.Adapter, log logrus.FieldLogger) *Link {
	if adapter == nil {
		adapter = bluetooth.DefaultAdapter
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Link{
		adapter:    adapter,
		log:        log.WithField("link", "native"),
		events:     newConnectionEvents(),
		chars:      make(map[watch.Handle]*bluetooth.Characteristic),
		nextHandle: 1,
		devices:    make(map[string]bluetooth.Device),
	}
}

// Enable implements watch.Link. Enabling an enabled link does nothing.
func (l *Link) Enable() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.enabled {
		return nil
	}
	if err := l.adapter.Enable(); err != nil {
		return errors.Wrap(err, "enable BLE stack")
	}
	l.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		l.connected.Store(connected)
		l.events.push(device, connected)
	})
	l.adv = l.adapter.DefaultAdvertisement()
	l.enabled = true
	go l.dispatch()
	return nil
}

func (l *Link) dispatch() {
	for range l.events.wake {
		for _, ev := range l.events.take() {
			l.deliver(ev)
		}
	}
}

func (l *Link) deliver(ev connectEvent) {
	peer := watch.Peer{Address: ev.device.Address.String()}
	l.mu.Lock()
	if ev.connected {
		l.devices[peer.Address] = ev.device
	} else {
		delete(l.devices, peer.Address)
	}
	h := l.handler
	l.mu.Unlock()
	if h != nil {
		h(peer, ev.connected)
	}
}

// SetConnectHandler implements watch.Link.
func (l *Link) SetConnectHandler(h func(peer watch.Peer, connected bool)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = h
}

// AddService implements watch.Link. The handles it reports are local to the
// link: the stacks behind bluetooth.Adapter do not all expose ATT handles.
func (l *Link) AddService(svc *watch.Service) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	chars := make([]*bluetooth.Characteristic, len(svc.Characteristics))
	configs := make([]bluetooth.CharacteristicConfig, len(svc.Characteristics))
	for i, char := range svc.Characteristics {
		chars[i] = new(bluetooth.Characteristic)
		configs[i] = bluetooth.CharacteristicConfig{
			Handle: chars[i],
			UUID:   bluetooth.New16BitUUID(uint16(char.UUID)),
			Value:  append([]byte(nil), char.Value...),
			Flags:  permissions(char.Flags),
		}
	}
	err := l.adapter.AddService(&bluetooth.Service{
		UUID:            bluetooth.New16BitUUID(uint16(svc.UUID)),
		Characteristics: configs,
	})
	if err != nil {
		return err
	}

	for i, char := range svc.Characteristics {
		h := l.nextHandle
		l.nextHandle++
		l.chars[h] = chars[i]
		if char.Handle != nil {
			*char.Handle = h
		}
	}
	return nil
}

func permissions(p watch.Permissions) bluetooth.CharacteristicPermissions {
	var flags bluetooth.CharacteristicPermissions
	if p.Read() {
		flags |= bluetooth.CharacteristicReadPermission
	}
	if p.Write() {
		flags |= bluetooth.CharacteristicWritePermission
	}
	if p.Notify() {
		flags |= bluetooth.CharacteristicNotifyPermission
	}
	return flags
}

// UpdateValue implements watch.Link. Subscribed peers are notified.
func (l *Link) UpdateValue(h watch.Handle, value []byte) error {
	l.mu.Lock()
	char, ok := l.chars[h]
	l.mu.Unlock()
	if !ok {
		return errUnknownHandle
	}
	_, err := char.Write(value)
	return err
}

// ConfigureAdvertising implements watch.Link. The flags of the payload are
// chosen by the stack, which always advertises as general discoverable.
func (l *Link) ConfigureAdvertising(p watch.AdvertisingPayload, params watch.AdvertisingParams) error {
	if _, err := p.Bytes(); err != nil {
		return err
	}
	if params.Type != watch.AdvertisingConnectableUndirected {
		return errors.Errorf("native: advertising type %d not supported", params.Type)
	}
	opts := bluetooth.AdvertisementOptions{
		LocalName: p.LocalName,
		Interval:  bluetooth.NewDuration(params.Interval),
	}
	for _, uuid := range p.ServiceUUIDs {
		opts.ServiceUUIDs = append(opts.ServiceUUIDs, bluetooth.New16BitUUID(uint16(uuid)))
	}
	return l.adv.Configure(opts)
}

// StartAdvertising implements watch.Link. Some stacks resume advertising on
// their own after a disconnection, so it is stopped first.
func (l *Link) StartAdvertising() error {
	if err := l.adv.Stop(); err != nil {
		l.log.WithError(err).Debug("stop advertising")
	}
	return l.adv.Start()
}

// Connected implements watch.Link.
func (l *Link) Connected() bool {
	return l.connected.Load()
}

// RequestConnectionParams implements watch.Link. The peripheral latency is
// left to the stack.
func (l *Link) RequestConnectionParams(peer watch.Peer, params watch.ConnectionParams) error {
	l.mu.Lock()
	device, ok := l.devices[peer.Address]
	l.mu.Unlock()
	if !ok {
		return errors.Errorf("native: %s not connected", peer)
	}
	return device.RequestConnectionParams(bluetooth.ConnectionParams{
		MinInterval: bluetooth.NewDuration(params.MinInterval),
		MaxInterval: bluetooth.NewDuration(params.MaxInterval),
		Timeout:     bluetooth.NewDuration(params.Timeout),
	})
}
