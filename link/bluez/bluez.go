//go:build linux && !baremetal

// Package bluez implements watch.Link directly on the BlueZ D-Bus API, for
// hosts where the GATT server should be registered as a BlueZ application.
//
// Some documentation for the BlueZ D-Bus interface:
// https://git.kernel.org/pub/scm/bluetooth/bluez.git/tree/doc
package bluez

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/muka/go-bluetooth/api"
	"github.com/muka/go-bluetooth/api/service"
	"github.com/muka/go-bluetooth/bluez/profile/adapter"
	"github.com/muka/go-bluetooth/bluez/profile/advertising"
	"github.com/muka/go-bluetooth/bluez/profile/device"
	"github.com/muka/go-bluetooth/bluez/profile/gatt"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	watch "github.com/nuwatch/modularwatch"
)

var (
	errNotEnabled    = errors.New("bluez: link not enabled")
	errUnknownHandle = errors.New("bluez: unknown attribute handle")
)

// Link is a watch.Link that exposes the services as a BlueZ GATT
// application and advertises through LEAdvertisingManager1.
//
// BlueZ does not report incoming connections to the GATT application.
// Instead, the Connected property of every known device is watched, the way
// a scan watches devices for property changes.
type Link struct {
	adapterID string
	log       logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	adapter *adapter.Adapter1
	app     *service.App

	mu         sync.Mutex
	handler    func(peer watch.Peer, connected bool)
	chars      map[watch.Handle]*service.Char
	nextHandle watch.Handle
	watched    map[dbus.ObjectPath]bool
	peers      map[dbus.ObjectPath]watch.Peer
	registered bool
	props      *advertising.LEAdvertisement1Properties
	cancelAdv  func()
}

var _ watch.Link = (*Link)(nil)

// New returns a link on the given adapter, for example "hci0". An empty id
// selects the default adapter.
func New(adapterID string, log logrus.FieldLogger) *Link {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Link{
		adapterID:  adapterID,
		log:        log.WithField("link", "bluez"),
		chars:      make(map[watch.Handle]*service.Char),
		nextHandle: 1,
		watched:    make(map[dbus.ObjectPath]bool),
		peers:      make(map[dbus.ObjectPath]watch.Peer),
	}
}

// Enable implements watch.Link. It powers the adapter on and starts watching
// devices for connections.
func (l *Link) Enable() (err error) {
	if l.adapter != nil {
		return nil
	}
	if l.adapterID == "" {
		l.adapter, err = api.GetDefaultAdapter()
	} else {
		l.adapter, err = api.GetAdapter(l.adapterID)
	}
	if err != nil {
		return errors.Wrap(err, "bluez: get adapter")
	}
	if l.adapterID, err = l.adapter.GetAdapterID(); err != nil {
		return errors.Wrap(err, "bluez: adapter id")
	}
	if err := l.adapter.SetPowered(true); err != nil {
		return errors.Wrap(err, "bluez: power on")
	}

	l.app, err = service.NewApp(service.AppOptions{AdapterID: l.adapterID})
	if err != nil {
		return errors.Wrap(err, "bluez: create app")
	}

	l.ctx, l.cancel = context.WithCancel(context.Background())
	return l.watchDevices()
}

// Close unregisters the application and stops advertising.
func (l *Link) Close() {
	l.mu.Lock()
	if l.cancelAdv != nil {
		l.cancelAdv()
		l.cancelAdv = nil
	}
	l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	if l.app != nil {
		l.app.Close()
	}
}

func (l *Link) watchDevices() error {
	// Listen for devices that appear later, for example a new central.
	discovered, cancel, err := l.adapter.OnDeviceDiscovered()
	if err != nil {
		return errors.Wrap(err, "bluez: watch devices")
	}

	devices, err := l.adapter.GetDevices()
	if err != nil {
		cancel()
		return errors.Wrap(err, "bluez: list devices")
	}
	for _, dev := range devices {
		l.startWatchingDevice(dev)
	}

	go func() {
		defer cancel()
		for {
			select {
			case <-l.ctx.Done():
				return
			case result, ok := <-discovered:
				if !ok {
					return
				}
				if result.Type != adapter.DeviceAdded {
					continue
				}
				// We only got a DBus object path, so turn that into a Device1 object.
				dev, err := device.NewDevice1(result.Path)
				if err != nil || dev == nil {
					continue
				}
				l.startWatchingDevice(dev)
			}
		}
	}()
	return nil
}

// startWatchingDevice watches dev for changes of its Connected property.
// Errors are ignored: the device has most likely disappeared.
func (l *Link) startWatchingDevice(dev *device.Device1) {
	path := dev.Path()
	l.mu.Lock()
	if l.watched[path] {
		l.mu.Unlock()
		return
	}
	l.watched[path] = true
	l.mu.Unlock()

	ch, err := dev.WatchProperties()
	if err != nil {
		l.mu.Lock()
		delete(l.watched, path)
		l.mu.Unlock()
		return
	}
	if dev.Properties.Connected {
		l.connectionChanged(path, dev.Properties.Address, true)
	}
	go func() {
		for change := range ch {
			if change == nil {
				break
			}
			if change.Name != "Connected" {
				continue
			}
			connected, ok := change.Value.(bool)
			if !ok {
				continue
			}
			l.connectionChanged(path, dev.Properties.Address, connected)
		}
		l.mu.Lock()
		delete(l.watched, path)
		l.mu.Unlock()
	}()
}

func (l *Link) connectionChanged(path dbus.ObjectPath, address string, connected bool) {
	l.mu.Lock()
	_, known := l.peers[path]
	if connected == known {
		l.mu.Unlock()
		return
	}
	peer := watch.Peer{Address: address}
	if connected {
		l.peers[path] = peer
	} else {
		delete(l.peers, path)
	}
	h := l.handler
	l.mu.Unlock()

	if h != nil {
		h(peer, connected)
	}
}

// SetConnectHandler implements watch.Link.
func (l *Link) SetConnectHandler(h func(peer watch.Peer, connected bool)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = h
}

// AddService implements watch.Link. The services are registered with BlueZ
// as one application when advertising first starts.
func (l *Link) AddService(svc *watch.Service) error {
	if l.app == nil {
		return errNotEnabled
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.registered {
		return errors.New("bluez: application already registered")
	}

	bluezService, err := l.app.NewService(svc.UUID.String())
	if err != nil {
		return err
	}
	chars := make([]*service.Char, len(svc.Characteristics))
	for i, char := range svc.Characteristics {
		c, err := bluezService.NewChar(char.UUID.String())
		if err != nil {
			return err
		}
		c.Properties.Flags = flags(char.Flags)
		c.Properties.Value = append([]byte(nil), char.Value...)
		c.OnRead(service.CharReadCallback(func(c *service.Char, options map[string]interface{}) ([]byte, error) {
			l.mu.Lock()
			defer l.mu.Unlock()
			return append([]byte(nil), c.Properties.Value...), nil
		}))
		if err := bluezService.AddChar(c); err != nil {
			return err
		}
		chars[i] = c
	}
	if err := l.app.AddService(bluezService); err != nil {
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

func flags(p watch.Permissions) []string {
	var f []string
	if p.Read() {
		f = append(f, gatt.FlagCharacteristicRead)
	}
	if p.Write() {
		f = append(f, gatt.FlagCharacteristicWrite)
	}
	if p.Notify() {
		f = append(f, gatt.FlagCharacteristicNotify)
	}
	return f
}

// UpdateValue implements watch.Link. Setting the Value property emits
// PropertiesChanged, which BlueZ turns into a notification for subscribed
// centrals.
func (l *Link) UpdateValue(h watch.Handle, value []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.chars[h]
	if !ok {
		return errUnknownHandle
	}
	c.Properties.Value = append([]byte(nil), value...)
	if !l.registered {
		return nil
	}
	if derr := c.DBusProperties().Instance().Set(gatt.GattCharacteristic1Interface, "Value", dbus.MakeVariant(c.Properties.Value)); derr != nil {
		return derr
	}
	return nil
}

// ConfigureAdvertising implements watch.Link.
//
// BlueZ composes the advertising data itself and does not allow the interval
// to be set, so only the name and the service list are passed on.
func (l *Link) ConfigureAdvertising(p watch.AdvertisingPayload, params watch.AdvertisingParams) error {
	if _, err := p.Bytes(); err != nil {
		return err
	}
	props := &advertising.LEAdvertisement1Properties{
		Type:      advertisementType(params.Type),
		Timeout:   1<<16 - 1,
		LocalName: p.LocalName,
	}
	for _, uuid := range p.ServiceUUIDs {
		props.ServiceUUIDs = append(props.ServiceUUIDs, uuid.String())
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.props = props
	return nil
}

func advertisementType(t watch.AdvertisingType) string {
	if t == watch.AdvertisingConnectableUndirected {
		return advertising.AdvertisementTypePeripheral
	}
	return advertising.AdvertisementTypeBroadcast
}

// StartAdvertising implements watch.Link. A previously exposed advertisement
// is withdrawn first.
func (l *Link) StartAdvertising() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.adapter == nil {
		return errNotEnabled
	}
	if l.props == nil {
		return errors.New("bluez: advertising not configured")
	}
	if !l.registered {
		if err := l.app.Run(); err != nil {
			return errors.Wrap(err, "bluez: register application")
		}
		l.registered = true
	}
	if l.cancelAdv != nil {
		l.cancelAdv()
		l.cancelAdv = nil
	}
	cancel, err := api.ExposeAdvertisement(l.adapterID, l.props, uint32(l.props.Timeout))
	if err != nil {
		return err
	}
	l.cancelAdv = cancel
	return nil
}

// Connected implements watch.Link.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.peers) > 0
}

// RequestConnectionParams implements watch.Link. BlueZ negotiates the
// connection parameters of peripheral links itself.
func (l *Link) RequestConnectionParams(peer watch.Peer, params watch.ConnectionParams) error {
	return errors.New("bluez: connection parameter requests not supported")
}
