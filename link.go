package watch

import "time"

// Link is the wireless link controller: the BLE stack that owns the
// connection state machine and the attribute table. The watch core only calls
// into it.
//
// Implementations live in link/native (tinygo.org/x/bluetooth), link/bluez
// (BlueZ over D-Bus) and sim (in memory).
type Link interface {
	// Enable brings up the link controller. It must be called before any
	// other method.
	Enable() error

	// SetConnectHandler sets the function called whenever a peer connects or
	// disconnects. It must be called before advertising starts.
	SetConnectHandler(h func(peer Peer, connected bool))

	// AddService writes a service to the attribute table and stores the
	// handle of every characteristic value in Characteristic.Handle.
	AddService(svc *Service) error

	// UpdateValue changes the value of an attribute. The link decides whether
	// a connected peer receives a notification.
	UpdateValue(h Handle, value []byte) error

	// ConfigureAdvertising sets the advertising payload and parameters used by
	// the next StartAdvertising.
	ConfigureAdvertising(p AdvertisingPayload, params AdvertisingParams) error

	// StartAdvertising starts advertising with the configured payload. Calling
	// it while already advertising restarts advertising.
	StartAdvertising() error

	// Connected returns whether a peer is currently linked.
	Connected() bool

	// RequestConnectionParams asks the connected peer to use different
	// connection parameters. The central is free to reject the request.
	RequestConnectionParams(peer Peer, params ConnectionParams) error
}

// Peer identifies the remote central of a connection.
type Peer struct {
	Address string
}

func (p Peer) String() string {
	if p.Address == "" {
		return "<unknown>"
	}
	return p.Address
}

// Handle is the attribute handle of a characteristic value.
type Handle uint16

// Permissions lists the operations a peer may perform on a characteristic.
type Permissions uint8

// Characteristic permission flags.
const (
	PermissionRead Permissions = 1 << iota
	PermissionWrite
	PermissionNotify
)

// Read returns whether peers may read the characteristic.
func (p Permissions) Read() bool { return p&PermissionRead != 0 }

// Write returns whether peers may write the characteristic.
func (p Permissions) Write() bool { return p&PermissionWrite != 0 }

// Notify returns whether peers may subscribe to notifications.
func (p Permissions) Notify() bool { return p&PermissionNotify != 0 }

// Service is a GATT service to be used in Link.AddService.
type Service struct {
	UUID
	Characteristics []Characteristic
}

// Characteristic is a single characteristic of a Service. If Handle is not
// nil, the link stores the handle of the value attribute in it.
type Characteristic struct {
	UUID
	Value  []byte
	Flags  Permissions
	Handle *Handle
}

// ConnectionParams are the connection parameters a peripheral can request
// once a connection is established.
type ConnectionParams struct {
	MinInterval time.Duration
	MaxInterval time.Duration
	Timeout     time.Duration // supervision timeout
	Latency     uint16        // peripheral latency, in connection events
}

// DefaultConnectionParams favor battery life over latency.
var DefaultConnectionParams = ConnectionParams{
	MinInterval: 250 * time.Millisecond,
	MaxInterval: 350 * time.Millisecond,
	Timeout:     6 * time.Second,
	Latency:     4,
}
