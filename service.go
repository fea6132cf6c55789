package watch

import (
	"math"

	"github.com/pkg/errors"
)

// ErrBatteryLevel is returned for battery levels above 100%.
var ErrBatteryLevel = errors.New("watch: battery level out of range")

// AttributeService exposes a single byte value as a readable, notifiable
// characteristic of its own service.
//
// Only the first AttributeService constructed for a service UUID writes the
// service to the attribute table. Later instances share that registration:
// they update the same attribute handle and report Owner() == false.
//
// The value is owned by the main loop: Update must not be called concurrently.
type AttributeService struct {
	link   Link
	uuid   UUID
	char   UUID
	handle Handle
	owner  bool
	value  [1]byte
}

// NewAttributeService registers a service with one read+notify characteristic
// holding initial, unless a service with the same UUID is already registered.
func NewAttributeService(reg *Registry, service, characteristic UUID, initial byte) (*AttributeService, error) {
	s := &AttributeService{
		link:  reg.Link(),
		uuid:  service,
		char:  characteristic,
		value: [1]byte{initial},
	}
	registration, added, err := reg.AddServiceOnce(&Service{
		UUID: service,
		Characteristics: []Characteristic{
			{
				UUID:   characteristic,
				Value:  []byte{initial},
				Flags:  PermissionRead | PermissionNotify,
				Handle: &s.handle,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	if !added {
		s.handle = registration.Handles[0]
	}
	s.owner = added
	return s, nil
}

// Update stores v and passes it to the link. The link is informed even when
// no peer is connected.
func (s *AttributeService) Update(v byte) error {
	s.value[0] = v
	return s.link.UpdateValue(s.handle, []byte{v})
}

// Value returns the last stored value.
func (s *AttributeService) Value() byte {
	return s.value[0]
}

// UUID returns the service UUID.
func (s *AttributeService) UUID() UUID {
	return s.uuid
}

// Handle returns the attribute handle of the characteristic value.
func (s *AttributeService) Handle() Handle {
	return s.handle
}

// Owner reports whether constructing this instance registered the service.
func (s *AttributeService) Owner() bool {
	return s.owner
}

// NewCounterService returns the counter service holding initial.
func NewCounterService(reg *Registry, initial byte) (*AttributeService, error) {
	return NewAttributeService(reg, ServiceUUIDCounter, CharacteristicUUIDCount, initial)
}

// BatteryService is the standard battery service: the battery level in
// percent, from 0 to 100.
type BatteryService struct {
	*AttributeService
}

// NewBatteryService returns the battery service with the given level.
func NewBatteryService(reg *Registry, level uint8) (*BatteryService, error) {
	if level > 100 {
		return nil, ErrBatteryLevel
	}
	s, err := NewAttributeService(reg, ServiceUUIDBattery, CharacteristicUUIDBatteryLevel, level)
	if err != nil {
		return nil, err
	}
	return &BatteryService{s}, nil
}

// SetLevel updates the battery level. Levels above 100 are rejected and leave
// the published value unchanged.
func (s *BatteryService) SetLevel(level uint8) error {
	if level > 100 {
		return ErrBatteryLevel
	}
	return s.Update(level)
}

// TemperatureToByte converts a temperature to the single byte published by
// the counter service. It truncates toward zero and clamps to 0..255.
func TemperatureToByte(celsius float32) byte {
	switch {
	case math.IsNaN(float64(celsius)) || celsius <= 0:
		return 0
	case celsius >= 255:
		return 255
	}
	return byte(celsius)
}
