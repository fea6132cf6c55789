package watch

// This file implements the 16-bit UUIDs used by the watch. Only UUIDs derived
// from the Bluetooth base UUID are supported.

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var errInvalidUUID = errors.New("watch: invalid UUID")

// UUID is a 16-bit Bluetooth UUID. Its full 128-bit form is derived from the
// Bluetooth base UUID 00000000-0000-1000-8000-00805F9B34FB.
type UUID uint16

const baseUUIDSuffix = "-0000-1000-8000-00805f9b34fb"

// Services exposed by the watch.
const (
	// The counter service is not assigned by the Bluetooth SIG.
	ServiceUUIDCounter           UUID = 0xA000
	ServiceUUIDBattery           UUID = 0x180F
	ServiceUUIDDeviceInformation UUID = 0x180A
)

// Characteristics exposed by the watch.
const (
	CharacteristicUUIDCount            UUID = 0xA001
	CharacteristicUUIDBatteryLevel     UUID = 0x2A19
	CharacteristicUUIDManufacturerName UUID = 0x2A29
	CharacteristicUUIDModelNumber      UUID = 0x2A24
	CharacteristicUUIDSerialNumber     UUID = 0x2A25
	CharacteristicUUIDHardwareRevision UUID = 0x2A27
	CharacteristicUUIDFirmwareRevision UUID = 0x2A26
	CharacteristicUUIDSoftwareRevision UUID = 0x2A28
)

// String returns the full 128-bit form of the UUID, in lower case.
func (uuid UUID) String() string {
	const hexDigits = "0123456789abcdef"
	var buf [8]byte
	copy(buf[:4], "0000")
	for i := 0; i < 4; i++ {
		buf[7-i] = hexDigits[(uuid>>(4*i))&0xf]
	}
	return string(buf[:]) + baseUUIDSuffix
}

// Bytes returns the UUID in the little endian order used on air.
func (uuid UUID) Bytes() [2]byte {
	return [2]byte{byte(uuid), byte(uuid >> 8)}
}

// ParseUUID parses either the 4 hex digit short form ("180f") or the 128-bit
// form of a UUID derived from the Bluetooth base UUID. Case is ignored.
func ParseUUID(s string) (UUID, error) {
	s = strings.ToLower(s)
	switch len(s) {
	case 4:
	case 36:
		if !strings.HasPrefix(s, "0000") || s[8:] != baseUUIDSuffix {
			return 0, errInvalidUUID
		}
		s = s[4:8]
	default:
		return 0, errInvalidUUID
	}
	n, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, errInvalidUUID
	}
	return UUID(n), nil
}
