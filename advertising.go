package watch

import (
	"time"

	"github.com/pkg/errors"
)

// MaxAdvertisingPayload is the maximum length of a legacy advertising packet.
const MaxAdvertisingPayload = 31

var errAdvertisementPacketTooBig = errors.New("watch: advertisement packet overflows")

// Advertising data types.
const (
	adTypeFlags             = 0x01
	adTypeCompleteUUID16    = 0x03
	adTypeCompleteLocalName = 0x09
)

// Advertising flags.
const (
	FlagLEGeneralDiscoverable = 0x02
	FlagBREDRNotSupported     = 0x04
)

// AdvertisingPayload is the content of the advertising packet. It is built
// once at startup and sent unchanged on every re-advertisement.
type AdvertisingPayload struct {
	Flags        uint8
	ServiceUUIDs []UUID
	LocalName    string
}

// NewAdvertisingPayload returns a general discoverable, LE only payload.
func NewAdvertisingPayload(name string, services ...UUID) AdvertisingPayload {
	return AdvertisingPayload{
		Flags:        FlagLEGeneralDiscoverable | FlagBREDRNotSupported,
		ServiceUUIDs: append([]UUID(nil), services...),
		LocalName:    name,
	}
}

// Bytes encodes the payload as AD structures: flags, the complete list of
// 16-bit service UUIDs, and the complete local name, in that order.
func (p AdvertisingPayload) Bytes() ([]byte, error) {
	buf := make([]byte, 0, MaxAdvertisingPayload)
	if p.Flags != 0 {
		buf = append(buf, 2, adTypeFlags, p.Flags)
	}
	if len(p.ServiceUUIDs) != 0 {
		buf = append(buf, byte(1+2*len(p.ServiceUUIDs)), adTypeCompleteUUID16)
		for _, uuid := range p.ServiceUUIDs {
			b := uuid.Bytes()
			buf = append(buf, b[0], b[1])
		}
	}
	if p.LocalName != "" {
		buf = append(buf, byte(1+len(p.LocalName)), adTypeCompleteLocalName)
		buf = append(buf, p.LocalName...)
	}
	if len(buf) > MaxAdvertisingPayload {
		return nil, errAdvertisementPacketTooBig
	}
	return buf, nil
}

// Equal reports whether two payloads carry the same content.
func (p AdvertisingPayload) Equal(q AdvertisingPayload) bool {
	if p.Flags != q.Flags || p.LocalName != q.LocalName || len(p.ServiceUUIDs) != len(q.ServiceUUIDs) {
		return false
	}
	for i := range p.ServiceUUIDs {
		if p.ServiceUUIDs[i] != q.ServiceUUIDs[i] {
			return false
		}
	}
	return true
}

// AdvertisingType is the kind of advertising PDU to send.
type AdvertisingType uint8

const (
	// AdvertisingConnectableUndirected accepts connections from any central.
	AdvertisingConnectableUndirected AdvertisingType = iota
	AdvertisingScannableUndirected
	AdvertisingNonConnectable
)

// AdvertisingParams configures how the payload is advertised.
type AdvertisingParams struct {
	Type     AdvertisingType
	Interval time.Duration
}

// AdvertisingInterval is an advertising interval in 0.625ms units, as used on
// air and by most controllers.
type AdvertisingInterval uint32

// NewAdvertisingInterval converts a duration to 0.625ms units.
func NewAdvertisingInterval(d time.Duration) AdvertisingInterval {
	return AdvertisingInterval(d.Milliseconds() * 8 / 5)
}
