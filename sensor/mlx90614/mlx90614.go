// Package mlx90614 implements a driver for the MLX90614 infrared thermometer,
// read over its SMBus-compatible I2C interface.
//
// Datasheet: https://www.melexis.com/en/documents/documentation/datasheets/datasheet-mlx90614
package mlx90614

import (
	"github.com/pkg/errors"
	"tinygo.org/x/drivers"
)

// Address is the factory default SMBus address.
const Address = 0x5A

// RAM registers.
const (
	RegAmbient = 0x06
	RegObject1 = 0x07
	RegObject2 = 0x08
)

var (
	ErrChecksum   = errors.New("mlx90614: PEC mismatch")
	ErrSensorFlag = errors.New("mlx90614: sensor reported an error")
)

// Device wraps an I2C connection to an MLX90614.
type Device struct {
	bus     drivers.I2C
	Address uint16
	buf     [3]byte
}

// New creates a new MLX90614 connection. The I2C bus must already be
// configured, at no more than 100kHz.
func New(bus drivers.I2C) *Device {
	return &Device{bus: bus, Address: Address}
}

// ReadTemperature returns the object temperature in degrees Celsius.
func (d *Device) ReadTemperature() (float32, error) {
	return d.readCelsius(RegObject1)
}

// ReadAmbientTemperature returns the die temperature in degrees Celsius.
func (d *Device) ReadAmbientTemperature() (float32, error) {
	return d.readCelsius(RegAmbient)
}

func (d *Device) readCelsius(reg uint8) (float32, error) {
	raw, err := d.readRegister(reg)
	if err != nil {
		return 0, err
	}
	return Celsius(raw), nil
}

// readRegister reads a 16-bit RAM register and checks its PEC byte.
func (d *Device) readRegister(reg uint8) (uint16, error) {
	if err := d.bus.Tx(d.Address, []byte{reg}, d.buf[:]); err != nil {
		return 0, err
	}
	addr := uint8(d.Address << 1)
	if pec([]byte{addr, reg, addr | 1, d.buf[0], d.buf[1]}) != d.buf[2] {
		return 0, ErrChecksum
	}
	raw := uint16(d.buf[0]) | uint16(d.buf[1])<<8
	if raw&0x8000 != 0 {
		return 0, ErrSensorFlag
	}
	return raw, nil
}

// Celsius converts a raw temperature register value (0.02K per LSB) to
// degrees Celsius.
func Celsius(raw uint16) float32 {
	return float32(raw)*0.02 - 273.15
}

// pec computes the SMBus packet error code: CRC-8 with polynomial
// x^8+x^2+x+1, initial value 0.
func pec(data []byte) uint8 {
	var crc uint8
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x07
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
