// Package tmp36 implements a driver for the TMP36 analog temperature sensor.
package tmp36

// ADC is an analog input, as provided by machine.ADC. Get returns a value
// scaled to the full uint16 range.
type ADC interface {
	Get() uint16
}

// DefaultReference is the ADC reference voltage of most boards.
const DefaultReference = 3.3

// Device is a TMP36 on an analog input.
type Device struct {
	adc ADC

	// Reference is the voltage of a full-scale ADC reading.
	Reference float32
}

// New returns a TMP36 on adc, which must already be configured.
func New(adc ADC) *Device {
	return &Device{adc: adc, Reference: DefaultReference}
}

// Voltage returns the output voltage of the sensor.
func (d *Device) Voltage() float32 {
	return float32(d.adc.Get()) / 65535 * d.Reference
}

// ReadTemperature returns the temperature in degrees Celsius. An analog read
// cannot fail, so the error is always nil.
func (d *Device) ReadTemperature() (float32, error) {
	return (d.Voltage() - 0.5) * 100, nil
}

// Fahrenheit converts degrees Celsius to degrees Fahrenheit.
func Fahrenheit(celsius float32) float32 {
	return celsius*9/5 + 32
}
