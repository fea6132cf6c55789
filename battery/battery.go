// Package battery estimates the remaining battery charge for the battery
// service.
package battery

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ADC is an analog input, as provided by machine.ADC.
type ADC interface {
	Get() uint16
}

// ADCMonitor reads the battery voltage through a resistor divider and maps
// it linearly between Empty and Full.
type ADCMonitor struct {
	adc ADC

	Reference float32 // ADC reference voltage, in volts
	Divider   float32 // battery voltage / ADC input voltage
	Empty     float32 // volts at 0%
	Full      float32 // volts at 100%
}

// NewADCMonitor returns a monitor for a single-cell LiPo behind a 1:2
// divider, as on most nRF52 boards.
func NewADCMonitor(adc ADC) *ADCMonitor {
	return &ADCMonitor{
		adc:       adc,
		Reference: 3.3,
		Divider:   2,
		Empty:     3.3,
		Full:      4.2,
	}
}

// Voltage returns the battery voltage.
func (m *ADCMonitor) Voltage() float32 {
	return float32(m.adc.Get()) / 65535 * m.Reference * m.Divider
}

// BatteryLevel returns the charge in percent.
func (m *ADCMonitor) BatteryLevel() (uint8, error) {
	return Percent(m.Voltage(), m.Empty, m.Full), nil
}

// Percent maps v linearly from empty..full to 0..100, clamped.
func Percent(v, empty, full float32) uint8 {
	if full <= empty || v <= empty {
		return 0
	}
	if v >= full {
		return 100
	}
	return uint8((v - empty) / (full - empty) * 100)
}

// DefaultSysfsRoot is where Linux exposes power supplies.
const DefaultSysfsRoot = "/sys/class/power_supply"

// SysfsMonitor reads the capacity a Linux power supply driver reports.
type SysfsMonitor struct {
	path string
}

// NewSysfsMonitor returns a monitor for the capacity file at path. An empty
// path selects the first battery under DefaultSysfsRoot.
func NewSysfsMonitor(path string) (*SysfsMonitor, error) {
	if path == "" {
		matches, err := filepath.Glob(filepath.Join(DefaultSysfsRoot, "BAT*", "capacity"))
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, errors.Errorf("no battery in %s", DefaultSysfsRoot)
		}
		path = matches[0]
	}
	return &SysfsMonitor{path: path}, nil
}

// Path returns the capacity file being read.
func (m *SysfsMonitor) Path() string {
	return m.path
}

// BatteryLevel returns the charge in percent.
func (m *SysfsMonitor) BatteryLevel() (uint8, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return 0, errors.Wrap(err, "read battery capacity")
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", m.path)
	}
	if n < 0 {
		n = 0
	} else if n > 100 {
		n = 100
	}
	return uint8(n), nil
}
