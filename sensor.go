package watch

import "github.com/pkg/errors"

// Bus errors a Sensor may report. A failed read is not retried: the poll that
// issued it publishes nothing and the next tick tries again.
var (
	ErrBusBusy    = errors.New("watch: sensor bus busy")
	ErrNoAck      = errors.New("watch: sensor did not acknowledge")
	ErrBusTimeout = errors.New("watch: sensor bus timeout")
)

// Sensor is a polled temperature source. ReadTemperature performs a bus
// transaction: it may block for a bounded time and must never be called from
// the timer callback.
type Sensor interface {
	ReadTemperature() (celsius float32, err error)
}

// BatteryMonitor reports the remaining battery charge in percent.
type BatteryMonitor interface {
	BatteryLevel() (uint8, error)
}
