package native

import (
	"sync"

	"tinygo.org/x/bluetooth"
)

type connectEvent struct {
	device    bluetooth.Device
	connected bool
}

// connectionEvents carries connection changes from the stack's connect
// handler to the dispatch goroutine.
//
// Changes that arrive while the dispatcher is busy collapse into at most one
// disconnection followed by at most one connection, so the dispatcher always
// ends in the latest state and never misses a disconnection. push holds the
// lock only to store a pointer and never blocks on the dispatcher.
type connectionEvents struct {
	mu           sync.Mutex
	disconnected *bluetooth.Device
	connected    *bluetooth.Device

	wake chan struct{}
}

func newConnectionEvents() *connectionEvents {
	return &connectionEvents{wake: make(chan struct{}, 1)}
}

func (q *connectionEvents) push(device bluetooth.Device, connected bool) {
	q.mu.Lock()
	if connected {
		q.connected = &device
	} else {
		// A connection not delivered yet is superseded.
		q.disconnected = &device
		q.connected = nil
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// take returns the pending changes in delivery order and clears them.
func (q *connectionEvents) take() []connectEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	var events []connectEvent
	if q.disconnected != nil {
		events = append(events, connectEvent{*q.disconnected, false})
	}
	if q.connected != nil {
		events = append(events, connectEvent{*q.connected, true})
	}
	q.disconnected, q.connected = nil, nil
	return events
}
