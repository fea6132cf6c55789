package native

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"tinygo.org/x/bluetooth"

	watch "github.com/nuwatch/modularwatch"
)

func TestPermissions(t *testing.T) {
	for _, tc := range []struct {
		in   watch.Permissions
		want bluetooth.CharacteristicPermissions
	}{
		{0, 0},
		{watch.PermissionRead, bluetooth.CharacteristicReadPermission},
		{watch.PermissionRead | watch.PermissionNotify,
			bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission},
		{watch.PermissionWrite, bluetooth.CharacteristicWritePermission},
	} {
		if got := permissions(tc.in); got != tc.want {
			t.Errorf("permissions(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestUpdateUnknownHandle(t *testing.T) {
	l := New(nil, nil)
	if err := l.UpdateValue(7, []byte{1}); err != errUnknownHandle {
		t.Errorf("UpdateValue on unknown handle: got %v, want %v", err, errUnknownHandle)
	}
	if l.Connected() {
		t.Error("new link reports a connection")
	}
}

func TestConnectionEventsCollapse(t *testing.T) {
	const (
		c = true
		d = false
	)
	for _, tc := range []struct {
		name string
		in   []bool
		want []bool
	}{
		{"none", nil, nil},
		{"connect", []bool{c}, []bool{c}},
		{"disconnect", []bool{d}, []bool{d}},
		{"connect disconnect", []bool{c, d}, []bool{d}},
		{"disconnect connect", []bool{d, c}, []bool{d, c}},
		{"churn ending connected", []bool{c, d, c, d, c}, []bool{d, c}},
		{"churn ending disconnected", []bool{c, d, c, d, c, d}, []bool{d}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			q := newConnectionEvents()
			for _, connected := range tc.in {
				q.push(bluetooth.Device{}, connected)
			}
			var got []bool
			for _, ev := range q.take() {
				got = append(got, ev.connected)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("delivered %v, want %v", got, tc.want)
			}
			if rest := q.take(); len(rest) != 0 {
				t.Errorf("second take returned %d events", len(rest))
			}
			if len(tc.in) > 0 && len(q.wake) != 1 {
				t.Errorf("wake holds %d signals, want 1", len(q.wake))
			}
		})
	}
}

func TestDispatchWhileHandlerBusy(t *testing.T) {
	l := New(nil, nil)

	var (
		mu  sync.Mutex
		got []bool
	)
	first := make(chan struct{})
	release := make(chan struct{})
	l.SetConnectHandler(func(peer watch.Peer, connected bool) {
		mu.Lock()
		got = append(got, connected)
		n := len(got)
		mu.Unlock()
		if n == 1 {
			close(first)
			<-release
		}
	})
	go l.dispatch()

	l.events.push(bluetooth.Device{}, true)
	<-first
	// The handler is still running: none of these may block or get lost.
	for i := 0; i < 8; i++ {
		l.events.push(bluetooth.Device{}, false)
		l.events.push(bluetooth.Device{}, true)
	}
	l.events.push(bluetooth.Device{}, false)
	close(release)

	want := []bool{true, false}
	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= len(want) || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("handler saw %v, want %v", got, want)
	}
}
