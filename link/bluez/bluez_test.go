//go:build linux && !baremetal

package bluez

import (
	"reflect"
	"testing"

	"github.com/muka/go-bluetooth/bluez/profile/advertising"
	"github.com/muka/go-bluetooth/bluez/profile/gatt"

	watch "github.com/nuwatch/modularwatch"
)

func TestFlags(t *testing.T) {
	for _, tc := range []struct {
		in   watch.Permissions
		want []string
	}{
		{0, nil},
		{watch.PermissionRead, []string{gatt.FlagCharacteristicRead}},
		{watch.PermissionRead | watch.PermissionNotify,
			[]string{gatt.FlagCharacteristicRead, gatt.FlagCharacteristicNotify}},
		{watch.PermissionWrite, []string{gatt.FlagCharacteristicWrite}},
	} {
		if got := flags(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("flags(%d) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAdvertisementType(t *testing.T) {
	if got := advertisementType(watch.AdvertisingConnectableUndirected); got != advertising.AdvertisementTypePeripheral {
		t.Errorf("connectable advertising mapped to %q", got)
	}
	if got := advertisementType(watch.AdvertisingNonConnectable); got != advertising.AdvertisementTypeBroadcast {
		t.Errorf("non-connectable advertising mapped to %q", got)
	}
}

func TestConnectionTracking(t *testing.T) {
	l := New("hci0", nil)
	var events []bool
	l.SetConnectHandler(func(peer watch.Peer, connected bool) {
		if peer.Address != "11:22:33:44:55:66" {
			t.Errorf("unexpected peer %s", peer)
		}
		events = append(events, connected)
	})

	const path = "/org/bluez/hci0/dev_11_22_33_44_55_66"
	l.connectionChanged(path, "11:22:33:44:55:66", true)
	l.connectionChanged(path, "11:22:33:44:55:66", true)
	if !l.Connected() {
		t.Fatal("expected link to be connected")
	}
	l.connectionChanged(path, "11:22:33:44:55:66", false)
	if l.Connected() {
		t.Error("expected link to be disconnected")
	}
	if !reflect.DeepEqual(events, []bool{true, false}) {
		t.Errorf("events = %v, want [true false]", events)
	}
}

func TestNotEnabled(t *testing.T) {
	l := New("", nil)
	if err := l.AddService(&watch.Service{UUID: watch.ServiceUUIDCounter}); err != errNotEnabled {
		t.Errorf("AddService before Enable: got %v", err)
	}
	if err := l.StartAdvertising(); err != errNotEnabled {
		t.Errorf("StartAdvertising before Enable: got %v", err)
	}
	if err := l.UpdateValue(1, []byte{1}); err != errUnknownHandle {
		t.Errorf("UpdateValue on unknown handle: got %v", err)
	}
}
