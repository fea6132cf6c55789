//go:build linux

package i2cdev

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"

	watch "github.com/nuwatch/modularwatch"
)

func TestBusError(t *testing.T) {
	for _, tc := range []struct {
		errno unix.Errno
		want  error
	}{
		{unix.EBUSY, watch.ErrBusBusy},
		{unix.EAGAIN, watch.ErrBusBusy},
		{unix.ENXIO, watch.ErrNoAck},
		{unix.EREMOTEIO, watch.ErrNoAck},
		{unix.ETIMEDOUT, watch.ErrBusTimeout},
		{unix.EIO, unix.EIO},
	} {
		err := busError(tc.errno)
		assert.Equal(t, tc.want, errors.Cause(err), "errno %v", tc.errno)
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := OpenPath("/dev/i2c-does-not-exist")
	assert.Error(t, err)
}

func TestClosedBus(t *testing.T) {
	b := &Bus{fd: -1, path: "/dev/i2c-9"}
	assert.NoError(t, b.Close())
	assert.Error(t, b.Tx(0x5A, []byte{0x07}, make([]byte, 3)))
	assert.NoError(t, b.Tx(0x5A, nil, nil))
}
