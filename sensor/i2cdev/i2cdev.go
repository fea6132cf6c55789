//go:build linux

// Package i2cdev gives access to a Linux I2C adapter through /dev/i2c-N. A
// Bus satisfies tinygo.org/x/drivers.I2C, so TinyGo drivers run unchanged on
// a Raspberry Pi or any other Linux board.
package i2cdev

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
	"tinygo.org/x/drivers"

	watch "github.com/nuwatch/modularwatch"
)

// From <linux/i2c-dev.h> and <linux/i2c.h>.
const (
	ioctlRDWR = 0x0707
	flagRead  = 0x0001
)

// i2cMsg mirrors struct i2c_msg.
type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   *byte
}

// rdwrData mirrors struct i2c_rdwr_ioctl_data.
type rdwrData struct {
	msgs  *i2cMsg
	nmsgs uint32
}

// Bus is an open I2C adapter.
type Bus struct {
	mu   sync.Mutex
	fd   int
	path string
}

var _ drivers.I2C = (*Bus)(nil)

// Open opens /dev/i2c-n.
func Open(n int) (*Bus, error) {
	return OpenPath(fmt.Sprintf("/dev/i2c-%d", n))
}

// OpenPath opens the I2C character device at path.
func OpenPath(path string) (*Bus, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return &Bus{fd: fd, path: path}, nil
}

// Close releases the adapter.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return nil
	}
	err := unix.Close(b.fd)
	b.fd = -1
	return err
}

// Tx performs a write followed by a read with a repeated start, as one
// combined transaction. Either w or r may be empty.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	var msgs [2]i2cMsg
	n := 0
	if len(w) > 0 {
		msgs[n] = i2cMsg{addr: addr, len: uint16(len(w)), buf: &w[0]}
		n++
	}
	if len(r) > 0 {
		msgs[n] = i2cMsg{addr: addr, flags: flagRead, len: uint16(len(r)), buf: &r[0]}
		n++
	}
	if n == 0 {
		return nil
	}
	data := rdwrData{msgs: &msgs[0], nmsgs: uint32(n)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return errors.Errorf("%s: closed", b.path)
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(b.fd), ioctlRDWR, uintptr(unsafe.Pointer(&data)))
	runtime.KeepAlive(w)
	runtime.KeepAlive(r)
	if errno != 0 {
		return busError(errno)
	}
	return nil
}

// busError maps the errno of a failed transfer to the bus errors of the
// watch package.
func busError(errno unix.Errno) error {
	switch errno {
	case unix.EBUSY, unix.EAGAIN:
		return errors.Wrap(watch.ErrBusBusy, errno.Error())
	case unix.ENXIO, unix.EREMOTEIO:
		return errors.Wrap(watch.ErrNoAck, errno.Error())
	case unix.ETIMEDOUT:
		return errors.Wrap(watch.ErrBusTimeout, errno.Error())
	}
	return errno
}
