//go:build linux

package platform

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	keyMax = 0x2ff

	iocRead  = 2
	iocShift = 30
)

// struct input_event is a struct timeval followed by type, code and value
var (
	timevalSize = int(unsafe.Sizeof(unix.Timeval{}))
	eventSize   = timevalSize + 8
)

func eviocgname(size int) uintptr {
	return ioc(iocRead, 'E', 0x06, size)
}

func eviocgbit(ev uint16, size int) uintptr {
	return ioc(iocRead, 'E', 0x20+uintptr(ev), size)
}

func ioc(dir uintptr, typ byte, nr uintptr, size int) uintptr {
	return dir<<iocShift | uintptr(size)<<16 | uintptr(typ)<<8 | nr
}

type evdevDevice struct {
	f    *os.File
	name string
	keys []byte
	buf  []byte
}

// OpenInputDevice opens an evdev character device such as /dev/input/event0
func OpenInputDevice(path string) (InputDevice, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open input device %s: %w", path, err)
	}

	d := &evdevDevice{f: f, buf: make([]byte, eventSize)}

	name := make([]byte, 256)
	if err := d.ioctl(eviocgname(len(name)), name); err == nil {
		d.name = cString(name)
	} else {
		d.name = path
	}

	keys := make([]byte, keyMax/8+1)
	if err := d.ioctl(eviocgbit(EvKey, len(keys)), keys); err == nil {
		d.keys = keys
	}

	return d, nil
}

func (d *evdevDevice) Name() string {
	return d.name
}

func (d *evdevDevice) HasKey(code uint16) bool {
	// Without a capability table, assume every key may be reported.
	if d.keys == nil {
		return true
	}
	idx := int(code) / 8
	if idx >= len(d.keys) {
		return false
	}
	return d.keys[idx]&(1<<(code%8)) != 0
}

func (d *evdevDevice) ReadEvent() (InputEvent, error) {
	if _, err := io.ReadFull(d.f, d.buf); err != nil {
		return InputEvent{}, err
	}

	var sec, usec int64
	if timevalSize == 16 {
		sec = int64(binary.NativeEndian.Uint64(d.buf[0:8]))
		usec = int64(binary.NativeEndian.Uint64(d.buf[8:16]))
	} else {
		sec = int64(int32(binary.NativeEndian.Uint32(d.buf[0:4])))
		usec = int64(int32(binary.NativeEndian.Uint32(d.buf[4:8])))
	}

	rest := d.buf[timevalSize:]
	return InputEvent{
		Time:  time.Unix(sec, usec*1000),
		Type:  binary.NativeEndian.Uint16(rest[0:2]),
		Code:  binary.NativeEndian.Uint16(rest[2:4]),
		Value: int32(binary.NativeEndian.Uint32(rest[4:8])),
	}, nil
}

func (d *evdevDevice) SetDeadline(t time.Time) error {
	return d.f.SetReadDeadline(t)
}

func (d *evdevDevice) Close() error {
	return d.f.Close()
}

func (d *evdevDevice) ioctl(req uintptr, buf []byte) error {
	raw, err := d.f.SyscallConn()
	if err != nil {
		return err
	}

	var errno unix.Errno
	ctrlErr := raw.Control(func(fd uintptr) {
		_, _, errno = unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(unsafe.Pointer(&buf[0])))
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	if errno != 0 {
		return errno
	}
	return nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
