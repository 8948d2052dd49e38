//go:build linux

package platform

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// linux/vt.h
const (
	vtGetState = 0x5603
	vtActivate = 0x5606
)

type vtStat struct {
	active uint16
	signal uint16
	state  uint16
}

const (
	// vtSwitchTimeout bounds how long a switch may take to complete
	vtSwitchTimeout = 3 * time.Second
	vtPollInterval  = 20 * time.Millisecond
)

// VTConsole switches virtual terminals through the console device ioctls,
// falling back to the fgconsole/chvt tools when the device cannot be opened.
type VTConsole struct {
	device string
}

// NewConsole creates a console controller for a device such as /dev/tty0
func NewConsole(device string) *VTConsole {
	return &VTConsole{device: device}
}

func (c *VTConsole) ActiveVT() (int, error) {
	f, err := os.OpenFile(c.device, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return c.activeViaTool()
	}
	defer f.Close()

	vt, err := vtActive(f.Fd())
	if err != nil {
		return c.activeViaTool()
	}
	return vt, nil
}

func vtActive(fd uintptr) (int, error) {
	var st vtStat
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, vtGetState, uintptr(unsafe.Pointer(&st)))
	if errno != 0 {
		return 0, errno
	}
	return int(st.active), nil
}

func (c *VTConsole) Activate(vt int) error {
	if vt <= 0 {
		return fmt.Errorf("invalid virtual terminal %d", vt)
	}

	f, err := os.OpenFile(c.device, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return c.activateViaTool(vt)
	}
	defer f.Close()

	if err := unix.IoctlSetInt(int(f.Fd()), vtActivate, vt); err != nil {
		return c.activateViaTool(vt)
	}

	// VT_WAITACTIVE cannot be cancelled, so poll the state instead
	return waitActive(vt, vtSwitchTimeout, vtPollInterval, func() (int, error) {
		return vtActive(f.Fd())
	})
}

func (c *VTConsole) activeViaTool() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), vtSwitchTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "fgconsole").Output()
	if err != nil {
		return 0, fmt.Errorf("failed to read active VT: %w", err)
	}
	vt, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("unexpected fgconsole output %q: %w", out, err)
	}
	return vt, nil
}

func (c *VTConsole) activateViaTool(vt int) error {
	ctx, cancel := context.WithTimeout(context.Background(), vtSwitchTimeout)
	defer cancel()

	if out, err := exec.CommandContext(ctx, "chvt", strconv.Itoa(vt)).CombinedOutput(); err != nil {
		return fmt.Errorf("failed to switch to VT%d: %w (%s)", vt, err, strings.TrimSpace(string(out)))
	}
	return nil
}
