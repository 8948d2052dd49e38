package display

import (
	"context"
	"fmt"
	"time"

	"retrohint/hintd/platform"
)

// DismissWaiter blocks until the player presses something or the timeout passes
type DismissWaiter interface {
	// WaitForPress reports true on a press, false on timeout. An error means
	// presses cannot be observed at all.
	WaitForPress(ctx context.Context, timeout time.Duration) (bool, error)
}

// DeviceWaiter waits for a key press on a raw input device. It opens its
// own handle so events already consumed by the hotkey listener do not count.
type DeviceWaiter struct {
	Path string
	Open func(path string) (platform.InputDevice, error)
}

func NewDeviceWaiter(path string) *DeviceWaiter {
	return &DeviceWaiter{Path: path, Open: platform.OpenInputDevice}
}

func (w *DeviceWaiter) WaitForPress(ctx context.Context, timeout time.Duration) (bool, error) {
	dev, err := w.Open(w.Path)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", w.Path, err)
	}
	defer dev.Close()

	// closing the device unblocks the read on shutdown
	stop := context.AfterFunc(ctx, func() { dev.Close() })
	defer stop()

	if err := dev.SetDeadline(time.Now().Add(timeout)); err != nil {
		return false, fmt.Errorf("failed to set read deadline: %w", err)
	}

	for {
		ev, err := dev.ReadEvent()
		if err != nil {
			if platform.IsTimeout(err) {
				return false, nil
			}
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, err
		}
		if ev.IsPress() {
			return true, nil
		}
	}
}
