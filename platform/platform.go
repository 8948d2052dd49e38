package platform

import (
	"errors"
	"os"
	"time"
)

// ErrUnsupported is returned when the running system has no such device API.
// Callers treat it as "degrade", never as fatal.
var ErrUnsupported = errors.New("platform: device API not available on this system")

// Linux input event types and key values (linux/input-event-codes.h)
const (
	EvSyn uint16 = 0x00
	EvKey uint16 = 0x01

	KeyReleased int32 = 0
	KeyPressed  int32 = 1
	KeyRepeat   int32 = 2
)

// InputEvent is one decoded struct input_event
type InputEvent struct {
	Time  time.Time
	Type  uint16
	Code  uint16
	Value int32
}

// IsPress reports whether the event is a button going down
func (e InputEvent) IsPress() bool {
	return e.Type == EvKey && e.Value == KeyPressed
}

// IsRelease reports whether the event is a button going up
func (e InputEvent) IsRelease() bool {
	return e.Type == EvKey && e.Value == KeyReleased
}

// InputDevice is a raw input device streaming button events
type InputDevice interface {
	Name() string
	// ReadEvent blocks until the next event, the deadline, or Close.
	ReadEvent() (InputEvent, error)
	// HasKey reports whether the device advertises the key code in its capability table.
	HasKey(code uint16) bool
	SetDeadline(t time.Time) error
	Close() error
}

// Console controls which virtual terminal is in the foreground
type Console interface {
	ActiveVT() (int, error)
	Activate(vt int) error
}

// IsTimeout reports whether err came from an expired read deadline
func IsTimeout(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded)
}
