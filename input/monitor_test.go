package input

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"retrohint/hintd/platform"
)

type fakeDevice struct {
	events chan platform.InputEvent
	closed chan struct{}
	once   sync.Once
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		events: make(chan platform.InputEvent, 64),
		closed: make(chan struct{}),
	}
}

func (d *fakeDevice) Name() string                  { return "fake pad" }
func (d *fakeDevice) HasKey(uint16) bool            { return true }
func (d *fakeDevice) SetDeadline(t time.Time) error { return nil }

func (d *fakeDevice) Close() error {
	d.once.Do(func() { close(d.closed) })
	return nil
}

func (d *fakeDevice) ReadEvent() (platform.InputEvent, error) {
	select {
	case ev, ok := <-d.events:
		if !ok {
			return platform.InputEvent{}, io.EOF
		}
		return ev, nil
	case <-d.closed:
		return platform.InputEvent{}, io.ErrClosedPipe
	}
}

func (d *fakeDevice) press(name string)   { d.key(name, platform.KeyPressed) }
func (d *fakeDevice) release(name string) { d.key(name, platform.KeyReleased) }

func (d *fakeDevice) key(name string, value int32) {
	code, _ := ButtonCode(name)
	d.events <- platform.InputEvent{Type: platform.EvKey, Code: code, Value: value}
	d.events <- platform.InputEvent{Type: platform.EvSyn}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMatcher(t *testing.T) *Matcher {
	t.Helper()
	request, err := ParseCombo([]string{"BTN_SELECT", "BTN_TL"})
	if err != nil {
		t.Fatalf("ParseCombo() error = %v", err)
	}
	view, err := ParseCombo([]string{"BTN_SELECT", "BTN_TR"})
	if err != nil {
		t.Fatalf("ParseCombo() error = %v", err)
	}
	return NewMatcher(Binding{ActionRequest, request}, Binding{ActionView, view})
}

func startMonitor(t *testing.T, open OpenFunc, triggers *TriggerWatcher) *Monitor {
	t.Helper()
	m := NewMonitor(testLogger(), "/dev/input/fake", open, testMatcher(t), triggers)
	m.MinBackoff = 10 * time.Millisecond
	m.MaxBackoff = 20 * time.Millisecond
	m.Start(context.Background())
	t.Cleanup(m.Stop)
	return m
}

func expectAction(t *testing.T, m *Monitor, want Action) {
	t.Helper()
	select {
	case got := <-m.Actions():
		if got != want {
			t.Fatalf("action = %v, want %v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no action received, want %v", want)
	}
}

func expectNoAction(t *testing.T, m *Monitor) {
	t.Helper()
	select {
	case got := <-m.Actions():
		t.Fatalf("unexpected action %v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMonitorFiresOncePerHold(t *testing.T) {
	dev := newFakeDevice()
	m := startMonitor(t, func(string) (platform.InputDevice, error) { return dev, nil }, nil)

	// unrelated buttons interleaved with the combo
	dev.press("BTN_SOUTH")
	dev.press("BTN_SELECT")
	dev.press("BTN_START")
	dev.release("BTN_SOUTH")
	dev.press("BTN_TL")
	expectAction(t, m, ActionRequest)

	// releasing the held combo does not re-trigger
	dev.release("BTN_TL")
	dev.release("BTN_SELECT")
	dev.release("BTN_START")
	expectNoAction(t, m)

	// a fresh press sequence fires again
	dev.press("BTN_SELECT")
	dev.press("BTN_TR")
	expectAction(t, m, ActionView)
}

func TestMonitorHeldComboNeedsRepress(t *testing.T) {
	dev := newFakeDevice()
	m := startMonitor(t, func(string) (platform.InputDevice, error) { return dev, nil }, nil)

	dev.press("BTN_SELECT")
	dev.press("BTN_TL")
	expectAction(t, m, ActionRequest)

	// BTN_SELECT is still physically held but the set was cleared;
	// pressing TL again alone is not enough
	dev.release("BTN_TL")
	dev.press("BTN_TL")
	expectNoAction(t, m)
}

func TestMonitorReconnects(t *testing.T) {
	first := newFakeDevice()
	second := newFakeDevice()

	var mu sync.Mutex
	opens := 0
	open := func(string) (platform.InputDevice, error) {
		mu.Lock()
		defer mu.Unlock()
		opens++
		switch opens {
		case 1:
			return first, nil
		case 2:
			return nil, errors.New("no such device")
		default:
			return second, nil
		}
	}
	m := startMonitor(t, open, nil)

	// unplug
	close(first.events)

	second.press("BTN_SELECT")
	second.press("BTN_TR")
	expectAction(t, m, ActionView)
}

func TestMonitorStartDoesNotBlock(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	m := NewMonitor(testLogger(), "/dev/input/fake", func(string) (platform.InputDevice, error) {
		<-block
		return nil, platform.ErrUnsupported
	}, testMatcher(t), nil)

	done := make(chan struct{})
	go func() {
		m.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Start() blocked")
	}
}
