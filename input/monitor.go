package input

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/zyedidia/generic/mapset"

	"retrohint/hintd/platform"
)

// OpenFunc opens a raw input device
type OpenFunc func(path string) (platform.InputDevice, error)

// Mode describes where actions currently come from
type Mode string

const (
	ModeStopped  Mode = "stopped"
	ModeDevice   Mode = "device"
	ModeTriggers Mode = "triggers"
	ModeWaiting  Mode = "reconnecting"
)

// Monitor reads button events from a controller, tracks the pressed set
// and publishes matched combos on the Actions channel.
type Monitor struct {
	logger     *slog.Logger
	devicePath string
	open       OpenFunc
	matcher    *Matcher
	triggers   *TriggerWatcher

	// reconnect backoff
	MinBackoff time.Duration
	MaxBackoff time.Duration

	actions chan Action

	// pressed is only touched by the listener goroutine
	pressed mapset.Set[string]
	codes   map[uint16]string

	mu     sync.Mutex
	dev    platform.InputDevice
	mode   Mode
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a monitor for the device at devicePath. triggers is used
// when the raw input API is unavailable; it may be nil.
func NewMonitor(logger *slog.Logger, devicePath string, open OpenFunc, matcher *Matcher, triggers *TriggerWatcher) *Monitor {
	codes := make(map[uint16]string)
	for _, name := range matcher.Buttons() {
		if code, ok := ButtonCode(name); ok {
			codes[code] = name
		}
	}
	return &Monitor{
		logger:     logger.With("component", "input"),
		devicePath: devicePath,
		open:       open,
		matcher:    matcher,
		triggers:   triggers,
		MinBackoff: time.Second,
		MaxBackoff: 30 * time.Second,
		actions:    make(chan Action, 8),
		pressed:    mapset.New[string](),
		codes:      codes,
		mode:       ModeStopped,
	}
}

// Actions delivers matched combos. The channel is never closed.
func (m *Monitor) Actions() <-chan Action {
	return m.actions
}

// Mode reports the current input source
func (m *Monitor) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Start launches the listener goroutine and returns immediately
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(ctx)
}

// Stop ends the listener and waits for it to exit
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	m.mu.Lock()
	dev := m.dev
	m.mu.Unlock()
	if dev != nil {
		// unblocks ReadEvent
		dev.Close()
	}
	<-done
	m.setMode(ModeStopped)
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	dev, err := m.open(m.devicePath)
	if err != nil {
		if errors.Is(err, platform.ErrUnsupported) {
			m.logger.Warn("Raw input API not available, using file triggers")
		} else {
			m.logger.Error("Failed to open controller, using file triggers", "device", m.devicePath, "error", err)
		}
		m.runTriggers(ctx)
		return
	}

	backoff := m.MinBackoff
	for {
		m.listen(ctx, dev)
		if ctx.Err() != nil {
			return
		}

		// controller went away; keep trying until it comes back
		m.setMode(ModeWaiting)
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}

			dev, err = m.open(m.devicePath)
			if err == nil {
				backoff = m.MinBackoff
				break
			}
			if errors.Is(err, platform.ErrUnsupported) {
				m.runTriggers(ctx)
				return
			}
			m.logger.Debug("Controller still unavailable", "device", m.devicePath, "retry_in", backoff, "error", err)
			backoff = min(backoff*2, m.MaxBackoff)
		}
	}
}

// listen reads events until the device fails or ctx ends. The device is closed on return.
func (m *Monitor) listen(ctx context.Context, dev platform.InputDevice) {
	m.mu.Lock()
	m.dev = dev
	m.mode = ModeDevice
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.dev = nil
		m.mu.Unlock()
		dev.Close()
	}()
	if ctx.Err() != nil {
		return
	}

	m.logger.Info("Listening on device", "device", m.devicePath, "name", dev.Name())
	for code, name := range m.codes {
		if !dev.HasKey(code) {
			m.logger.Warn("Device does not report a hotkey button", "button", name)
		}
	}

	// held buttons from a previous connection are meaningless now
	m.pressed = mapset.New[string]()

	for {
		ev, err := dev.ReadEvent()
		if err != nil {
			if ctx.Err() == nil {
				m.logger.Warn("Controller read failed", "device", m.devicePath, "error", err)
			}
			return
		}
		m.handle(ev)
	}
}

func (m *Monitor) handle(ev platform.InputEvent) {
	if ev.Type != platform.EvKey {
		return
	}
	name, ok := m.codes[ev.Code]
	if !ok {
		return
	}

	switch {
	case ev.IsPress():
		m.pressed.Put(name)
		if action, ok := m.matcher.Match(&m.pressed); ok {
			// a held combo must not fire again until released and re-pressed
			m.pressed = mapset.New[string]()
			m.logger.Info("Hotkey detected", "action", action.String())
			m.dispatch(action)
		}
	case ev.IsRelease():
		m.pressed.Remove(name)
	}
}

func (m *Monitor) dispatch(a Action) {
	select {
	case m.actions <- a:
	default:
		m.logger.Warn("Action queue full, dropping hotkey", "action", a.String())
	}
}

func (m *Monitor) runTriggers(ctx context.Context) {
	if m.triggers == nil {
		m.setMode(ModeStopped)
		return
	}
	m.setMode(ModeTriggers)
	m.triggers.Run(ctx, m.dispatch)
}

func (m *Monitor) setMode(mode Mode) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
}
