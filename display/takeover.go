package display

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"retrohint/hintd/platform"
	"retrohint/hintd/render"
)

// Suspender stops every process with the given name until the token is released
type Suspender interface {
	Suspend(name string) (*platform.SuspendToken, error)
}

// Timings are the settle delays around each ownership change
type Timings struct {
	AfterStop     time.Duration
	AfterSwitch   time.Duration
	AfterRestore  time.Duration
	PlayerStart   time.Duration
	PlayerRelease time.Duration
	// NoInput is how long a picture stays up when presses cannot be observed
	NoInput time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		AfterStop:     300 * time.Millisecond,
		AfterSwitch:   500 * time.Millisecond,
		AfterRestore:  300 * time.Millisecond,
		PlayerStart:   500 * time.Millisecond,
		PlayerRelease: 300 * time.Millisecond,
		NoInput:       10 * time.Second,
	}
}

// rollback is a stack of compensating actions, unwound in reverse
type rollback struct {
	steps []func()
}

func (r *rollback) push(f func()) {
	r.steps = append(r.steps, f)
}

func (r *rollback) unwind() {
	for i := len(r.steps) - 1; i >= 0; i-- {
		r.steps[i]()
	}
	r.steps = nil
}

// handover takes the screen away from the emulator and gives it back.
// Every acquisition pushes its own release onto the caller's rollback.
type handover struct {
	logger      *slog.Logger
	suspender   Suspender
	console     platform.Console
	processName string
	timings     Timings
}

// suspend stops the emulator; its resume is pushed onto rb
func (h *handover) suspend(ctx context.Context, rb *rollback) error {
	token, err := h.suspender.Suspend(h.processName)
	if err != nil {
		return fmt.Errorf("failed to suspend %s: %w", h.processName, err)
	}
	if len(token.PIDs()) == 0 {
		h.logger.Warn("Emulator process not found, showing hint without suspending it", "process", h.processName)
	} else {
		h.logger.Debug("Emulator suspended", "pids", token.PIDs())
	}

	rb.push(func() {
		if err := token.Release(); err != nil {
			h.logger.Error("Failed to resume emulator", "process", h.processName, "error", err)
			return
		}
		h.logger.Debug("Emulator resumed")
	})
	sleep(ctx, h.timings.AfterStop)
	return nil
}

// activeVT records the terminal to return to; 0 when it cannot be read
func (h *handover) activeVT() int {
	vt, err := h.console.ActiveVT()
	if err != nil {
		h.logger.Debug("Could not read active VT", "error", err)
		return 0
	}
	return vt
}

// switchAway moves to a text terminal other than current; the way back is
// pushed onto rb before switching so a half-done switch is undone too
func (h *handover) switchAway(ctx context.Context, rb *rollback, current int) error {
	target := 1
	if current == 1 {
		target = 3
	}

	rb.push(func() { h.restoreVT(current) })

	if err := h.console.Activate(target); err != nil {
		return fmt.Errorf("failed to switch to VT%d: %w", target, err)
	}
	h.logger.Debug("Switched VT", "from", current, "to", target)
	sleep(ctx, h.timings.AfterSwitch)
	return nil
}

// restoreVT switches back and checks that the switch stuck, retrying once
func (h *handover) restoreVT(vt int) {
	if vt <= 0 {
		h.logger.Warn("Original VT unknown, leaving console as is")
		return
	}

	for attempt := 1; attempt <= 2; attempt++ {
		if err := h.console.Activate(vt); err != nil {
			h.logger.Warn("Failed to switch back to VT", "vt", vt, "attempt", attempt, "error", err)
		}
		time.Sleep(h.timings.AfterRestore)

		active, err := h.console.ActiveVT()
		if err != nil {
			// cannot verify; the switch itself was attempted
			h.logger.Debug("Could not verify active VT", "error", err)
			return
		}
		if active == vt {
			h.logger.Debug("Switched back to VT", "vt", vt)
			return
		}
		h.logger.Warn("Active VT mismatch after restore", "want", vt, "active", active, "attempt", attempt)
	}
	h.logger.Error("Console left on wrong VT", "want", vt)
}

// waitForDismiss blocks until a press, the timeout, or ctx ends. Without an
// observable input device the picture stays up for a fixed time.
func (h *handover) waitForDismiss(ctx context.Context, waiter DismissWaiter, timeout time.Duration) bool {
	if waiter != nil {
		pressed, err := waiter.WaitForPress(ctx, timeout)
		if err == nil {
			return pressed
		}
		h.logger.Debug("Button wait unavailable", "error", err)
	}
	sleep(ctx, h.timings.NoInput)
	return false
}

// Takeover writes the hint straight into the framebuffer while the emulator
// is frozen and the console is parked on a text VT
type Takeover struct {
	handover
	fb      Framebuffer
	waiter  DismissWaiter
	timeout time.Duration
}

func (t *Takeover) present(ctx context.Context, art render.Artifact) (dismissed bool, err error) {
	desc, err := t.fb.Describe()
	if err != nil {
		return false, err
	}
	if !desc.Supported() {
		return false, fmt.Errorf("%w: %s", ErrUnsupportedDepth, desc)
	}
	t.logger.Debug("Framebuffer", "geometry", desc.String(), "stride", desc.LineLength())

	var rb rollback
	// runs on every exit, including a panic further down
	defer rb.unwind()

	current := t.activeVT()
	if err := t.suspend(ctx, &rb); err != nil {
		return false, err
	}
	if err := t.switchAway(ctx, &rb, current); err != nil {
		return false, err
	}

	buf, err := Prepare(art.ImagePath, desc)
	if err != nil {
		return false, err
	}
	if err := t.fb.Write(buf); err != nil {
		return false, err
	}
	t.logger.Debug("Hint written to framebuffer", "bytes", len(buf))

	return t.waitForDismiss(ctx, t.waiter, t.timeout), nil
}

// sleep waits for d or until ctx ends
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
