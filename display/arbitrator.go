package display

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"retrohint/hintd/platform"
	"retrohint/hintd/render"
)

// presenter is one technique's implementation. An error means the technique
// could not show the hint and every resource it took has been given back.
type presenter interface {
	present(ctx context.Context, art render.Artifact) (dismissed bool, err error)
}

// Options configure the arbitrator
type Options struct {
	// Prefer forces a technique by name; empty probes
	Prefer           string
	FramebufferSysfs string
	ProcessName      string
	DismissTimeout   time.Duration
	Timings          Timings
}

// Deps are the system resources the techniques act on
type Deps struct {
	Env         Env
	Suspender   Suspender
	Console     platform.Console
	Framebuffer Framebuffer
	Waiter      DismissWaiter
	Emulator    Messenger
}

// Arbitrator owns the technique chosen at startup and the text overlay it
// falls back to
type Arbitrator struct {
	logger    *slog.Logger
	technique Technique
	selected  presenter
	fallback  *Overlay
}

// NewArbitrator probes once; the result is kept for the process lifetime
func NewArbitrator(logger *slog.Logger, opts Options, deps Deps) *Arbitrator {
	logger = logger.With("component", "display")

	technique, forced := ParseTechnique(opts.Prefer)
	if !forced {
		if opts.Prefer != "" {
			logger.Warn("Unknown display technique, probing", "prefer", opts.Prefer)
		}
		technique = Probe(deps.Env, opts.FramebufferSysfs)
	}

	a := &Arbitrator{
		logger:    logger,
		technique: technique,
		fallback:  NewOverlay(logger, deps.Emulator),
	}

	h := handover{
		logger:      logger,
		suspender:   deps.Suspender,
		console:     deps.Console,
		processName: opts.ProcessName,
		timings:     opts.Timings,
	}

	switch technique {
	case DirectFramebuffer:
		a.selected = &Takeover{handover: h, fb: deps.Framebuffer, waiter: deps.Waiter, timeout: opts.DismissTimeout}
	case ExternalPlayerDRM:
		a.selected = &PlayerDRM{handover: h, waiter: deps.Waiter, timeout: opts.DismissTimeout}
	case FramebufferViewer:
		a.selected = &FBViewer{handover: h, waiter: deps.Waiter, timeout: opts.DismissTimeout}
	case LegacyFramebufferImage:
		a.selected = &ModalViewer{binary: "fbi", args: fbiArgs, timeout: opts.DismissTimeout}
	case WindowedViewer:
		a.selected = &ModalViewer{binary: "feh", args: fehArgs, timeout: opts.DismissTimeout}
	default:
		a.selected = a.fallback
	}

	logger.Info("Display technique selected", "technique", technique.String(), "forced", forced)
	return a
}

// Technique returns the technique chosen at startup
func (a *Arbitrator) Technique() Technique {
	return a.technique
}

// Present shows the hint and blocks until it is dismissed or times out.
// A failing technique falls back to the text overlay; nothing here ends the
// process, and the emulator owns the display again when Present returns.
func (a *Arbitrator) Present(ctx context.Context, art render.Artifact) bool {
	start := time.Now()
	dismissed, err := safePresent(ctx, a.selected, art)
	if err == nil {
		a.logger.Info("Hint display finished", "technique", a.technique.String(), "dismissed", dismissed, "duration", time.Since(start))
		return dismissed
	}

	a.logger.Error("Display technique failed", "technique", a.technique.String(), "error", err)
	if a.selected == presenter(a.fallback) {
		return false
	}

	dismissed, err = safePresent(ctx, a.fallback, art)
	if err != nil {
		a.logger.Error("Overlay fallback failed", "error", err)
		return false
	}
	return dismissed
}

// safePresent turns a panic inside a technique into an error. Deferred
// rollbacks in the technique have already run by the time it is recovered.
func safePresent(ctx context.Context, p presenter, art render.Artifact) (dismissed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during display: %v", r)
		}
	}()
	return p.present(ctx, art)
}
