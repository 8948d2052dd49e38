package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"retrohint/hintd/audio"
	"retrohint/hintd/config"
	"retrohint/hintd/display"
	"retrohint/hintd/emulator"
	"retrohint/hintd/hint"
	"retrohint/hintd/input"
	"retrohint/hintd/platform"
	"retrohint/hintd/postprocess"
	"retrohint/hintd/quota"
	"retrohint/hintd/render"
	"retrohint/hintd/storage"
	"retrohint/hintd/web"
	"retrohint/hintd/workflow"
)

// Agent owns every component of the daemon and routes hotkey actions to the workflow
type Agent struct {
	logger   *slog.Logger
	cfg      *config.Config
	provider hint.Provider
	limiter  *quota.Limiter
	monitor  *input.Monitor
	display  *display.Arbitrator
	coord    *workflow.Coordinator

	// optional
	db    *storage.DB
	chime *audio.Chime
	web   *web.Server

	// action handlers and chime playback; shutdown waits for all of them
	tasksMu sync.Mutex
	closing bool
	tasks   sync.WaitGroup
}

// NewAgent creates a new agent instance
func NewAgent(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*Agent, error) {
	// Create hint provider
	provider, err := hint.NewProvider(cfg.Hint)
	if err != nil {
		return nil, fmt.Errorf("failed to create hint provider: %w", err)
	}

	request, err := input.ParseCombo(cfg.Hotkeys.Request)
	if err != nil {
		return nil, fmt.Errorf("invalid request hotkey: %w", err)
	}
	view, err := input.ParseCombo(cfg.Hotkeys.View)
	if err != nil {
		return nil, fmt.Errorf("invalid view hotkey: %w", err)
	}
	matcher := input.NewMatcher(
		input.Binding{Action: input.ActionRequest, Combo: request},
		input.Binding{Action: input.ActionView, Combo: view},
	)

	hintsDir := cfg.Paths.HintsDir
	renderer, err := render.NewRenderer(logger, cfg.Render, hintsDir, cfg.Paths.ScreenshotDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	a := &Agent{
		logger:   logger,
		cfg:      cfg,
		provider: provider,
		limiter:  quota.NewLimiter(logger, hintsDir, cfg.Hint.DailyLimit),
	}

	// usage history is optional; a broken database must not stop hints
	var usage workflow.UsageLog
	if db, err := storage.Open(ctx, hintsDir); err != nil {
		logger.Warn("Usage database unavailable", "error", err)
	} else {
		a.db = db
		usage = db
	}

	emu := emulator.NewClient(logger, cfg.RetroArch.Host, cfg.RetroArch.Port)

	a.display = display.NewArbitrator(logger, display.Options{
		Prefer:           cfg.Display.Prefer,
		FramebufferSysfs: cfg.Display.FramebufferSysfs,
		ProcessName:      cfg.RetroArch.ProcessName,
		DismissTimeout:   cfg.DismissTimeout(),
		Timings:          display.DefaultTimings(),
	}, display.Deps{
		Env:         display.SystemEnv{},
		Suspender:   platform.NewProcesses(),
		Console:     platform.NewConsole(cfg.Display.ConsoleDevice),
		Framebuffer: display.FBDevice{Device: cfg.Display.FramebufferDevice, Sysfs: cfg.Display.FramebufferSysfs},
		Waiter:      display.NewDeviceWaiter(cfg.Hotkeys.ControllerDevice),
		Emulator:    emu,
	})

	a.coord = workflow.NewCoordinator(logger, workflow.Options{
		Notifications: cfg.Notifications,
		SaveSlot:      cfg.RetroArch.SavestateSlot,
		SaveWait:      cfg.SavestateWait(),
		HintTimeout:   time.Duration(cfg.Hint.TimeoutSeconds) * time.Second,
	}, workflow.Deps{
		Emulator: emu,
		Capturer: emulator.NewCapturer(emu, cfg.Paths.ScreenshotDir, time.Duration(cfg.RetroArch.ScreenshotSettleMs)*time.Millisecond),
		Limiter:  a.limiter,
		Provider: provider,
		Cleaner:  postprocess.NewHintPipeline(logger),
		Renderer: renderer,
		Archiver: render.NewArchiver(logger, hintsDir),
		Display:  a.display,
		Usage:    usage,
	})

	a.monitor = input.NewMonitor(logger, cfg.Hotkeys.ControllerDevice, platform.OpenInputDevice, matcher,
		input.NewTriggerWatcher(logger, hintsDir))

	if cfg.Audio.Chime {
		chime, err := audio.NewChime(logger, cfg.Audio.Frequency, time.Duration(cfg.Audio.DurationMs)*time.Millisecond)
		if err != nil {
			logger.Warn("Chime disabled", "error", err)
		} else {
			a.chime = chime
			a.coord.Subscribe(workflow.ObserverFunc(func(e workflow.Event) {
				if e.Type == workflow.EventHintReady {
					a.spawn(func() { chime.Play(ctx) })
				}
			}))
		}
	}

	if cfg.Web.Enabled {
		sources := web.Sources{
			Status:    a.coord,
			Usage:     a.limiter,
			Technique: a.display.Technique().String(),
			Provider:  provider.Name(),
		}
		if a.db != nil {
			sources.DB = a.db
		}
		a.web = web.NewServer(logger, cfg.Web.Port, sources)
		a.coord.Subscribe(a.web)
	}

	return a, nil
}

// Run starts the agent's main event loop
func (a *Agent) Run(ctx context.Context) error {
	a.monitor.Start(ctx)

	if a.web != nil {
		go func() {
			if err := a.web.Start(ctx); err != nil {
				a.logger.Error("Web server error", "error", err)
			}
		}()
	}

	a.logger.Info("Hint daemon started",
		"request", a.cfg.Hotkeys.Request,
		"view", a.cfg.Hotkeys.View,
		"provider", a.provider.Name(),
		"display", a.display.Technique().String())

	// Main event loop
	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			return nil

		case action := <-a.monitor.Actions():
			a.dispatch(ctx, action)
		}
	}
}

// dispatch runs the workflow for action on its own goroutine; a view may
// hold the screen for minutes and the loop must keep draining actions
func (a *Agent) dispatch(ctx context.Context, action input.Action) {
	switch action {
	case input.ActionRequest:
		a.spawn(func() { a.handle(ctx, "request", a.coord.OnRequest) })
	case input.ActionView:
		a.spawn(func() { a.handle(ctx, "view", a.coord.OnView) })
	}
}

// spawn runs f on a goroutine shutdown waits for. Nothing new starts once
// shutdown has begun.
func (a *Agent) spawn(f func()) bool {
	a.tasksMu.Lock()
	defer a.tasksMu.Unlock()
	if a.closing {
		return false
	}
	a.tasks.Add(1)
	go func() {
		defer a.tasks.Done()
		f()
	}()
	return true
}

func (a *Agent) handle(ctx context.Context, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		level := slog.LevelInfo
		if !isUserError(err) {
			level = slog.LevelError
		}
		a.logger.Log(ctx, level, "Action not completed", "action", name, "reason", err)
	}
}

// isUserError reports whether err is an ordinary refusal shown to the player
func isUserError(err error) bool {
	for _, target := range []error{
		workflow.ErrBusy,
		workflow.ErrQuotaExceeded,
		workflow.ErrNoActiveContent,
		workflow.ErrNoHint,
		workflow.ErrViewing,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (a *Agent) shutdown() {
	a.monitor.Stop()

	a.tasksMu.Lock()
	a.closing = true
	a.tasksMu.Unlock()

	// a view hands the screen back and resumes the emulator as soon as ctx
	// ends, so this wait is bounded and has no deadline of its own
	a.tasks.Wait()

	// hint tasks are short-lived; let an in-flight one write its usage record
	done := make(chan struct{})
	go func() {
		a.coord.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		a.logger.Warn("Shutting down with a hint still in progress")
	}

	if a.chime != nil {
		a.chime.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
