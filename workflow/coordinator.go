package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"retrohint/hintd/config"
	"retrohint/hintd/emulator"
	"retrohint/hintd/hint"
	"retrohint/hintd/render"
	"retrohint/hintd/storage"
)

var (
	ErrBusy            = errors.New("hint generation already in progress")
	ErrQuotaExceeded   = errors.New("daily hint limit reached")
	ErrNoActiveContent = errors.New("no game running")
	ErrNoHint          = errors.New("no hint ready")
	ErrViewing         = errors.New("hint is on screen")
)

// Emulator is the part of the emulator client the workflow drives
type Emulator interface {
	Status(ctx context.Context) (emulator.Status, error)
	ShowMessage(text string) error
	SaveState(slot int) error
	LoadState(slot int) error
}

type Capturer interface {
	Capture(ctx context.Context) (string, error)
}

type Limiter interface {
	CanMakeRequest() (allowed bool, used int, limit int)
	RecordRequest()
}

type Cleaner interface {
	Process(ctx context.Context, text string) (string, error)
}

type Renderer interface {
	Render(text, game, system string) (render.Artifact, error)
}

type Archiver interface {
	Save(imagePath, system, game string) (string, error)
}

// Presenter shows an artifact full screen and reports whether it was dismissed
type Presenter interface {
	Present(ctx context.Context, art render.Artifact) bool
}

// UsageLog persists usage events and generated hints
type UsageLog interface {
	LogEvent(ctx context.Context, e *storage.UsageEvent) error
	SaveHint(ctx context.Context, h *storage.Hint) error
}

type Options struct {
	Notifications config.NotificationsConfig
	SaveSlot      int
	// SaveWait is how long a save-state needs to reach disk
	SaveWait     time.Duration
	RestoreDelay time.Duration
	HintTimeout  time.Duration
}

// Deps are the collaborators; Usage may be nil
type Deps struct {
	Emulator Emulator
	Capturer Capturer
	Limiter  Limiter
	Provider hint.Provider
	Cleaner  Cleaner
	Renderer Renderer
	Archiver Archiver
	Display  Presenter
	Usage    UsageLog
}

// Snapshot is the coordinator state at one instant
type Snapshot struct {
	Processing bool      `json:"processing"`
	Ready      bool      `json:"ready"`
	Viewing    bool      `json:"viewing"`
	System     string    `json:"system,omitempty"`
	Game       string    `json:"game,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	LastHintAt time.Time `json:"last_hint_at,omitempty"`
}

// Coordinator runs the request and view workflows. At most one hint is
// generated at a time and at most one view runs at a time; a request is
// refused while a view is on screen so the artifact is never overwritten.
type Coordinator struct {
	logger *slog.Logger
	opts   Options
	deps   Deps

	observers observers
	tasks     sync.WaitGroup
	now       func() time.Time

	mu         sync.Mutex
	processing bool
	viewing    bool
	ready      bool
	artifact   render.Artifact
	system     string
	game       string
	lastError  string
	lastHintAt time.Time
}

func NewCoordinator(logger *slog.Logger, opts Options, deps Deps) *Coordinator {
	if opts.RestoreDelay == 0 {
		opts.RestoreDelay = 200 * time.Millisecond
	}
	if opts.HintTimeout == 0 {
		opts.HintTimeout = 60 * time.Second
	}
	return &Coordinator{
		logger: logger.With("component", "workflow"),
		opts:   opts,
		deps:   deps,
		now:    time.Now,
	}
}

// Subscribe registers o for every later event
func (c *Coordinator) Subscribe(o Observer) {
	c.observers.add(o)
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Processing: c.processing,
		Ready:      c.ready,
		Viewing:    c.viewing,
		System:     c.system,
		Game:       c.game,
		LastError:  c.lastError,
		LastHintAt: c.lastHintAt,
	}
}

// Wait blocks until every background hint task has finished
func (c *Coordinator) Wait() {
	c.tasks.Wait()
}

// OnRequest starts generating a hint for the current screen. It returns once
// the screenshot is taken; the hint service call runs in the background.
func (c *Coordinator) OnRequest(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.processing:
		c.mu.Unlock()
		c.reject(c.opts.Notifications.Busy, ErrBusy)
		return ErrBusy
	case c.viewing:
		c.mu.Unlock()
		c.reject(c.opts.Notifications.Viewing, ErrViewing)
		return ErrViewing
	}
	c.processing = true
	c.mu.Unlock()

	spawned := false
	defer func() {
		if !spawned {
			c.setProcessing(false)
		}
	}()

	allowed, used, limit := c.deps.Limiter.CanMakeRequest()
	if !allowed {
		msg := QuotaMessage(c.opts.Notifications.LimitReached, used, limit)
		c.logUsage(ctx, &storage.UsageEvent{Event: storage.EventRateLimited, ErrorMessage: fmt.Sprintf("%d/%d", used, limit)})
		c.reject(msg, ErrQuotaExceeded)
		return fmt.Errorf("%w (%d/%d)", ErrQuotaExceeded, used, limit)
	}

	status, err := c.deps.Emulator.Status(ctx)
	if err != nil || !status.HasContent() {
		if err != nil {
			c.logger.Warn("Failed to query emulator status", "error", err)
		}
		c.reject(c.opts.Notifications.NoGame, ErrNoActiveContent)
		return ErrNoActiveContent
	}
	system, game := emulator.GameInfo(status)
	requestID := uuid.New().String()

	c.mu.Lock()
	c.ready = false
	c.system, c.game = system, game
	c.mu.Unlock()

	c.notify(c.opts.Notifications.Generating)

	shot, err := c.deps.Capturer.Capture(ctx)
	if err != nil {
		c.logger.Error("Screenshot capture failed", "request_id", requestID, "error", err)
		c.logUsage(ctx, &storage.UsageEvent{Event: storage.EventCaptureFailed, RequestID: requestID, System: system, Game: game, ErrorMessage: err.Error()})
		c.failed(err)
		return err
	}

	c.logger.Info("Hint requested", "request_id", requestID, "system", system, "game", game, "screenshot", shot)
	c.publish(EventRequestAccepted, game)

	spawned = true
	c.tasks.Add(1)
	go c.generate(context.WithoutCancel(ctx), requestID, shot, system, game)
	return nil
}

// generate is the background half of a request. Whatever happens, it ends
// with processing cleared.
func (c *Coordinator) generate(ctx context.Context, requestID, shot, system, game string) {
	defer c.tasks.Done()
	start := c.now()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			c.logger.Error("Hint task crashed", "request_id", requestID, "error", err)
			c.logUsage(ctx, &storage.UsageEvent{Event: storage.EventProcessingError, RequestID: requestID, System: system, Game: game, ErrorMessage: err.Error()})
			c.failed(err)
		}
	}()

	image, err := os.ReadFile(shot)
	if err != nil {
		c.logger.Error("Failed to read screenshot", "path", shot, "error", err)
		c.logUsage(ctx, &storage.UsageEvent{Event: storage.EventCaptureFailed, RequestID: requestID, System: system, Game: game, ErrorMessage: err.Error()})
		c.failed(emulator.ErrCaptureFailed)
		return
	}

	hctx, cancel := context.WithTimeout(ctx, c.opts.HintTimeout)
	text, err := c.deps.Provider.Hint(hctx, image, system, game)
	cancel()
	elapsed := c.now().Sub(start)
	if err != nil {
		c.logger.Error("Hint source failed", "request_id", requestID, "provider", c.deps.Provider.Name(), "duration", elapsed, "error", err)
		c.logUsage(ctx, &storage.UsageEvent{Event: storage.EventAPIError, RequestID: requestID, System: system, Game: game, ResponseTime: elapsed, ErrorMessage: err.Error()})
		c.failed(err)
		return
	}

	if cleaned, err := c.deps.Cleaner.Process(ctx, text); err != nil {
		c.logger.Warn("Hint cleanup failed, using raw text", "error", err)
	} else {
		text = cleaned
	}
	if strings.TrimSpace(text) == "" {
		err := &hint.ProviderError{Provider: c.deps.Provider.Name(), Message: "empty hint after cleanup"}
		c.logUsage(ctx, &storage.UsageEvent{Event: storage.EventAPIError, RequestID: requestID, System: system, Game: game, ResponseTime: elapsed, ErrorMessage: err.Error()})
		c.failed(err)
		return
	}

	c.deps.Limiter.RecordRequest()

	art, err := c.deps.Renderer.Render(text, game, system)
	if err != nil {
		c.logger.Error("Failed to render hint", "request_id", requestID, "error", err)
		c.logUsage(ctx, &storage.UsageEvent{Event: storage.EventProcessingError, RequestID: requestID, System: system, Game: game, ResponseTime: elapsed, ErrorMessage: err.Error()})
		c.failed(err)
		return
	}

	archived, err := c.deps.Archiver.Save(art.ImagePath, system, game)
	if err != nil {
		c.logger.Warn("Failed to archive hint", "error", err)
	}

	if c.deps.Usage != nil {
		h := &storage.Hint{
			ID:          requestID,
			System:      system,
			Game:        game,
			Provider:    c.deps.Provider.Name(),
			Model:       c.deps.Provider.Model(),
			Text:        text,
			ImagePath:   art.ImagePath,
			ArchivePath: archived,
		}
		if err := c.deps.Usage.SaveHint(ctx, h); err != nil {
			c.logger.Warn("Failed to save hint history", "error", err)
		}
	}
	c.logUsage(ctx, &storage.UsageEvent{
		Event:        storage.EventHintGenerated,
		RequestID:    requestID,
		System:       system,
		Game:         game,
		Success:      true,
		ResponseTime: elapsed,
		HintPreview:  text,
	})

	c.mu.Lock()
	c.artifact = art
	c.ready = true
	c.processing = false
	c.lastError = ""
	c.lastHintAt = c.now()
	c.mu.Unlock()

	c.logger.Info("Hint ready", "request_id", requestID, "duration", elapsed, "image", art.ImagePath)
	c.notify(c.opts.Notifications.Ready)
	c.publish(EventHintReady, text)
}

// OnView shows the ready hint between a save-state and a load-state, so the
// session is exactly where the player left it afterwards
func (c *Coordinator) OnView(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.viewing:
		c.mu.Unlock()
		c.notify(c.opts.Notifications.Viewing)
		return ErrViewing
	case !c.ready:
		c.mu.Unlock()
		c.notify(c.opts.Notifications.NoHint)
		return ErrNoHint
	}
	c.viewing = true
	art, system, game := c.artifact, c.system, c.game
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.viewing = false
		c.mu.Unlock()
	}()

	c.publish(EventViewStarted, game)
	slot := c.opts.SaveSlot

	if err := c.deps.Emulator.SaveState(slot); err != nil {
		c.logger.Warn("Failed to save state before viewing", "slot", slot, "error", err)
	}
	sleep(ctx, c.opts.SaveWait)

	start := c.now()
	dismissed := c.deps.Display.Present(ctx, art)

	sleep(ctx, c.opts.RestoreDelay)
	if err := c.deps.Emulator.LoadState(slot); err != nil {
		c.logger.Error("Failed to load state after viewing", "slot", slot, "error", err)
	}

	c.logUsage(ctx, &storage.UsageEvent{Event: storage.EventHintViewed, System: system, Game: game, Success: dismissed, ResponseTime: c.now().Sub(start)})
	c.logger.Info("Hint view finished", "dismissed", dismissed)
	c.publish(EventViewFinished, strconv.FormatBool(dismissed))
	return nil
}

// QuotaMessage fills {used} and {limit} in the limit-reached template
func QuotaMessage(template string, used, limit int) string {
	return strings.NewReplacer("{used}", strconv.Itoa(used), "{limit}", strconv.Itoa(limit)).Replace(template)
}

func (c *Coordinator) setProcessing(v bool) {
	c.mu.Lock()
	c.processing = v
	c.mu.Unlock()
}

func (c *Coordinator) failed(err error) {
	c.mu.Lock()
	c.processing = false
	c.lastError = err.Error()
	c.mu.Unlock()

	c.notify(c.opts.Notifications.Error)
	c.publish(EventHintFailed, err.Error())
}

func (c *Coordinator) reject(msg string, reason error) {
	c.logger.Info("Request rejected", "reason", reason)
	c.notify(msg)
	c.publish(EventRequestRejected, reason.Error())
}

func (c *Coordinator) notify(msg string) {
	if msg == "" {
		return
	}
	if err := c.deps.Emulator.ShowMessage(msg); err != nil {
		c.logger.Warn("Failed to show notification", "message", msg, "error", err)
	}
}

func (c *Coordinator) publish(t EventType, msg string) {
	c.observers.publish(Event{Type: t, Message: msg, Time: c.now()})
}

func (c *Coordinator) logUsage(ctx context.Context, e *storage.UsageEvent) {
	if c.deps.Usage == nil {
		return
	}
	if err := c.deps.Usage.LogEvent(ctx, e); err != nil {
		c.logger.Warn("Failed to log usage", "event", e.Event, "error", err)
	}
}

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
