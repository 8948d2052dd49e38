package input

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Sentinel files that stand in for the hotkeys when no controller can be read
const (
	RequestTriggerFile = ".request_hint"
	ViewTriggerFile    = ".view_hint"
)

// TriggerWatcher turns the appearance of a sentinel file into an action.
// The file is consumed (deleted) before the action is emitted.
type TriggerWatcher struct {
	logger   *slog.Logger
	dir      string
	Interval time.Duration
}

func NewTriggerWatcher(logger *slog.Logger, dir string) *TriggerWatcher {
	return &TriggerWatcher{
		logger:   logger.With("component", "triggers"),
		dir:      dir,
		Interval: 200 * time.Millisecond,
	}
}

// Run blocks until ctx ends. Filesystem notifications are used when the
// directory can be watched; the periodic sweep always runs so files created
// before the watch started, or missed by the watcher, are still picked up.
func (w *TriggerWatcher) Run(ctx context.Context, emit func(Action)) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		w.logger.Error("Failed to create trigger directory", "dir", w.dir, "error", err)
	}

	var events <-chan fsnotify.Event
	var errs <-chan error
	interval := w.Interval

	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		err = fsw.Add(w.dir)
	}
	if err != nil {
		w.logger.Warn("Filesystem notifications unavailable, polling", "dir", w.dir, "error", err)
	} else {
		defer fsw.Close()
		events, errs = fsw.Events, fsw.Errors
		// notifications do the work; the sweep is only a safety net
		interval = max(interval, time.Second)
	}

	w.logger.Info("Watching trigger files", "request", filepath.Join(w.dir, RequestTriggerFile), "view", filepath.Join(w.dir, ViewTriggerFile))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.sweep(emit)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				if action, ok := actionForFile(filepath.Base(ev.Name)); ok {
					w.consume(action, emit)
				}
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("Trigger watcher error", "error", err)
		case <-ticker.C:
			w.sweep(emit)
		}
	}
}

func (w *TriggerWatcher) sweep(emit func(Action)) {
	w.consume(ActionRequest, emit)
	w.consume(ActionView, emit)
}

// consume emits the action only if this call removed the file
func (w *TriggerWatcher) consume(a Action, emit func(Action)) {
	path := filepath.Join(w.dir, triggerFile(a))
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn("Failed to consume trigger file", "path", path, "error", err)
		}
		return
	}
	w.logger.Info("Trigger file detected", "action", a.String())
	emit(a)
}

func triggerFile(a Action) string {
	if a == ActionView {
		return ViewTriggerFile
	}
	return RequestTriggerFile
}

func actionForFile(name string) (Action, bool) {
	switch name {
	case RequestTriggerFile:
		return ActionRequest, true
	case ViewTriggerFile:
		return ActionView, true
	}
	return 0, false
}
