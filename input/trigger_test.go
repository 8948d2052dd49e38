package input

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"retrohint/hintd/platform"
)

func TestTriggerFilesDegradedMode(t *testing.T) {
	dir := t.TempDir()
	triggers := NewTriggerWatcher(testLogger(), dir)
	triggers.Interval = 20 * time.Millisecond

	m := startMonitor(t, func(string) (platform.InputDevice, error) {
		return nil, platform.ErrUnsupported
	}, triggers)

	if err := os.WriteFile(filepath.Join(dir, ViewTriggerFile), nil, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	expectAction(t, m, ActionView)

	if _, err := os.Stat(filepath.Join(dir, ViewTriggerFile)); !os.IsNotExist(err) {
		t.Fatalf("trigger file still present after consumption (err = %v)", err)
	}
	if got := m.Mode(); got != ModeTriggers {
		t.Fatalf("Mode() = %s, want %s", got, ModeTriggers)
	}
}

func TestTriggerFilePresentAtStart(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, RequestTriggerFile), nil, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	w := NewTriggerWatcher(testLogger(), dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Action, 4)
	go w.Run(ctx, func(a Action) { got <- a })

	select {
	case a := <-got:
		if a != ActionRequest {
			t.Fatalf("action = %v, want request", a)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("pre-existing trigger file was not consumed")
	}
}
