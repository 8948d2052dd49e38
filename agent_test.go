package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"retrohint/hintd/emulator"
	"retrohint/hintd/input"
	"retrohint/hintd/postprocess"
	"retrohint/hintd/quota"
	"retrohint/hintd/render"
	"retrohint/hintd/workflow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubEmulator struct{}

func (stubEmulator) Status(ctx context.Context) (emulator.Status, error) {
	return emulator.Status{Playing: true, Core: "snes9x", Content: "/roms/zelda.sfc"}, nil
}
func (stubEmulator) ShowMessage(text string) error { return nil }
func (stubEmulator) SaveState(slot int) error      { return nil }
func (stubEmulator) LoadState(slot int) error      { return nil }

type stubCapturer struct{ path string }

func (c stubCapturer) Capture(ctx context.Context) (string, error) { return c.path, nil }

type stubProvider struct{}

func (stubProvider) Name() string  { return "stub" }
func (stubProvider) Model() string { return "stub-1" }
func (stubProvider) Hint(ctx context.Context, image []byte, system, game string) (string, error) {
	return "Push the statue left.", nil
}

type stubRenderer struct{ dir string }

func (r stubRenderer) Render(text, game, system string) (render.Artifact, error) {
	return render.Artifact{ImagePath: filepath.Join(r.dir, render.ImageFile)}, nil
}

type stubArchiver struct{}

func (stubArchiver) Save(imagePath, system, game string) (string, error) { return "", nil }

// heldScreen keeps the hint up until ctx ends, then takes a while to give
// the screen back the way a framebuffer takeover does
type heldScreen struct {
	shown chan struct{}

	mu      sync.Mutex
	resumed bool
}

func (s *heldScreen) Present(ctx context.Context, art render.Artifact) bool {
	close(s.shown)
	<-ctx.Done()
	time.Sleep(100 * time.Millisecond)
	s.mu.Lock()
	s.resumed = true
	s.mu.Unlock()
	return false
}

func (s *heldScreen) wasResumed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumed
}

func newTestAgent(t *testing.T, screen workflow.Presenter) *Agent {
	t.Helper()
	logger := testLogger()
	dir := t.TempDir()

	shot := filepath.Join(dir, "shot.png")
	if err := os.WriteFile(shot, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	coord := workflow.NewCoordinator(logger, workflow.Options{}, workflow.Deps{
		Emulator: stubEmulator{},
		Capturer: stubCapturer{path: shot},
		Limiter:  quota.NewLimiter(logger, dir, 0),
		Provider: stubProvider{},
		Cleaner:  postprocess.NewHintPipeline(logger),
		Renderer: stubRenderer{dir: dir},
		Archiver: stubArchiver{},
		Display:  screen,
	})
	if err := coord.OnRequest(context.Background()); err != nil {
		t.Fatalf("OnRequest() error = %v", err)
	}
	coord.Wait()
	if !coord.Snapshot().Ready {
		t.Fatalf("hint not ready after request")
	}

	return &Agent{
		logger:  logger,
		coord:   coord,
		monitor: input.NewMonitor(logger, "", nil, input.NewMatcher(), nil),
	}
}

func TestShutdownWaitsForViewToGiveScreenBack(t *testing.T) {
	screen := &heldScreen{shown: make(chan struct{})}
	a := newTestAgent(t, screen)

	ctx, cancel := context.WithCancel(context.Background())
	a.dispatch(ctx, input.ActionView)

	select {
	case <-screen.shown:
	case <-time.After(2 * time.Second):
		t.Fatalf("view never reached the display")
	}

	cancel()
	a.shutdown()

	if !screen.wasResumed() {
		t.Fatalf("shutdown returned before the view gave the screen back")
	}
}

func TestSpawnRefusedAfterShutdown(t *testing.T) {
	a := newTestAgent(t, &heldScreen{shown: make(chan struct{})})
	a.shutdown()

	ran := false
	if a.spawn(func() { ran = true }) {
		t.Fatalf("spawn() = true after shutdown, want false")
	}
	if ran {
		t.Fatalf("task ran after shutdown")
	}
}
