package display

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"retrohint/hintd/render"
)

var execCommand = exec.CommandContext

// viewer command lines, image path appended
var (
	mpvArgs = []string{"--vo=drm", "--image-display-duration=inf", "--really-quiet", "--no-osc", "--no-input-default-bindings"}
	fbvArgs = []string{"-c", "-f", "-i"}
	fbiArgs = []string{"-T", "1", "-a", "--noverbose"}
	fehArgs = []string{"-F", "-Z"}
)

// startViewer starts cmd and pushes its termination onto rb. The returned
// channel is closed once the process has exited.
func startViewer(cmd *exec.Cmd, rb *rollback) (<-chan struct{}, error) {
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}

	exited := make(chan struct{})
	go func() {
		cmd.Wait()
		close(exited)
	}()

	rb.push(func() {
		select {
		case <-exited:
			return
		default:
		}
		cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-exited:
		case <-time.After(2 * time.Second):
			cmd.Process.Kill()
			<-exited
		}
	})
	return exited, nil
}

// waitViewer returns when the player presses a button, the viewer exits on
// its own (true), or the timeout passes (false)
func (h *handover) waitViewer(ctx context.Context, waiter DismissWaiter, timeout time.Duration, exited <-chan struct{}) bool {
	if waiter != nil {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-exited:
				cancel()
			case <-wctx.Done():
			}
		}()

		pressed, err := waiter.WaitForPress(wctx, timeout)
		select {
		case <-exited:
			return true
		default:
		}
		if err == nil {
			return pressed
		}
		h.logger.Debug("Button wait unavailable, waiting for viewer to exit", "error", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-exited:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// PlayerDRM shows the hint with mpv on the DRM output while the emulator is frozen
type PlayerDRM struct {
	handover
	waiter  DismissWaiter
	timeout time.Duration
}

func (p *PlayerDRM) present(ctx context.Context, art render.Artifact) (bool, error) {
	var rb rollback
	defer rb.unwind()

	if err := p.suspend(ctx, &rb); err != nil {
		return false, err
	}
	// mpv needs a moment to drop DRM master before the emulator resumes
	rb.push(func() { time.Sleep(p.timings.PlayerRelease) })

	exited, err := startViewer(execCommand(ctx, "mpv", append(mpvArgs, art.ImagePath)...), &rb)
	if err != nil {
		return false, err
	}
	sleep(ctx, p.timings.PlayerStart)

	return p.waitViewer(ctx, p.waiter, p.timeout, exited), nil
}

// FBViewer shows the hint with fbv on a text VT while the emulator is frozen
type FBViewer struct {
	handover
	waiter  DismissWaiter
	timeout time.Duration
}

func (v *FBViewer) present(ctx context.Context, art render.Artifact) (bool, error) {
	var rb rollback
	defer rb.unwind()

	current := v.activeVT()
	if err := v.suspend(ctx, &rb); err != nil {
		return false, err
	}
	if err := v.switchAway(ctx, &rb, current); err != nil {
		return false, err
	}

	exited, err := startViewer(execCommand(ctx, "fbv", append(fbvArgs, art.ImagePath)...), &rb)
	if err != nil {
		return false, err
	}
	return v.waitViewer(ctx, v.waiter, v.timeout, exited), nil
}

// ModalViewer runs a viewer that owns the screen and exits on its own when
// the player presses a key (fbi, feh)
type ModalViewer struct {
	binary  string
	args    []string
	timeout time.Duration
}

func (m *ModalViewer) present(ctx context.Context, art render.Artifact) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := execCommand(ctx, m.binary, append(m.args, art.ImagePath)...).Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		// killed at the timeout; the hint was on screen
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s failed: %w", m.binary, err)
	}
	return true, nil
}
