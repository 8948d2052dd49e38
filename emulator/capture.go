package emulator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrCaptureFailed means no new screenshot appeared after asking for one
var ErrCaptureFailed = errors.New("screenshot capture failed")

// Screenshotter triggers a screenshot in the emulator
type Screenshotter interface {
	Screenshot() error
}

// Capturer asks the emulator for a screenshot and finds the file it wrote
type Capturer struct {
	emu    Screenshotter
	dir    string
	settle time.Duration
	now    func() time.Time
}

func NewCapturer(emu Screenshotter, dir string, settle time.Duration) *Capturer {
	return &Capturer{emu: emu, dir: dir, settle: settle, now: time.Now}
}

// Capture returns the path of the screenshot taken for this call
func (c *Capturer) Capture(ctx context.Context) (string, error) {
	before := c.now()

	if err := c.emu.Screenshot(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	// the emulator writes the file asynchronously
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(c.settle):
	}

	// one second of slack for filesystems with coarse mtimes
	path, err := FindLatest(c.dir, before.Add(-time.Second))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	if path == "" {
		return "", fmt.Errorf("%w: no new screenshot in %s", ErrCaptureFailed, c.dir)
	}
	return path, nil
}

// FindLatest returns the newest *.png in dir modified after since, or ""
func FindLatest(dir string, since time.Time) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read screenshot directory: %w", err)
	}

	var newest string
	newestTime := since
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(newestTime) {
			newestTime = info.ModTime()
			newest = filepath.Join(dir, e.Name())
		}
	}
	return newest, nil
}
