package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

const chimeSampleRate = 48000

// Chime plays a short tone through the default playback device when a hint
// is ready. Playback failures are logged and otherwise ignored.
type Chime struct {
	logger *slog.Logger
	tone   Segment

	// output plays the tone; the malgo device unless replaced
	output func(ctx context.Context) error

	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	playing  bool
	closed   bool
	active   sync.WaitGroup
}

// NewChime prepares the tone and the audio context
func NewChime(logger *slog.Logger, freq float64, d time.Duration) (*Chime, error) {
	logger = logger.With("component", "chime")

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	c := &Chime{
		logger:   logger,
		tone:     Tone(freq, d, chimeSampleRate, 0.4),
		malgoCtx: ctx,
	}
	c.output = c.play
	return c, nil
}

// Play blocks until the tone has been played. Overlapping calls and calls
// after Close are dropped.
func (c *Chime) Play(ctx context.Context) {
	c.mu.Lock()
	if c.playing || c.closed {
		c.mu.Unlock()
		return
	}
	c.playing = true
	c.active.Add(1)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.playing = false
		c.mu.Unlock()
		c.active.Done()
	}()

	if err := c.output(ctx); err != nil {
		c.logger.Warn("Failed to play chime", "error", err)
	}
}

func (c *Chime) play(ctx context.Context) error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = c.tone.SampleRate
	deviceConfig.Alsa.NoMMap = 1

	pending := c.tone.Data
	done := make(chan struct{})
	var once sync.Once

	onData := func(pOutput, pInput []byte, framecount uint32) {
		n := copy(pOutput, pending)
		pending = pending[n:]
		for i := n; i < len(pOutput); i++ {
			pOutput[i] = 0
		}
		if len(pending) == 0 {
			once.Do(func() { close(done) })
		}
	}

	device, err := malgo.InitDevice(c.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onData,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}

	timer := time.NewTimer(c.tone.Duration + time.Second)
	defer timer.Stop()
	select {
	case <-done:
		// let the last period drain
		time.Sleep(50 * time.Millisecond)
	case <-timer.C:
		c.logger.Debug("Chime playback timed out")
	case <-ctx.Done():
	}

	return device.Stop()
}

// Close waits for a tone still playing, then releases the audio context
func (c *Chime) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.active.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.malgoCtx != nil {
		_ = c.malgoCtx.Uninit()
		c.malgoCtx.Free()
		c.malgoCtx = nil
	}
	return nil
}
