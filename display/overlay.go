package display

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"retrohint/hintd/render"
)

const (
	overlayChunkSize = 120
	overlayFinal     = "Press Start to unpause and continue"
	overlayNoText    = "Hint ready - check ai-hints/current-hint.png"
)

// Messenger is the emulator's pause and on-screen message channel
type Messenger interface {
	PauseToggle() error
	ShowMessage(text string) error
}

// Overlay pauses the emulator and shows the hint text through its on-screen
// messages. It needs nothing but the emulator, so it is the last resort.
type Overlay struct {
	logger     *slog.Logger
	emu        Messenger
	ChunkDelay time.Duration
	FinalDelay time.Duration
}

func NewOverlay(logger *slog.Logger, emu Messenger) *Overlay {
	return &Overlay{
		logger:     logger,
		emu:        emu,
		ChunkDelay: 4 * time.Second,
		FinalDelay: 2 * time.Second,
	}
}

func (o *Overlay) present(ctx context.Context, art render.Artifact) (bool, error) {
	var text string
	if art.TextPath != "" {
		data, err := os.ReadFile(art.TextPath)
		if err != nil {
			o.logger.Error("Failed to read hint text", "path", art.TextPath, "error", err)
		}
		text = string(data)
	}

	if err := o.emu.PauseToggle(); err != nil {
		o.logger.Warn("Failed to pause emulator", "error", err)
	}

	chunks := Chunks(text, overlayChunkSize)
	if len(chunks) == 0 {
		o.show(overlayNoText)
	} else {
		for _, c := range chunks {
			o.show(c)
			sleep(ctx, o.ChunkDelay)
		}
		o.show(overlayFinal)
	}
	o.logger.Info("Hint displayed via on-screen messages", "messages", len(chunks))

	sleep(ctx, o.FinalDelay)
	return true, nil
}

func (o *Overlay) show(msg string) {
	if err := o.emu.ShowMessage(msg); err != nil {
		o.logger.Warn("Failed to show message", "error", err)
	}
}

// Chunks splits text at word boundaries into pieces of at most size
// characters. Whitespace, newlines included, collapses to single spaces.
func Chunks(text string, size int) []string {
	var chunks []string
	var current strings.Builder

	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+1+len(word) > size {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
