package postprocess

import (
	"context"
	"fmt"
	"log/slog"
)

// Processor rewrites hint text. Processors must not return an error for
// text they simply have nothing to do with.
type Processor func(ctx context.Context, text string) (string, error)

// Pipeline applies its processors in order, each seeing the previous output
type Pipeline struct {
	logger     *slog.Logger
	processors []Processor
}

func NewPipeline(logger *slog.Logger, processors ...Processor) *Pipeline {
	return &Pipeline{
		logger:     logger.With("component", "postprocess"),
		processors: processors,
	}
}

// NewHintPipeline is the cleanup applied to every hint before it is rendered
func NewHintPipeline(logger *slog.Logger) *Pipeline {
	return NewPipeline(logger,
		Trim,
		StripLabel,
		StripMarkdown,
		CollapseWhitespace,
		Truncate(MaxHintLength),
	)
}

// Process stops at the first failing processor and returns the text as it
// was before that step
func (p *Pipeline) Process(ctx context.Context, text string) (string, error) {
	in := len(text)
	for i, proc := range p.processors {
		out, err := proc(ctx, text)
		if err != nil {
			p.logger.Error("Hint cleanup step failed", "step", i, "error", err)
			return text, fmt.Errorf("failed to clean hint at step %d: %w", i, err)
		}
		text = out
	}

	if len(text) != in {
		p.logger.Debug("Hint cleaned", "before", in, "after", len(text))
	}
	return text, nil
}
