package postprocess

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHintPipeline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Try the blue door.", "Try the blue door."},
		{"label", "Hint: Try the blue door.", "Try the blue door."},
		{"bold label", "**Hint:** Try the blue door.", "Try the blue door."},
		{"emphasis", "Use the **hookshot** on the _pillar_.", "Use the hookshot on the pillar."},
		{"code", "Press `Select` twice.", "Press Select twice."},
		{"lines", "  Look up.\n\n- Jump twice\n- Then dash  ", "Look up. Jump twice Then dash"},
		{"heading", "## Next step\nOpen the chest.", "Next step Open the chest."},
		{"snake case kept", "Visit room_b2 next.", "Visit room_b2 next."},
	}

	p := NewHintPipeline(testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Process(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("Process(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("word ", 200)
	got, err := Truncate(MaxHintLength)(context.Background(), long)
	if err != nil {
		t.Fatalf("Truncate() error = %v", err)
	}
	if n := utf8.RuneCountInString(got); n > MaxHintLength {
		t.Fatalf("len = %d, want <= %d", n, MaxHintLength)
	}
	if !strings.HasSuffix(got, "word…") {
		t.Fatalf("Truncate() = ...%q, want a whole word before the ellipsis", got[len(got)-12:])
	}

	short := "short hint"
	if got, _ := Truncate(MaxHintLength)(context.Background(), short); got != short {
		t.Fatalf("Truncate(%q) = %q", short, got)
	}
}

func TestPipelineStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	called := false
	p := NewPipeline(testLogger(),
		func(ctx context.Context, s string) (string, error) { return s, boom },
		func(ctx context.Context, s string) (string, error) { called = true; return s, nil },
	)

	if _, err := p.Process(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("Process() error = %v, want boom", err)
	}
	if called {
		t.Fatalf("processor after the failing one ran")
	}
}
