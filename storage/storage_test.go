package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	})
	return db
}

func at(day, hour int) time.Time {
	return time.Date(2026, 3, day, hour, 0, 0, 0, time.Local)
}

func TestLogEventTruncatesPreview(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	e := &UsageEvent{
		Event:        EventHintGenerated,
		RequestID:    "req-1",
		System:       "SNES",
		Game:         "Zelda",
		Success:      true,
		ResponseTime: 1500 * time.Millisecond,
		HintPreview:  strings.Repeat("é", 150),
	}
	if err := db.LogEvent(ctx, e); err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}
	if e.ID == 0 {
		t.Fatal("LogEvent() did not set ID")
	}

	events, err := db.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("RecentEvents() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	got := events[0]
	if n := len([]rune(got.HintPreview)); n != MaxPreview {
		t.Fatalf("preview length = %d, want %d", n, MaxPreview)
	}
	if got.ResponseTime != 1500*time.Millisecond {
		t.Fatalf("ResponseTime = %v, want 1.5s", got.ResponseTime)
	}
	if got.Event != EventHintGenerated || got.Game != "Zelda" || !got.Success {
		t.Fatalf("event = %+v", got)
	}
}

func TestSaveAndGetHints(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := &Hint{Timestamp: at(1, 10), System: "SNES", Game: "Zelda", Provider: "anthropic", Model: "m", Text: "Go left", ImagePath: "/a.png"}
	second := &Hint{Timestamp: at(2, 10), System: "NES", Game: "Metroid", Provider: "openai", Model: "m", Text: "Bomb the wall", ImagePath: "/b.png"}
	for _, h := range []*Hint{first, second} {
		if err := db.SaveHint(ctx, h); err != nil {
			t.Fatalf("SaveHint() error = %v", err)
		}
	}
	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("IDs = %q, %q, want distinct", first.ID, second.ID)
	}

	hints, err := db.GetHints(ctx, 10, 0)
	if err != nil {
		t.Fatalf("GetHints() error = %v", err)
	}
	if len(hints) != 2 || hints[0].Game != "Metroid" {
		t.Fatalf("GetHints() = %+v, want Metroid first", hints)
	}
	if !hints[1].Timestamp.Equal(at(1, 10)) {
		t.Fatalf("Timestamp = %v, want %v", hints[1].Timestamp, at(1, 10))
	}

	page, err := db.GetHints(ctx, 1, 1)
	if err != nil {
		t.Fatalf("GetHints(page) error = %v", err)
	}
	if len(page) != 1 || page[0].ID != first.ID {
		t.Fatalf("GetHints(1, 1) = %+v, want first hint", page)
	}

	got, err := db.GetHint(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetHint() error = %v", err)
	}
	if got.Text != "Bomb the wall" {
		t.Fatalf("GetHint().Text = %q", got.Text)
	}

	if _, err := db.GetHint(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetHint(missing) error = %v, want ErrNotFound", err)
	}

	count, err := db.GetHintCount(ctx)
	if err != nil || count != 2 {
		t.Fatalf("GetHintCount() = %d, %v, want 2", count, err)
	}
}

func TestStats(t *testing.T) {
	db := openTestDB(t)
	db.now = func() time.Time { return at(10, 20) }
	ctx := context.Background()

	events := []UsageEvent{
		{Timestamp: at(1, 9), Event: EventHintGenerated, Success: true},
		{Timestamp: at(9, 9), Event: EventHintGenerated, Success: true, ResponseTime: 1000 * time.Millisecond},
		{Timestamp: at(9, 10), Event: EventAPIError},
		{Timestamp: at(10, 9), Event: EventHintGenerated, Success: true, ResponseTime: 3000 * time.Millisecond},
		{Timestamp: at(10, 10), Event: EventRateLimited},
		{Timestamp: at(10, 11), Event: EventHintViewed, Success: true},
	}
	for i := range events {
		if err := db.LogEvent(ctx, &events[i]); err != nil {
			t.Fatalf("LogEvent() error = %v", err)
		}
	}

	daily, err := db.GetDailyStats(ctx, 7)
	if err != nil {
		t.Fatalf("GetDailyStats() error = %v", err)
	}
	if len(daily) != 2 {
		t.Fatalf("len(daily) = %d, want 2 (day 1 is outside the window)", len(daily))
	}
	today := daily[0]
	if today.Date != "2026-03-10" || today.Requests != 1 || today.Generated != 1 || today.RateLimited != 1 || today.Viewed != 1 {
		t.Fatalf("today = %+v", today)
	}
	if daily[1].Failed != 1 || daily[1].Requests != 2 {
		t.Fatalf("yesterday = %+v", daily[1])
	}

	overall, err := db.GetOverallStats(ctx, 7)
	if err != nil {
		t.Fatalf("GetOverallStats() error = %v", err)
	}
	if overall.Requests != 3 || overall.Generated != 2 || overall.Failed != 1 {
		t.Fatalf("overall = %+v", overall)
	}
	if overall.AvgResponseMs != 2000 {
		t.Fatalf("AvgResponseMs = %v, want 2000", overall.AvgResponseMs)
	}

	empty, err := db.GetOverallStats(ctx, 1)
	if err != nil {
		t.Fatalf("GetOverallStats(1) error = %v", err)
	}
	if empty.Requests != 1 || empty.SuccessRate != 1 {
		t.Fatalf("today overall = %+v", empty)
	}
}

func TestGameStats(t *testing.T) {
	db := openTestDB(t)
	db.now = func() time.Time { return at(10, 20) }
	ctx := context.Background()

	for _, h := range []*Hint{
		{Timestamp: at(8, 10), System: "SNES", Game: "Zelda"},
		{Timestamp: at(9, 10), System: "SNES", Game: "Zelda"},
		{Timestamp: at(9, 12), System: "NES", Game: "Metroid"},
	} {
		if err := db.SaveHint(ctx, h); err != nil {
			t.Fatalf("SaveHint() error = %v", err)
		}
	}

	stats, err := db.GetGameStats(ctx, 30)
	if err != nil {
		t.Fatalf("GetGameStats() error = %v", err)
	}
	if len(stats) != 2 || stats[0].Game != "Zelda" || stats[0].Hints != 2 {
		t.Fatalf("GetGameStats() = %+v", stats)
	}
	if stats[0].LastHint != "2026-03-09 10:00:00" {
		t.Fatalf("LastHint = %q", stats[0].LastHint)
	}
}

func TestOpenPathCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.db")
	db, err := OpenPath(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenPath() error = %v", err)
	}
	db.Close()
}
