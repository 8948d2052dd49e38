package quota

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) nextDay() { c.t = c.t.AddDate(0, 0, 1) }

func newTestLimiter(t *testing.T, dir string, limit int) (*Limiter, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)}
	l := NewLimiter(slog.New(slog.NewTextHandler(io.Discard, nil)), dir, limit)
	l.Now = c.now
	return l, c
}

func TestLimitReached(t *testing.T) {
	l, _ := newTestLimiter(t, t.TempDir(), 3)

	for i := 0; i < 3; i++ {
		allowed, used, _ := l.CanMakeRequest()
		if !allowed || used != i {
			t.Fatalf("CanMakeRequest() = %v, %d before request %d, want true, %d", allowed, used, i, i)
		}
		l.RecordRequest()
	}

	allowed, used, limit := l.CanMakeRequest()
	if allowed || used != 3 || limit != 3 {
		t.Fatalf("CanMakeRequest() = %v, %d, %d, want false, 3, 3", allowed, used, limit)
	}
}

func TestUnlimited(t *testing.T) {
	l, _ := newTestLimiter(t, t.TempDir(), 0)
	for i := 0; i < 5; i++ {
		l.RecordRequest()
	}

	allowed, used, limit := l.CanMakeRequest()
	if !allowed || used != 0 || limit != 0 {
		t.Fatalf("CanMakeRequest() = %v, %d, %d, want true, 0, 0", allowed, used, limit)
	}
	if got := l.UsageStats().Remaining; got != -1 {
		t.Fatalf("Remaining = %d, want -1", got)
	}
}

func TestRolloverMovesCountToHistory(t *testing.T) {
	l, c := newTestLimiter(t, t.TempDir(), 2)
	l.RecordRequest()
	l.RecordRequest()

	c.nextDay()
	allowed, used, _ := l.CanMakeRequest()
	if !allowed || used != 0 {
		t.Fatalf("CanMakeRequest() after rollover = %v, %d, want true, 0", allowed, used)
	}

	stats := l.UsageStats()
	if len(stats.History) != 1 || stats.History[0].Date != "2026-03-01" || stats.History[0].Count != 2 {
		t.Fatalf("History = %+v, want [{2026-03-01 2}]", stats.History)
	}
	if stats.Date != "2026-03-02" {
		t.Fatalf("Date = %s, want 2026-03-02", stats.Date)
	}
}

func TestHistoryCapped(t *testing.T) {
	l, c := newTestLimiter(t, t.TempDir(), 10)

	first := c.t.Format(dateLayout)
	for day := 0; day < HistoryDays+1; day++ {
		l.RecordRequest()
		c.nextDay()
	}

	stats := l.UsageStats()
	if len(stats.History) != HistoryDays {
		t.Fatalf("len(History) = %d, want %d", len(stats.History), HistoryDays)
	}
	if stats.History[0].Date == first {
		t.Fatalf("oldest entry %s was not dropped", first)
	}
	second := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local).Format(dateLayout)
	if stats.History[0].Date != second {
		t.Fatalf("History[0].Date = %s, want %s", stats.History[0].Date, second)
	}
}

func TestIdleDayNotInHistory(t *testing.T) {
	l, c := newTestLimiter(t, t.TempDir(), 10)
	l.UsageStats()
	c.nextDay()

	if got := l.UsageStats().History; len(got) != 0 {
		t.Fatalf("History = %+v, want empty", got)
	}
}

func TestPersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	l, c := newTestLimiter(t, dir, 5)
	l.RecordRequest()
	l.RecordRequest()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if r.Count != 2 || r.Date != "2026-03-01" {
		t.Fatalf("persisted = %+v, want count 2 on 2026-03-01", r)
	}

	reloaded, _ := newTestLimiter(t, dir, 5)
	reloaded.Now = c.now
	if _, used, _ := reloaded.CanMakeRequest(); used != 2 {
		t.Fatalf("used after reload = %d, want 2", used)
	}
}

func TestCorruptFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	l, _ := newTestLimiter(t, dir, 1)
	if allowed, used, _ := l.CanMakeRequest(); !allowed || used != 0 {
		t.Fatalf("CanMakeRequest() = %v, %d, want true, 0", allowed, used)
	}
}

func TestConcurrentRecords(t *testing.T) {
	l, _ := newTestLimiter(t, t.TempDir(), 100)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.RecordRequest()
		}()
	}
	wg.Wait()

	if got := l.UsageStats().Used; got != 20 {
		t.Fatalf("Used = %d, want 20", got)
	}
}
