package quota

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileName is the counter file kept in the hints directory
const FileName = "usage_counter.json"

// HistoryDays bounds the per-day history kept after rollover
const HistoryDays = 30

const dateLayout = "2006-01-02"

// DayCount is one finished day in the history
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Record is the persisted counter state
type Record struct {
	Date    string     `json:"date"`
	Count   int        `json:"count"`
	History []DayCount `json:"history"`
}

// Stats is a read-only snapshot of today's usage
type Stats struct {
	Date      string     `json:"date"`
	Used      int        `json:"used"`
	Limit     int        `json:"limit"`
	Remaining int        `json:"remaining"` // -1 when unlimited
	History   []DayCount `json:"history"`
}

// Limiter enforces a per-calendar-day request limit. Every call runs
// rollover and the read or increment under one lock, so two callers can
// never both act on a stale day.
type Limiter struct {
	logger *slog.Logger
	path   string
	limit  int

	// Now is the clock; local time decides the calendar day
	Now func() time.Time

	mu     sync.Mutex
	record Record
}

// NewLimiter loads the counter from dir. A missing or unreadable file starts fresh.
func NewLimiter(logger *slog.Logger, dir string, limit int) *Limiter {
	l := &Limiter{
		logger: logger.With("component", "quota"),
		path:   filepath.Join(dir, FileName),
		limit:  limit,
		Now:    time.Now,
	}
	l.record = l.load()
	return l
}

// Limit returns the configured daily limit; 0 or less means unlimited
func (l *Limiter) Limit() int {
	return l.limit
}

// Path is the counter file
func (l *Limiter) Path() string {
	return l.path
}

// CanMakeRequest reports whether another request fits today's quota
func (l *Limiter) CanMakeRequest() (allowed bool, used int, limit int) {
	if l.limit <= 0 {
		return true, 0, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollover()
	return l.record.Count < l.limit, l.record.Count, l.limit
}

// RecordRequest counts one completed request against today
func (l *Limiter) RecordRequest() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollover()
	l.record.Count++
	if err := l.save(); err != nil {
		l.logger.Error("Failed to persist usage counter", "error", err)
	}

	remaining := -1
	if l.limit > 0 {
		remaining = max(0, l.limit-l.record.Count)
	}
	l.logger.Info("Request recorded", "used", l.record.Count, "limit", l.limit, "remaining", remaining)
}

// UsageStats returns today's usage, rolling over first
func (l *Limiter) UsageStats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollover()

	remaining := -1
	if l.limit > 0 {
		remaining = max(0, l.limit-l.record.Count)
	}
	history := make([]DayCount, len(l.record.History))
	copy(history, l.record.History)

	return Stats{
		Date:      l.record.Date,
		Used:      l.record.Count,
		Limit:     l.limit,
		Remaining: remaining,
		History:   history,
	}
}

// rollover moves a finished day into history. Callers hold mu.
func (l *Limiter) rollover() {
	today := l.Now().Format(dateLayout)
	if l.record.Date == today {
		return
	}

	if l.record.Date != "" && l.record.Count > 0 {
		l.record.History = append(l.record.History, DayCount{Date: l.record.Date, Count: l.record.Count})
		if n := len(l.record.History); n > HistoryDays {
			l.record.History = append([]DayCount(nil), l.record.History[n-HistoryDays:]...)
		}
	}
	l.record.Date = today
	l.record.Count = 0

	if err := l.save(); err != nil {
		l.logger.Error("Failed to persist usage counter", "error", err)
	}
	l.logger.Info("New day, usage counter reset", "date", today)
}

func (l *Limiter) load() Record {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Error("Failed to read usage counter", "path", l.path, "error", err)
		}
		return Record{}
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		l.logger.Error("Failed to parse usage counter, starting fresh", "path", l.path, "error", err)
		return Record{}
	}
	if r.Count < 0 {
		r.Count = 0
	}
	l.logger.Debug("Loaded usage counter", "date", r.Date, "count", r.Count, "history", len(r.History))
	return r
}

// save replaces the counter file atomically so a crash leaves either the
// old or the new state on disk, never a torn file
func (l *Limiter) save() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create counter directory: %w", err)
	}

	data, err := json.MarshalIndent(l.record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode usage counter: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".usage-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write usage counter: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync usage counter: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close usage counter: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("failed to replace usage counter: %w", err)
	}
	return nil
}
