package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Event names a usage log entry
type Event string

const (
	EventRateLimited     Event = "RATE_LIMITED"
	EventAPIError        Event = "API_ERROR"
	EventCaptureFailed   Event = "CAPTURE_FAILED"
	EventHintGenerated   Event = "HINT_GENERATED"
	EventProcessingError Event = "PROCESSING_ERROR"
	EventHintViewed      Event = "HINT_VIEWED"
)

// MaxPreview is the number of hint characters kept in a usage entry
const MaxPreview = 100

// UsageEvent is one line of the usage log
type UsageEvent struct {
	ID           int64
	Timestamp    time.Time
	Event        Event
	RequestID    string
	System       string
	Game         string
	Success      bool
	ResponseTime time.Duration
	HintPreview  string
	ErrorMessage string
}

// LogEvent appends e to the usage log. A zero timestamp means now.
func (db *DB) LogEvent(ctx context.Context, e *UsageEvent) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = db.now()
	}
	if r := []rune(e.HintPreview); len(r) > MaxPreview {
		e.HintPreview = string(r[:MaxPreview])
	}

	query := `
		INSERT INTO usage_events (
			timestamp, event, request_id, system, game,
			success, response_time_ms, hint_preview, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var errMsg sql.NullString
	if e.ErrorMessage != "" {
		errMsg = sql.NullString{String: e.ErrorMessage, Valid: true}
	}

	result, err := db.conn.ExecContext(ctx, query,
		formatTime(e.Timestamp), string(e.Event), e.RequestID, e.System, e.Game,
		e.Success, e.ResponseTime.Milliseconds(), e.HintPreview, errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to log usage event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	e.ID = id
	return nil
}

// RecentEvents returns the newest usage entries first
func (db *DB) RecentEvents(ctx context.Context, limit int) ([]UsageEvent, error) {
	query := `
		SELECT id, timestamp, event, request_id, system, game,
			success, response_time_ms, hint_preview, error_message
		FROM usage_events
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage events: %w", err)
	}
	defer rows.Close()

	var events []UsageEvent
	for rows.Next() {
		var e UsageEvent
		var ts, event string
		var responseMs int64
		var errMsg sql.NullString

		err := rows.Scan(&e.ID, &ts, &event, &e.RequestID, &e.System, &e.Game,
			&e.Success, &responseMs, &e.HintPreview, &errMsg)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage event: %w", err)
		}

		e.Timestamp = parseTime(ts)
		e.Event = Event(event)
		e.ResponseTime = time.Duration(responseMs) * time.Millisecond
		e.ErrorMessage = errMsg.String
		events = append(events, e)
	}

	return events, rows.Err()
}
