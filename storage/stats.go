package storage

import (
	"context"
	"fmt"
)

// DailyStats represents usage for a single day
type DailyStats struct {
	Date        string `json:"date"`
	Requests    int    `json:"requests"`
	Generated   int    `json:"generated"`
	Failed      int    `json:"failed"`
	RateLimited int    `json:"rate_limited"`
	Viewed      int    `json:"viewed"`
}

// GameStats represents hints grouped by game
type GameStats struct {
	System   string `json:"system"`
	Game     string `json:"game"`
	Hints    int    `json:"hints"`
	LastHint string `json:"last_hint"`
}

// OverallStats represents usage over a period
type OverallStats struct {
	Requests      int     `json:"requests"`
	Generated     int     `json:"generated"`
	Failed        int     `json:"failed"`
	RateLimited   int     `json:"rate_limited"`
	Viewed        int     `json:"viewed"`
	AvgResponseMs float64 `json:"avg_response_ms"`
	SuccessRate   float64 `json:"success_rate"`
}

// a request is any attempt that got past the quota gate
const requestEvents = `('HINT_GENERATED', 'API_ERROR', 'CAPTURE_FAILED', 'PROCESSING_ERROR')`

const countColumns = `
	COALESCE(SUM(CASE WHEN event IN ` + requestEvents + ` THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN event = 'HINT_GENERATED' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN event IN ('API_ERROR', 'CAPTURE_FAILED', 'PROCESSING_ERROR') THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN event = 'RATE_LIMITED' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN event = 'HINT_VIEWED' THEN 1 ELSE 0 END), 0)`

// GetDailyStats retrieves usage grouped by date for the last N days, newest first
func (db *DB) GetDailyStats(ctx context.Context, days int) ([]DailyStats, error) {
	query := `
		SELECT DATE(timestamp) as date,` + countColumns + `
		FROM usage_events
		WHERE timestamp >= ?
		GROUP BY DATE(timestamp)
		ORDER BY date DESC
	`

	rows, err := db.conn.QueryContext(ctx, query, db.since(days))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []DailyStats
	for rows.Next() {
		var s DailyStats
		err := rows.Scan(&s.Date, &s.Requests, &s.Generated, &s.Failed, &s.RateLimited, &s.Viewed)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetGameStats retrieves hint counts per game for the last N days
func (db *DB) GetGameStats(ctx context.Context, days int) ([]GameStats, error) {
	query := `
		SELECT system, game, COUNT(*) as hints, MAX(timestamp) as last_hint
		FROM hints
		WHERE timestamp >= ?
		GROUP BY system, game
		ORDER BY hints DESC, last_hint DESC
	`

	rows, err := db.conn.QueryContext(ctx, query, db.since(days))
	if err != nil {
		return nil, fmt.Errorf("failed to query game stats: %w", err)
	}
	defer rows.Close()

	var stats []GameStats
	for rows.Next() {
		var s GameStats
		if err := rows.Scan(&s.System, &s.Game, &s.Hints, &s.LastHint); err != nil {
			return nil, fmt.Errorf("failed to scan game stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetOverallStats retrieves totals for the last N days
func (db *DB) GetOverallStats(ctx context.Context, days int) (*OverallStats, error) {
	query := `
		SELECT` + countColumns + `,
			COALESCE(AVG(CASE WHEN event = 'HINT_GENERATED' THEN response_time_ms END), 0)
		FROM usage_events
		WHERE timestamp >= ?
	`

	var stats OverallStats
	err := db.conn.QueryRowContext(ctx, query, db.since(days)).Scan(
		&stats.Requests,
		&stats.Generated,
		&stats.Failed,
		&stats.RateLimited,
		&stats.Viewed,
		&stats.AvgResponseMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query overall stats: %w", err)
	}

	if stats.Requests > 0 {
		stats.SuccessRate = float64(stats.Generated) / float64(stats.Requests)
	}
	return &stats, nil
}
