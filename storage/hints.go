package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Hint is one generated hint kept for the history view
type Hint struct {
	ID          string
	Timestamp   time.Time
	System      string
	Game        string
	Provider    string
	Model       string
	Text        string
	ImagePath   string
	ArchivePath string
}

// SaveHint stores h, assigning an ID and timestamp when they are empty
func (db *DB) SaveHint(ctx context.Context, h *Hint) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.Timestamp.IsZero() {
		h.Timestamp = db.now()
	}

	query := `
		INSERT INTO hints (
			id, timestamp, system, game, provider, model, text, image_path, archive_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.conn.ExecContext(ctx, query,
		h.ID, formatTime(h.Timestamp), h.System, h.Game, h.Provider, h.Model,
		h.Text, h.ImagePath, h.ArchivePath,
	)
	if err != nil {
		return fmt.Errorf("failed to save hint: %w", err)
	}
	return nil
}

const hintColumns = `id, timestamp, system, game, provider, model, text, image_path, archive_path`

// GetHints retrieves hints newest first with pagination
func (db *DB) GetHints(ctx context.Context, limit, offset int) ([]Hint, error) {
	query := `SELECT ` + hintColumns + ` FROM hints ORDER BY timestamp DESC, rowid DESC LIMIT ? OFFSET ?`

	rows, err := db.conn.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query hints: %w", err)
	}
	defer rows.Close()

	var hints []Hint
	for rows.Next() {
		h, err := scanHint(rows)
		if err != nil {
			return nil, err
		}
		hints = append(hints, h)
	}

	return hints, rows.Err()
}

// GetHint retrieves one hint by ID
func (db *DB) GetHint(ctx context.Context, id string) (Hint, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+hintColumns+` FROM hints WHERE id = ?`, id)
	h, err := scanHint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Hint{}, fmt.Errorf("hint %s: %w", id, ErrNotFound)
	}
	return h, err
}

// GetHintCount returns the total number of stored hints
func (db *DB) GetHintCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM hints").Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHint(s scanner) (Hint, error) {
	var h Hint
	var ts string
	err := s.Scan(&h.ID, &ts, &h.System, &h.Game, &h.Provider, &h.Model, &h.Text, &h.ImagePath, &h.ArchivePath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Hint{}, err
		}
		return Hint{}, fmt.Errorf("failed to scan hint: %w", err)
	}
	h.Timestamp = parseTime(ts)
	return h, nil
}
