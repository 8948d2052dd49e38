package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"retrohint/hintd/workflow"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// intParam reads a positive query parameter, falling back to def
func intParam(r *http.Request, name string, def, minimum int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= minimum {
			return n
		}
	}
	return def
}

// handleStatus returns the coordinator state
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := struct {
		workflow.Snapshot
		Technique string `json:"technique"`
		Provider  string `json:"provider"`
		Clients   int    `json:"clients"`
	}{
		Snapshot:  s.sources.Status.Snapshot(),
		Technique: s.sources.Technique,
		Provider:  s.sources.Provider,
		Clients:   s.hub.Clients(),
	}
	writeJSON(w, response)
}

// handleUsage returns today's quota usage and the per-day history
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.sources.Usage.UsageStats())
}

// handleStats returns statistics for the last ?days=N days
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.sources.DB == nil {
		http.Error(w, "Statistics unavailable", http.StatusServiceUnavailable)
		return
	}

	days := intParam(r, "days", 7, 1)
	ctx := r.Context()

	overall, err := s.sources.DB.GetOverallStats(ctx, days)
	if err != nil {
		s.logger.Error("Failed to get overall stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	daily, err := s.sources.DB.GetDailyStats(ctx, days)
	if err != nil {
		s.logger.Error("Failed to get daily stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	games, err := s.sources.DB.GetGameStats(ctx, days)
	if err != nil {
		s.logger.Error("Failed to get game stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"days":    days,
		"overall": overall,
		"daily":   daily,
		"games":   games,
	})
}

type historyEntry struct {
	ID          string `json:"id"`
	Timestamp   string `json:"timestamp"`
	System      string `json:"system"`
	Game        string `json:"game"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	Text        string `json:"text"`
	ArchivePath string `json:"archive_path,omitempty"`
}

// handleHistory returns paginated hint history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.sources.DB == nil {
		http.Error(w, "History unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := intParam(r, "limit", 50, 1)
	offset := intParam(r, "offset", 0, 0)
	ctx := r.Context()

	hints, err := s.sources.DB.GetHints(ctx, limit, offset)
	if err != nil {
		s.logger.Error("Failed to get hints", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	total, err := s.sources.DB.GetHintCount(ctx)
	if err != nil {
		s.logger.Error("Failed to get hint count", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	entries := make([]historyEntry, 0, len(hints))
	for _, h := range hints {
		entries = append(entries, historyEntry{
			ID:          h.ID,
			Timestamp:   h.Timestamp.Format("2006-01-02T15:04:05"),
			System:      h.System,
			Game:        h.Game,
			Provider:    h.Provider,
			Model:       h.Model,
			Text:        h.Text,
			ArchivePath: h.ArchivePath,
		})
	}

	writeJSON(w, map[string]any{
		"hints":  entries,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
