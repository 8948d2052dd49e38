package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"retrohint/hintd/quota"
	"retrohint/hintd/storage"
	"retrohint/hintd/workflow"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard is opened from other devices on the LAN
	},
}

type StatusSource interface {
	Snapshot() workflow.Snapshot
}

type UsageSource interface {
	UsageStats() quota.Stats
}

// Store is the read side of the usage database
type Store interface {
	GetOverallStats(ctx context.Context, days int) (*storage.OverallStats, error)
	GetDailyStats(ctx context.Context, days int) ([]storage.DailyStats, error)
	GetGameStats(ctx context.Context, days int) ([]storage.GameStats, error)
	GetHints(ctx context.Context, limit, offset int) ([]storage.Hint, error)
	GetHintCount(ctx context.Context) (int, error)
}

// Sources are what the dashboard reports on; DB may be nil
type Sources struct {
	Status    StatusSource
	Usage     UsageSource
	DB        Store
	Technique string
	Provider  string
}

// Server is the read-only status dashboard
type Server struct {
	logger  *slog.Logger
	port    int
	sources Sources
	hub     *Hub
}

// NewServer creates the server and starts its websocket hub
func NewServer(logger *slog.Logger, port int, sources Sources) *Server {
	logger = logger.With("component", "web")
	hub := NewHub(logger)
	go hub.Run()

	return &Server{
		logger:  logger,
		port:    port,
		sources: sources,
		hub:     hub,
	}
}

// Handler returns the dashboard routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/usage", s.handleUsage)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		s.hub.Stop()
	}()

	s.logger.Info("Starting web server", "port", s.port, "url", fmt.Sprintf("http://localhost:%d", s.port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve dashboard: %w", err)
	}
	return nil
}

// Notify pushes a workflow event, followed by fresh usage, to every client
func (s *Server) Notify(e workflow.Event) {
	s.hub.BroadcastMessage(Message{Type: MessageTypeEvent, Data: e})
	if s.sources.Usage != nil && (e.Type == workflow.EventHintReady || e.Type == workflow.EventRequestRejected) {
		s.hub.BroadcastMessage(Message{Type: MessageTypeUsage, Data: s.sources.Usage.UsageStats()})
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Close stops the websocket hub; used when Start was never called
func (s *Server) Close() {
	s.hub.Stop()
}
