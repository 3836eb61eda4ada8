package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fortuna/mnemosyne/internal/reconcile"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // admin tool, same-host deployments
	},
}

// Server streams reconciliation progress to connected clients.
type Server struct {
	port   string
	server *http.Server
	hub    *Hub
	logger *zap.Logger
}

// NewServer creates a new WebSocket server.
func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		hub:    NewHub(logger),
		logger: logger,
	}
}

// Start starts the WebSocket server.
func (s *Server) Start(port string) error {
	s.port = port

	go s.hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/progress", s.handleProgress)
	mux.HandleFunc("/ws/health", s.handleHealth)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: mux,
	}

	s.logger.Info("websocket server listening", zap.String("port", port))
	return s.server.ListenAndServe()
}

// handleProgress upgrades a connection and subscribes it to run progress.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// handleHealth returns WebSocket server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "healthy", "clients": %d}`, s.hub.ClientCount())
}

// progressMessage is the wire format for one progress batch.
type progressMessage struct {
	Type      string                  `json:"type"`
	RunID     string                  `json:"run_id"`
	Timestamp time.Time               `json:"timestamp"`
	Outcomes  []reconcile.GameOutcome `json:"outcomes"`
}

// Publish broadcasts a batch of per-game outcomes. Implements the
// orchestrator's progress notifier.
func (s *Server) Publish(runID string, outcomes []reconcile.GameOutcome) {
	msg := progressMessage{
		Type:      "reconcile_progress",
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		Outcomes:  outcomes,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn("encoding progress message", zap.Error(err))
		return
	}

	s.hub.Broadcast(data)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
