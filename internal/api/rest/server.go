package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server is the admin REST API: trigger reconciliation runs, inspect the
// run log, and manage game-id mappings.
type Server struct {
	port    string
	server  *http.Server
	handler *Handler
}

// NewServer creates a new REST API server.
func NewServer(port string, handler *Handler, logger *zap.Logger) *Server {
	router := mux.NewRouter()

	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware)

	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Reconciliation
	api.HandleFunc("/reconcile", handler.TriggerReconcile).Methods("POST")
	api.HandleFunc("/reconcile/bulk", handler.TriggerBulkReconcile).Methods("POST")

	// Run log
	api.HandleFunc("/runs", handler.ListRuns).Methods("GET")
	api.HandleFunc("/runs/{runID}", handler.GetRun).Methods("GET")

	// Mappings
	api.HandleFunc("/mappings", handler.ListMappings).Methods("GET")
	api.HandleFunc("/mappings/{primaryID}", handler.SetManualMapping).Methods("PUT")

	return &Server{
		port:    port,
		handler: handler,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%s", port),
			Handler: router,
		},
	}
}

// Start starts the REST API server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
