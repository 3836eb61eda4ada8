package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/fortuna/mnemosyne/internal/discovery"
	"github.com/fortuna/mnemosyne/internal/reconcile"
	"github.com/fortuna/mnemosyne/internal/store"
	"github.com/fortuna/mnemosyne/internal/store/repository"
)

// bulkConcurrency caps how many date reconciliations run at once. The
// shared fetcher still paces archive traffic globally.
const bulkConcurrency = 3

// Handler contains dependencies for HTTP handlers.
type Handler struct {
	db           *store.Database
	runs         *repository.RunRepository
	mappings     *repository.MappingRepository
	resolver     *discovery.Service
	orchestrator *reconcile.Orchestrator
	logger       *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(db *store.Database, runs *repository.RunRepository, mappings *repository.MappingRepository, resolver *discovery.Service, orchestrator *reconcile.Orchestrator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		db:           db,
		runs:         runs,
		mappings:     mappings,
		resolver:     resolver,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// HealthCheck handles health check requests.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := h.db.HealthCheck(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, map[string]string{
		"status":  status,
		"service": "mnemosyne",
	})
}

type reconcileRequest struct {
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	TriggeredBy string `json:"triggered_by"`
}

// TriggerReconcile handles POST /api/v1/reconcile. The run executes
// synchronously; callers are expected to keep ranges small and poll the run
// log for anything bigger.
func (h *Handler) TriggerReconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date range (use YYYY-MM-DD)", err)
		return
	}

	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = "api"
	}

	summary, err := h.orchestrator.Run(r.Context(), start, end, triggeredBy)
	if err != nil {
		respondError(w, http.StatusBadGateway, "Reconciliation run failed", err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

type bulkReconcileRequest struct {
	Dates       []string `json:"dates"`
	TriggeredBy string   `json:"triggered_by"`
}

// TriggerBulkReconcile handles POST /api/v1/reconcile/bulk: one run per
// date, a few dates in flight at a time.
func (h *Handler) TriggerBulkReconcile(w http.ResponseWriter, r *http.Request) {
	var req bulkReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Dates) == 0 {
		respondError(w, http.StatusBadRequest, "No dates given", nil)
		return
	}

	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = "api-bulk"
	}

	type dateResult struct {
		Date    string             `json:"date"`
		Summary *reconcile.Summary `json:"summary,omitempty"`
		Error   string             `json:"error,omitempty"`
	}

	p := pool.NewWithResults[dateResult]().WithMaxGoroutines(bulkConcurrency)
	for _, dateStr := range req.Dates {
		dateStr := dateStr
		p.Go(func() dateResult {
			date, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				return dateResult{Date: dateStr, Error: "invalid date format"}
			}

			summary, err := h.orchestrator.Run(r.Context(), date, date, triggeredBy)
			if err != nil {
				return dateResult{Date: dateStr, Summary: summary, Error: err.Error()}
			}
			return dateResult{Date: dateStr, Summary: summary}
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": p.Wait(),
	})
}

// GetRun handles GET /api/v1/runs/{runID}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runID"]

	run, err := h.runs.GetByID(r.Context(), runID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Run not found", err)
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// ListRuns handles GET /api/v1/runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 10)

	runs, err := h.runs.ListRecent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch runs", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs": runs,
	})
}

// ListMappings handles GET /api/v1/mappings.
func (h *Handler) ListMappings(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)

	mappings, err := h.mappings.ListRecent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch mappings", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"mappings": mappings,
	})
}

type manualMappingRequest struct {
	ArchiveID string `json:"archive_id"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	GameDate  string `json:"game_date"`
}

// SetManualMapping handles PUT /api/v1/mappings/{primaryID}: the operator
// override for games discovery cannot resolve.
func (h *Handler) SetManualMapping(w http.ResponseWriter, r *http.Request) {
	primaryID := mux.Vars(r)["primaryID"]

	var req manualMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ArchiveID == "" {
		respondError(w, http.StatusBadRequest, "archive_id is required", nil)
		return
	}

	gameDate := time.Time{}
	if req.GameDate != "" {
		parsed, err := time.Parse("2006-01-02", req.GameDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid game_date format (use YYYY-MM-DD)", err)
			return
		}
		gameDate = parsed
	}

	mapping, err := h.resolver.SetManualMapping(r.Context(), primaryID, req.ArchiveID, req.HomeTeam, req.AwayTeam, gameDate)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to set mapping", err)
		return
	}

	respondJSON(w, http.StatusOK, mapping)
}

func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	end := start
	if endStr != "" {
		end, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	return start, end, nil
}

func parseLimit(r *http.Request, def int) int {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return def
	}
	if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 500 {
		return l
	}
	return def
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response.
func respondError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}
