package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fortuna/mnemosyne/internal/store"
)

// RunRepository handles reconciliation run log access. The run log is
// append-only: a row is created in the running state and finalized exactly
// once.
type RunRepository struct {
	db *store.Database
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *store.Database) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run row in the running state.
func (r *RunRepository) Create(ctx context.Context, run *store.ReconciliationRun) error {
	query := `
		INSERT INTO reconciliation_runs
			(run_id, started_at, date_range_start, date_range_end, triggered_by, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.DB().ExecContext(ctx, query,
		run.RunID, run.StartedAt, run.DateRangeStart, run.DateRangeEnd,
		run.TriggeredBy, store.RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("creating run %s: %w", run.RunID, err)
	}

	return nil
}

// MarkCompleted finalizes a run with its aggregate counts.
func (r *RunRepository) MarkCompleted(ctx context.Context, runID string, found, processed, failed int) error {
	query := `
		UPDATE reconciliation_runs
		SET status = $2, completed_at = NOW(),
			games_found = $3, games_processed = $4, games_failed = $5
		WHERE run_id = $1 AND status = $6
	`

	_, err := r.db.DB().ExecContext(ctx, query,
		runID, store.RunStatusCompleted, found, processed, failed, store.RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("completing run %s: %w", runID, err)
	}

	return nil
}

// MarkFailed finalizes a run with an error message. Used both for
// infrastructure failures and for operator cancellation.
func (r *RunRepository) MarkFailed(ctx context.Context, runID, message string, found, processed, failed int) error {
	query := `
		UPDATE reconciliation_runs
		SET status = $2, completed_at = NOW(), error_message = $3,
			games_found = $4, games_processed = $5, games_failed = $6
		WHERE run_id = $1 AND status = $7
	`

	_, err := r.db.DB().ExecContext(ctx, query,
		runID, store.RunStatusFailed, message, found, processed, failed, store.RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failing run %s: %w", runID, err)
	}

	return nil
}

// GetByID finds a run by id.
func (r *RunRepository) GetByID(ctx context.Context, runID string) (*store.ReconciliationRun, error) {
	query := `
		SELECT run_id, started_at, completed_at, date_range_start, date_range_end,
			triggered_by, status, games_found, games_processed, games_failed, error_message
		FROM reconciliation_runs
		WHERE run_id = $1
	`

	run := &store.ReconciliationRun{}
	err := r.db.DB().QueryRowContext(ctx, query, runID).Scan(
		&run.RunID, &run.StartedAt, &run.CompletedAt, &run.DateRangeStart, &run.DateRangeEnd,
		&run.TriggeredBy, &run.Status, &run.GamesFound, &run.GamesProcessed, &run.GamesFailed,
		&run.ErrorMessage,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}

	return run, nil
}

// ListRecent returns the most recently started runs.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]*store.ReconciliationRun, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT run_id, started_at, completed_at, date_range_start, date_range_end,
			triggered_by, status, games_found, games_processed, games_failed, error_message
		FROM reconciliation_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.DB().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*store.ReconciliationRun
	for rows.Next() {
		run := &store.ReconciliationRun{}
		if err := rows.Scan(
			&run.RunID, &run.StartedAt, &run.CompletedAt, &run.DateRangeStart, &run.DateRangeEnd,
			&run.TriggeredBy, &run.Status, &run.GamesFound, &run.GamesProcessed, &run.GamesFailed,
			&run.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
