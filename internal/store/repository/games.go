package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/fortuna/mnemosyne/internal/store"
)

// ErrDuplicateGame is returned when a historical game already exists for a
// primary id. Callers treat it as a non-fatal skip, not a real failure.
var ErrDuplicateGame = errors.New("historical game already exists for primary id")

const uniqueViolation = "23505"

// GameRepository handles historical-game data access.
type GameRepository struct {
	db *store.Database
}

// NewGameRepository creates a new historical-game repository.
func NewGameRepository(db *store.Database) *GameRepository {
	return &GameRepository{db: db}
}

// GetByDateRange returns all backfilled games with a game date inside
// [start, end], inclusive of both endpoints' days.
func (r *GameRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]*store.HistoricalGame, error) {
	startOfRange := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	endOfRange := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	query := `
		SELECT primary_id, archive_id, sport, season, game_date, home_team, away_team,
			home_score, away_score, neutral_site, data_source, play_by_play_available,
			backfill_run_id, backfilled_at
		FROM historical_games
		WHERE game_date >= $1 AND game_date < $2
		ORDER BY game_date
	`

	rows, err := r.db.DB().QueryContext(ctx, query, startOfRange, endOfRange)
	if err != nil {
		return nil, fmt.Errorf("querying historical games: %w", err)
	}
	defer rows.Close()

	var games []*store.HistoricalGame
	for rows.Next() {
		g := &store.HistoricalGame{}
		if err := rows.Scan(
			&g.PrimaryID, &g.ArchiveID, &g.Sport, &g.Season, &g.GameDate, &g.HomeTeam, &g.AwayTeam,
			&g.HomeScore, &g.AwayScore, &g.NeutralSite, &g.DataSource, &g.PlayByPlayAvailable,
			&g.BackfillRunID, &g.BackfilledAt,
		); err != nil {
			return nil, fmt.Errorf("scanning historical game: %w", err)
		}
		games = append(games, g)
	}

	return games, rows.Err()
}

// Save inserts a historical game. Returns ErrDuplicateGame when a row for
// the primary id already exists; the caller decides whether that matters.
func (r *GameRepository) Save(ctx context.Context, g *store.HistoricalGame) error {
	query := `
		INSERT INTO historical_games
			(primary_id, archive_id, sport, season, game_date, home_team, away_team,
			home_score, away_score, neutral_site, data_source, play_by_play_available,
			backfill_run_id, backfilled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	backfilledAt := g.BackfilledAt
	if backfilledAt.IsZero() {
		backfilledAt = time.Now().UTC()
	}

	_, err := r.db.DB().ExecContext(ctx, query,
		g.PrimaryID, g.ArchiveID, g.Sport, g.Season, g.GameDate, g.HomeTeam, g.AwayTeam,
		g.HomeScore, g.AwayScore, g.NeutralSite, g.DataSource, g.PlayByPlayAvailable,
		g.BackfillRunID, backfilledAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("saving game %s: %w", g.PrimaryID, ErrDuplicateGame)
		}
		return fmt.Errorf("saving game %s: %w", g.PrimaryID, err)
	}

	return nil
}
