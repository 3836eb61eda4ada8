package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fortuna/mnemosyne/internal/store"
)

// MappingRepository handles game-id mapping data access.
type MappingRepository struct {
	db *store.Database
}

// NewMappingRepository creates a new mapping repository.
func NewMappingRepository(db *store.Database) *MappingRepository {
	return &MappingRepository{db: db}
}

// GetByPrimaryID finds a mapping by primary-source game id. Returns
// (nil, nil) on a cache miss so callers can branch without sentinel errors.
func (r *MappingRepository) GetByPrimaryID(ctx context.Context, primaryID string) (*store.GameIDMapping, error) {
	query := `
		SELECT primary_id, archive_id, home_team, away_team, game_date,
			confidence, match_method, data_quality, discovered_at, last_fetched
		FROM game_id_mappings
		WHERE primary_id = $1
	`

	m := &store.GameIDMapping{}
	err := r.db.DB().QueryRowContext(ctx, query, primaryID).Scan(
		&m.PrimaryID, &m.ArchiveID, &m.HomeTeam, &m.AwayTeam, &m.GameDate,
		&m.Confidence, &m.MatchMethod, &m.DataQuality, &m.DiscoveredAt, &m.LastFetched,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying mapping: %w", err)
	}

	return m, nil
}

// Upsert creates or replaces the mapping for m.PrimaryID. Re-discovery for
// the same primary id updates the existing row, never duplicates it.
func (r *MappingRepository) Upsert(ctx context.Context, m *store.GameIDMapping) error {
	query := `
		INSERT INTO game_id_mappings
			(primary_id, archive_id, home_team, away_team, game_date,
			confidence, match_method, data_quality, discovered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (primary_id) DO UPDATE SET
			archive_id = EXCLUDED.archive_id,
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			game_date = EXCLUDED.game_date,
			confidence = EXCLUDED.confidence,
			match_method = EXCLUDED.match_method,
			data_quality = EXCLUDED.data_quality,
			discovered_at = EXCLUDED.discovered_at
	`

	discoveredAt := m.DiscoveredAt
	if discoveredAt.IsZero() {
		discoveredAt = time.Now().UTC()
	}

	_, err := r.db.DB().ExecContext(ctx, query,
		m.PrimaryID, m.ArchiveID, m.HomeTeam, m.AwayTeam, m.GameDate,
		m.Confidence, m.MatchMethod, m.DataQuality, discoveredAt,
	)
	if err != nil {
		return fmt.Errorf("upserting mapping %s: %w", m.PrimaryID, err)
	}

	return nil
}

// RecordFetch stamps the fetch outcome for a mapping: when the archive
// document was last retrieved and how complete it was.
func (r *MappingRepository) RecordFetch(ctx context.Context, primaryID, dataQuality string) error {
	query := `
		UPDATE game_id_mappings
		SET data_quality = $2, last_fetched = NOW()
		WHERE primary_id = $1
	`

	_, err := r.db.DB().ExecContext(ctx, query, primaryID, dataQuality)
	if err != nil {
		return fmt.Errorf("recording fetch for %s: %w", primaryID, err)
	}

	return nil
}

// ListRecent returns the most recently discovered mappings.
func (r *MappingRepository) ListRecent(ctx context.Context, limit int) ([]*store.GameIDMapping, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT primary_id, archive_id, home_team, away_team, game_date,
			confidence, match_method, data_quality, discovered_at, last_fetched
		FROM game_id_mappings
		ORDER BY discovered_at DESC
		LIMIT $1
	`

	rows, err := r.db.DB().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*store.GameIDMapping
	for rows.Next() {
		m := &store.GameIDMapping{}
		if err := rows.Scan(
			&m.PrimaryID, &m.ArchiveID, &m.HomeTeam, &m.AwayTeam, &m.GameDate,
			&m.Confidence, &m.MatchMethod, &m.DataQuality, &m.DiscoveredAt, &m.LastFetched,
		); err != nil {
			return nil, fmt.Errorf("scanning mapping: %w", err)
		}
		mappings = append(mappings, m)
	}

	return mappings, rows.Err()
}
