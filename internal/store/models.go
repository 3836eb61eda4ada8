package store

import (
	"database/sql"
	"time"
)

// MatchMethod records how a game-id mapping was resolved.
type MatchMethod string

const (
	MatchMethodDiscovery MatchMethod = "discovery"
	MatchMethodManual    MatchMethod = "manual"
)

// DataQuality describes how much play-by-play detail the archive document held.
const (
	DataQualityFull    = "full"
	DataQualityPartial = "partial"
	DataQualityNone    = "none"
)

// GameIDMapping is the durable link between a primary-source game id and the
// archive source's contest id. One row per primary id; re-discovery updates
// the row rather than duplicating it. Manual entries always carry
// confidence 1.0.
type GameIDMapping struct {
	PrimaryID    string         `json:"primary_id" db:"primary_id"`
	ArchiveID    string         `json:"archive_id" db:"archive_id"`
	HomeTeam     string         `json:"home_team" db:"home_team"`
	AwayTeam     string         `json:"away_team" db:"away_team"`
	GameDate     time.Time      `json:"game_date" db:"game_date"`
	Confidence   float64        `json:"confidence" db:"confidence"`
	MatchMethod  MatchMethod    `json:"match_method" db:"match_method"`
	DataQuality  sql.NullString `json:"data_quality,omitempty" db:"data_quality"`
	DiscoveredAt time.Time      `json:"discovered_at" db:"discovered_at"`
	LastFetched  sql.NullTime   `json:"last_fetched,omitempty" db:"last_fetched"`
}

// RunStatus is the lifecycle state of a reconciliation run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ReconciliationRun is one orchestrator invocation. Created in the running
// state, updated exactly once at completion or failure, never mutated after.
type ReconciliationRun struct {
	RunID          string         `json:"run_id" db:"run_id"`
	StartedAt      time.Time      `json:"started_at" db:"started_at"`
	CompletedAt    sql.NullTime   `json:"completed_at,omitempty" db:"completed_at"`
	DateRangeStart time.Time      `json:"date_range_start" db:"date_range_start"`
	DateRangeEnd   time.Time      `json:"date_range_end" db:"date_range_end"`
	TriggeredBy    string         `json:"triggered_by" db:"triggered_by"`
	Status         RunStatus      `json:"status" db:"status"`
	GamesFound     int            `json:"games_found" db:"games_found"`
	GamesProcessed int            `json:"games_processed" db:"games_processed"`
	GamesFailed    int            `json:"games_failed" db:"games_failed"`
	ErrorMessage   sql.NullString `json:"error_message,omitempty" db:"error_message"`
}

// HistoricalGame is the backfilled record written once reconciliation
// succeeds for a game. Primary id is unique; a second backfill attempt is a
// duplicate, reported and skipped rather than merged.
type HistoricalGame struct {
	PrimaryID           string         `json:"primary_id" db:"primary_id"`
	ArchiveID           sql.NullString `json:"archive_id,omitempty" db:"archive_id"`
	Sport               string         `json:"sport" db:"sport"`
	Season              string         `json:"season" db:"season"`
	GameDate            time.Time      `json:"game_date" db:"game_date"`
	HomeTeam            string         `json:"home_team" db:"home_team"`
	AwayTeam            string         `json:"away_team" db:"away_team"`
	HomeScore           sql.NullInt32  `json:"home_score,omitempty" db:"home_score"`
	AwayScore           sql.NullInt32  `json:"away_score,omitempty" db:"away_score"`
	NeutralSite         bool           `json:"neutral_site" db:"neutral_site"`
	DataSource          string         `json:"data_source" db:"data_source"`
	PlayByPlayAvailable bool           `json:"play_by_play_available" db:"play_by_play_available"`
	BackfillRunID       sql.NullString `json:"backfill_run_id,omitempty" db:"backfill_run_id"`
	BackfilledAt        time.Time      `json:"backfilled_at" db:"backfilled_at"`
}
