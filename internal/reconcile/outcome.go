package reconcile

// OutcomeKind classifies what happened to one missing game during a run.
// Per-game trouble is data, not an error: only infrastructure failures
// abort a run.
type OutcomeKind string

const (
	// OutcomeBackfilled means the game was fetched, parsed, and saved.
	OutcomeBackfilled OutcomeKind = "backfilled"

	// OutcomeNotFound means no archive candidate cleared the confidence floor.
	OutcomeNotFound OutcomeKind = "not_found"

	// OutcomeUnavailable means the archive answered definitively that the
	// document does not exist. Retrying will not help.
	OutcomeUnavailable OutcomeKind = "unavailable"

	// OutcomeFetchFailed means the archive fetch kept failing transiently
	// until retries ran out.
	OutcomeFetchFailed OutcomeKind = "fetch_failed"

	// OutcomeMalformed means the document was fetched but its structure was
	// unparseable.
	OutcomeMalformed OutcomeKind = "malformed"

	// OutcomeDuplicate means a historical row already existed for the game.
	OutcomeDuplicate OutcomeKind = "duplicate"
)

// GameOutcome is the per-game result line of a run.
type GameOutcome struct {
	PrimaryID  string      `json:"primary_id"`
	ArchiveID  string      `json:"archive_id,omitempty"`
	HomeTeam   string      `json:"home_team"`
	AwayTeam   string      `json:"away_team"`
	Kind       OutcomeKind `json:"kind"`
	Confidence float64     `json:"confidence,omitempty"`
	Detail     string      `json:"detail,omitempty"`
}

// Summary is the aggregate result of one reconciliation run. Outcomes is a
// bounded sample; the run row in the database carries the authoritative
// counts.
type Summary struct {
	RunID        string        `json:"reconciliation_id"`
	GamesFound   int           `json:"games_found"`
	MissingGames int           `json:"missing_games"`
	Processed    int           `json:"games_processed"`
	Failed       int           `json:"games_failed"`
	Outcomes     []GameOutcome `json:"outcomes,omitempty"`
}
