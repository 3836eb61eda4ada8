package primary

import "time"

// Game is a game as known by the primary schedule/result feed. It is an
// immutable per-run snapshot; only its identity fields are compared against
// the archive source, it is never stored verbatim.
type Game struct {
	ID          string
	Sport       string
	Season      string
	Date        time.Time
	HomeTeam    string
	AwayTeam    string
	HomeScore   int
	AwayScore   int
	Completed   bool
	NeutralSite bool
}
