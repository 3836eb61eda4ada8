package archive

import "time"

// Candidate is a game as listed by the archive's schedule search. Transient:
// produced per search call, scored by the matcher, never persisted on its own.
type Candidate struct {
	ID       string
	HomeTeam string
	AwayTeam string
	Date     time.Time
}

// ParsedGame is the typed form of one archive play-by-play document. It is a
// read-only transformation of the input bytes; the orchestrator projects it
// into the historical-game row rather than persisting it whole.
type ParsedGame struct {
	Metadata GameMetadata
	Status   GameStatus
	Home     TeamStats
	Away     TeamStats
	Plays    []PlayEvent
}

// GameMetadata describes the contest itself.
type GameMetadata struct {
	ArchiveID     string
	CompetitionID string
	Date          time.Time
	Venue         string
	Attendance    int
	NeutralSite   bool
	Postseason    bool
	HomeID        string
	HomeName      string
	AwayID        string
	AwayName      string
}

// GameStatus is the contest's progress at document time.
type GameStatus struct {
	Completed bool
	Period    int
	Clock     string
}

// TeamStats holds one side's aggregate counts, derived efficiency metrics,
// period-by-period score, and roster stat lines.
type TeamStats struct {
	FieldGoalsMade         int
	FieldGoalsAttempted    int
	ThreePointersMade      int
	ThreePointersAttempted int
	FreeThrowsMade         int
	FreeThrowsAttempted    int
	OffensiveRebounds      int
	DefensiveRebounds      int
	Assists                int
	Steals                 int
	Blocks                 int
	Turnovers              int
	Fouls                  int
	Points                 int

	EffectiveFGPct  float64
	TrueShootingPct float64
	TurnoverRate    float64

	PeriodScores []int
	Players      []PlayerLine
}

// PlayerLine is one player's stat line.
type PlayerLine struct {
	PlayerID               string
	Name                   string
	Minutes                int
	Points                 int
	Rebounds               int
	Assists                int
	FieldGoalsMade         int
	FieldGoalsAttempted    int
	ThreePointersMade      int
	ThreePointersAttempted int
	FreeThrowsMade         int
	FreeThrowsAttempted    int
	Turnovers              int
	Starter                bool
}

// PlayEvent is one entry in the chronological play sequence. Score and the
// shot/assist/foul qualifiers are optional; absent fields stay zero-valued.
type PlayEvent struct {
	Period    int
	Clock     string
	Team      string
	Action    string
	HomeScore int
	AwayScore int
	HasScore  bool
	ShotType  string
	AssistBy  string
	FoulType  string
}
