package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fortuna/mnemosyne/internal/batch"
	"github.com/fortuna/mnemosyne/internal/discovery"
	"github.com/fortuna/mnemosyne/internal/fetch"
	"github.com/fortuna/mnemosyne/internal/ingest/archive"
	"github.com/fortuna/mnemosyne/internal/ingest/primary"
	"github.com/fortuna/mnemosyne/internal/store"
	"github.com/fortuna/mnemosyne/internal/store/repository"
)

// PrimaryFeed lists the authoritative schedule for a date range.
type PrimaryFeed interface {
	GetGamesByDateRange(ctx context.Context, start, end time.Time) ([]primary.Game, error)
}

// GameStore reads and writes backfilled historical games.
type GameStore interface {
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*store.HistoricalGame, error)
	Save(ctx context.Context, game *store.HistoricalGame) error
}

// RunLog persists run lifecycle state.
type RunLog interface {
	Create(ctx context.Context, run *store.ReconciliationRun) error
	MarkCompleted(ctx context.Context, runID string, found, processed, failed int) error
	MarkFailed(ctx context.Context, runID, message string, found, processed, failed int) error
}

// Resolver maps a primary game to its archive id.
type Resolver interface {
	Discover(ctx context.Context, game primary.Game) (*discovery.Resolution, error)
}

// DocumentSource fetches raw archive play-by-play documents.
type DocumentSource interface {
	FetchDocument(ctx context.Context, archiveID string) ([]byte, error)
}

// DocumentParser turns document bytes into a parsed game.
type DocumentParser interface {
	Parse(document []byte) (*archive.ParsedGame, error)
}

// FetchRecorder stamps fetch outcomes onto the mapping table.
type FetchRecorder interface {
	RecordFetch(ctx context.Context, primaryID, dataQuality string) error
}

// ProgressNotifier receives batched per-game outcomes as a run advances.
type ProgressNotifier interface {
	Publish(runID string, outcomes []GameOutcome)
}

// Config tunes the orchestrator.
type Config struct {
	// InterGameDelay is the pause between consecutive archive games.
	InterGameDelay time.Duration

	// ProgressBatchSize is how many outcomes accumulate before a progress
	// publish.
	ProgressBatchSize int

	// MaxOutcomeSample bounds the per-game detail kept in the summary.
	MaxOutcomeSample int

	// Sport and DataSource label the historical rows this run writes.
	Sport      string
	DataSource string
}

// DefaultConfig returns the production orchestrator settings.
func DefaultConfig() Config {
	return Config{
		InterGameDelay:    2 * time.Second,
		ProgressBatchSize: 25,
		MaxOutcomeSample:  200,
		Sport:             "mens-college-basketball",
		DataSource:        "archive",
	}
}

// Orchestrator drives one reconciliation pass: list the primary schedule,
// diff it against what is already backfilled, and work through the missing
// games one at a time. Archive traffic is strictly sequential with a fixed
// pause between games.
type Orchestrator struct {
	cfg      Config
	feed     PrimaryFeed
	games    GameStore
	runs     RunLog
	resolver Resolver
	docs     DocumentSource
	parser   DocumentParser
	recorder FetchRecorder
	notifier ProgressNotifier
	logger   *zap.Logger
}

// NewOrchestrator creates an orchestrator. recorder and notifier may be nil.
func NewOrchestrator(
	cfg Config,
	feed PrimaryFeed,
	games GameStore,
	runs RunLog,
	resolver Resolver,
	docs DocumentSource,
	parser DocumentParser,
	recorder FetchRecorder,
	notifier ProgressNotifier,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProgressBatchSize <= 0 {
		cfg.ProgressBatchSize = 25
	}
	if cfg.MaxOutcomeSample <= 0 {
		cfg.MaxOutcomeSample = 200
	}

	return &Orchestrator{
		cfg:      cfg,
		feed:     feed,
		games:    games,
		runs:     runs,
		resolver: resolver,
		docs:     docs,
		parser:   parser,
		recorder: recorder,
		notifier: notifier,
		logger:   logger,
	}
}

// Run reconciles the date range. Infrastructure failures abort the run and
// return an error; per-game trouble is recorded in the summary and the run
// completes. Context cancellation between games finalizes the run as failed
// with the cancellation reason.
func (o *Orchestrator) Run(ctx context.Context, start, end time.Time, triggeredBy string) (*Summary, error) {
	runID := uuid.NewString()

	run := &store.ReconciliationRun{
		RunID:          runID,
		StartedAt:      time.Now().UTC(),
		DateRangeStart: start,
		DateRangeEnd:   end,
		TriggeredBy:    triggeredBy,
		Status:         store.RunStatusRunning,
	}
	if err := o.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	o.logger.Info("reconciliation run started",
		zap.String("run_id", runID),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.String("triggered_by", triggeredBy))

	summary, err := o.reconcile(ctx, runID, start, end)
	if err != nil {
		o.finalizeFailed(runID, err.Error(), summary)
		return summary, err
	}

	if err := o.runs.MarkCompleted(ctx, runID, summary.GamesFound, summary.Processed, summary.Failed); err != nil {
		o.logger.Error("finalizing run", zap.String("run_id", runID), zap.Error(err))
	}

	o.logger.Info("reconciliation run completed",
		zap.String("run_id", runID),
		zap.Int("found", summary.GamesFound),
		zap.Int("missing", summary.MissingGames),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

func (o *Orchestrator) reconcile(ctx context.Context, runID string, start, end time.Time) (*Summary, error) {
	summary := &Summary{RunID: runID}

	primaryGames, err := o.feed.GetGamesByDateRange(ctx, start, end)
	if err != nil {
		return summary, fmt.Errorf("listing primary schedule: %w", err)
	}
	summary.GamesFound = len(primaryGames)

	existing, err := o.games.GetByDateRange(ctx, start, end)
	if err != nil {
		return summary, fmt.Errorf("listing backfilled games: %w", err)
	}

	missing := missingGames(primaryGames, existing)
	summary.MissingGames = len(missing)

	o.logger.Info("schedule diffed",
		zap.String("run_id", runID),
		zap.Int("primary", len(primaryGames)),
		zap.Int("backfilled", len(existing)),
		zap.Int("missing", len(missing)))

	progress := batch.NewBuffer(o.cfg.ProgressBatchSize, func(outcomes []GameOutcome) {
		if o.notifier != nil {
			o.notifier.Publish(runID, outcomes)
		}
	})
	defer progress.Flush()

	for i, game := range missing {
		if i > 0 {
			if err := o.pause(ctx); err != nil {
				return summary, fmt.Errorf("run cancelled after %d of %d games: %w",
					i, len(missing), err)
			}
		}

		outcome := o.processGame(ctx, runID, game)
		if outcome.Kind == OutcomeBackfilled || outcome.Kind == OutcomeDuplicate {
			summary.Processed++
		} else {
			summary.Failed++
		}

		if len(summary.Outcomes) < o.cfg.MaxOutcomeSample {
			summary.Outcomes = append(summary.Outcomes, outcome)
		}
		progress.Push(outcome)
	}

	return summary, nil
}

// processGame runs the per-game pipeline: resolve, fetch, parse, save.
// Every exit path produces an outcome; none of them aborts the run.
func (o *Orchestrator) processGame(ctx context.Context, runID string, game primary.Game) GameOutcome {
	outcome := GameOutcome{
		PrimaryID: game.ID,
		HomeTeam:  game.HomeTeam,
		AwayTeam:  game.AwayTeam,
	}

	res, err := o.resolver.Discover(ctx, game)
	if err != nil {
		outcome.Kind = OutcomeFetchFailed
		outcome.Detail = err.Error()
		return outcome
	}
	if res == nil {
		outcome.Kind = OutcomeNotFound
		return outcome
	}
	outcome.ArchiveID = res.ArchiveID
	outcome.Confidence = res.Confidence

	document, err := o.docs.FetchDocument(ctx, res.ArchiveID)
	if err != nil {
		if fetch.IsTerminal(err) {
			outcome.Kind = OutcomeUnavailable
		} else {
			outcome.Kind = OutcomeFetchFailed
		}
		outcome.Detail = err.Error()
		o.recordFetch(ctx, game.ID, store.DataQualityNone)
		return outcome
	}

	parsed, err := o.parser.Parse(document)
	if err != nil {
		outcome.Kind = OutcomeMalformed
		outcome.Detail = err.Error()
		o.recordFetch(ctx, game.ID, store.DataQualityNone)
		return outcome
	}

	historical := o.buildHistorical(runID, game, res, parsed)
	o.recordFetch(ctx, game.ID, dataQuality(parsed))

	if err := o.games.Save(ctx, historical); err != nil {
		if errors.Is(err, repository.ErrDuplicateGame) {
			outcome.Kind = OutcomeDuplicate
			return outcome
		}
		outcome.Kind = OutcomeFetchFailed
		outcome.Detail = err.Error()
		return outcome
	}

	outcome.Kind = OutcomeBackfilled
	return outcome
}

func (o *Orchestrator) buildHistorical(runID string, game primary.Game, res *discovery.Resolution, parsed *archive.ParsedGame) *store.HistoricalGame {
	homeScore := game.HomeScore
	awayScore := game.AwayScore
	// The archive document is the richer source when it carries a final score.
	if parsed.Home.Points > 0 || parsed.Away.Points > 0 {
		homeScore = parsed.Home.Points
		awayScore = parsed.Away.Points
	}

	return &store.HistoricalGame{
		PrimaryID:           game.ID,
		ArchiveID:           sql.NullString{String: res.ArchiveID, Valid: true},
		Sport:               o.cfg.Sport,
		Season:              game.Season,
		GameDate:            game.Date,
		HomeTeam:            game.HomeTeam,
		AwayTeam:            game.AwayTeam,
		HomeScore:           sql.NullInt32{Int32: int32(homeScore), Valid: true},
		AwayScore:           sql.NullInt32{Int32: int32(awayScore), Valid: true},
		NeutralSite:         game.NeutralSite || parsed.Metadata.NeutralSite,
		DataSource:          o.cfg.DataSource,
		PlayByPlayAvailable: len(parsed.Plays) > 0,
		BackfillRunID:       sql.NullString{String: runID, Valid: true},
		BackfilledAt:        time.Now().UTC(),
	}
}

func (o *Orchestrator) recordFetch(ctx context.Context, primaryID, quality string) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordFetch(ctx, primaryID, quality); err != nil {
		o.logger.Warn("recording fetch quality", zap.String("primary_id", primaryID), zap.Error(err))
	}
}

// pause waits the inter-game delay, returning early on cancellation.
func (o *Orchestrator) pause(ctx context.Context) error {
	if o.cfg.InterGameDelay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(o.cfg.InterGameDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (o *Orchestrator) finalizeFailed(runID, message string, summary *Summary) {
	// The run's own context may already be cancelled; finalization gets its
	// own deadline so the failure is still recorded.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	found, processed, failed := 0, 0, 0
	if summary != nil {
		found, processed, failed = summary.GamesFound, summary.Processed, summary.Failed
	}

	if err := o.runs.MarkFailed(ctx, runID, message, found, processed, failed); err != nil {
		o.logger.Error("finalizing failed run", zap.String("run_id", runID), zap.Error(err))
	}
}

// dataQuality grades a parsed document: full when it carries the play
// sequence for a finished game, partial when plays are thin or the game
// never finished, none when the play log is empty.
func dataQuality(parsed *archive.ParsedGame) string {
	switch {
	case len(parsed.Plays) == 0:
		return store.DataQualityNone
	case parsed.Status.Completed:
		return store.DataQualityFull
	default:
		return store.DataQualityPartial
	}
}

// missingGames returns the completed primary games with no historical row,
// preserving the feed's order.
func missingGames(primaryGames []primary.Game, existing []*store.HistoricalGame) []primary.Game {
	backfilled := make(map[string]struct{}, len(existing))
	for _, g := range existing {
		backfilled[g.PrimaryID] = struct{}{}
	}

	var missing []primary.Game
	for _, g := range primaryGames {
		if !g.Completed {
			continue
		}
		if _, ok := backfilled[g.ID]; ok {
			continue
		}
		missing = append(missing, g)
	}

	return missing
}
