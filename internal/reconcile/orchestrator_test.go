package reconcile

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fortuna/mnemosyne/internal/discovery"
	"github.com/fortuna/mnemosyne/internal/fetch"
	"github.com/fortuna/mnemosyne/internal/ingest/archive"
	"github.com/fortuna/mnemosyne/internal/ingest/primary"
	"github.com/fortuna/mnemosyne/internal/store"
	"github.com/fortuna/mnemosyne/internal/store/repository"
)

type stubFeed struct {
	games []primary.Game
	err   error
}

func (s *stubFeed) GetGamesByDateRange(_ context.Context, _, _ time.Time) ([]primary.Game, error) {
	return s.games, s.err
}

type stubGameStore struct {
	mu       sync.Mutex
	existing []*store.HistoricalGame
	saved    []*store.HistoricalGame
	saveErr  error
}

func (s *stubGameStore) GetByDateRange(_ context.Context, _, _ time.Time) ([]*store.HistoricalGame, error) {
	return s.existing, nil
}

func (s *stubGameStore) Save(_ context.Context, game *store.HistoricalGame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	for _, g := range s.saved {
		if g.PrimaryID == game.PrimaryID {
			return repository.ErrDuplicateGame
		}
	}
	s.saved = append(s.saved, game)
	return nil
}

type stubRunLog struct {
	created    *store.ReconciliationRun
	completed  bool
	failed     bool
	failReason string
}

func (s *stubRunLog) Create(_ context.Context, run *store.ReconciliationRun) error {
	s.created = run
	return nil
}

func (s *stubRunLog) MarkCompleted(_ context.Context, _ string, _, _, _ int) error {
	s.completed = true
	return nil
}

func (s *stubRunLog) MarkFailed(_ context.Context, _ string, message string, _, _, _ int) error {
	s.failed = true
	s.failReason = message
	return nil
}

type stubResolver struct {
	byPrimary map[string]*discovery.Resolution
	calls     int
}

func (s *stubResolver) Discover(_ context.Context, game primary.Game) (*discovery.Resolution, error) {
	s.calls++
	return s.byPrimary[game.ID], nil
}

type stubDocs struct {
	byArchive map[string][]byte
	errs      map[string]error
	calls     int
}

func (s *stubDocs) FetchDocument(_ context.Context, archiveID string) ([]byte, error) {
	s.calls++
	if err := s.errs[archiveID]; err != nil {
		return nil, err
	}
	return s.byArchive[archiveID], nil
}

type stubParser struct {
	parsed *archive.ParsedGame
	err    error
}

func (s *stubParser) Parse(_ []byte) (*archive.ParsedGame, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.parsed != nil {
		return s.parsed, nil
	}
	return &archive.ParsedGame{
		Home:  archive.TeamStats{Points: 80},
		Away:  archive.TeamStats{Points: 75},
		Plays: []archive.PlayEvent{{Period: 1, Action: "Tipoff"}},
	}, nil
}

type recordedNotify struct {
	runID    string
	outcomes []GameOutcome
}

type stubNotifier struct {
	mu      sync.Mutex
	batches []recordedNotify
}

func (s *stubNotifier) Publish(runID string, outcomes []GameOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := recordedNotify{runID: runID, outcomes: append([]GameOutcome(nil), outcomes...)}
	s.batches = append(s.batches, batch)
}

func feedGame(id, home, away string) primary.Game {
	return primary.Game{
		ID:        id,
		Season:    "2024-25",
		Date:      time.Date(2024, 11, 15, 19, 0, 0, 0, time.UTC),
		HomeTeam:  home,
		AwayTeam:  away,
		HomeScore: 70,
		AwayScore: 65,
		Completed: true,
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.InterGameDelay = 0
	return cfg
}

func newTestOrchestrator(feed *stubFeed, games *stubGameStore, runs *stubRunLog, resolver *stubResolver, docs *stubDocs, parser *stubParser, notifier ProgressNotifier) *Orchestrator {
	return NewOrchestrator(testConfig(), feed, games, runs, resolver, docs, parser, nil, notifier, zap.NewNop())
}

func TestRunBackfillsMissingGames(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{games: []primary.Game{
		feedGame("g1", "Kansas", "Duke"),
		feedGame("g2", "Gonzaga", "UCLA"),
		feedGame("g3", "Houston", "Baylor"),
	}}
	games := &stubGameStore{existing: []*store.HistoricalGame{{PrimaryID: "g2"}}}
	runs := &stubRunLog{}
	resolver := &stubResolver{byPrimary: map[string]*discovery.Resolution{
		"g1": {ArchiveID: "A1", Confidence: 0.95, Source: discovery.SourceDiscovery},
		"g3": {ArchiveID: "A3", Confidence: 0.88, Source: discovery.SourceCache},
	}}
	docs := &stubDocs{byArchive: map[string][]byte{"A1": []byte("doc1"), "A3": []byte("doc3")}}

	o := newTestOrchestrator(feed, games, runs, resolver, docs, &stubParser{}, nil)

	summary, err := o.Run(context.Background(), time.Now(), time.Now(), "test")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.GamesFound)
	assert.Equal(t, 2, summary.MissingGames)
	assert.Equal(t, 2, summary.Processed)
	assert.Zero(t, summary.Failed)
	assert.True(t, runs.completed)
	assert.False(t, runs.failed)

	require.Len(t, games.saved, 2)
	saved := games.saved[0]
	assert.Equal(t, "g1", saved.PrimaryID)
	assert.Equal(t, "A1", saved.ArchiveID.String)
	// Archive score wins over the feed score.
	assert.Equal(t, int32(80), saved.HomeScore.Int32)
	assert.Equal(t, int32(75), saved.AwayScore.Int32)
	assert.True(t, saved.PlayByPlayAvailable)
	assert.Equal(t, summary.RunID, saved.BackfillRunID.String)
}

func TestRunAllBackfilledTouchesNothing(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{games: []primary.Game{feedGame("g1", "Kansas", "Duke")}}
	games := &stubGameStore{existing: []*store.HistoricalGame{{PrimaryID: "g1"}}}
	runs := &stubRunLog{}
	resolver := &stubResolver{}
	docs := &stubDocs{}

	o := newTestOrchestrator(feed, games, runs, resolver, docs, &stubParser{}, nil)

	summary, err := o.Run(context.Background(), time.Now(), time.Now(), "test")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.GamesFound)
	assert.Zero(t, summary.MissingGames)
	assert.Zero(t, resolver.calls)
	assert.Zero(t, docs.calls)
	assert.True(t, runs.completed)
}

func TestRunSkipsIncompleteGames(t *testing.T) {
	t.Parallel()

	upcoming := feedGame("g1", "Kansas", "Duke")
	upcoming.Completed = false

	feed := &stubFeed{games: []primary.Game{upcoming}}
	runs := &stubRunLog{}
	resolver := &stubResolver{}

	o := newTestOrchestrator(feed, &stubGameStore{}, runs, resolver, &stubDocs{}, &stubParser{}, nil)

	summary, err := o.Run(context.Background(), time.Now(), time.Now(), "test")
	require.NoError(t, err)

	assert.Zero(t, summary.MissingGames)
	assert.Zero(t, resolver.calls)
}

func TestRunPerGameOutcomes(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{games: []primary.Game{
		feedGame("nomatch", "Obscure A", "Obscure B"),
		feedGame("gone", "Kansas", "Duke"),
		feedGame("flaky", "Gonzaga", "UCLA"),
		feedGame("good", "Houston", "Baylor"),
	}}
	runs := &stubRunLog{}
	resolver := &stubResolver{byPrimary: map[string]*discovery.Resolution{
		"gone":  {ArchiveID: "A1", Confidence: 0.9},
		"flaky": {ArchiveID: "A2", Confidence: 0.9},
		"good":  {ArchiveID: "A3", Confidence: 0.9},
	}}
	docs := &stubDocs{
		byArchive: map[string][]byte{"A3": []byte("doc")},
		errs: map[string]error{
			"A1": &fetch.Error{URL: "u", StatusCode: 404, Terminal: true, Err: fmt.Errorf("not found")},
			"A2": fmt.Errorf("connection reset"),
		},
	}

	o := newTestOrchestrator(feed, &stubGameStore{}, runs, resolver, docs, &stubParser{}, nil)

	summary, err := o.Run(context.Background(), time.Now(), time.Now(), "test")
	require.NoError(t, err, "per-game trouble never aborts the run")

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 3, summary.Failed)
	assert.True(t, runs.completed)

	kinds := map[string]OutcomeKind{}
	for _, out := range summary.Outcomes {
		kinds[out.PrimaryID] = out.Kind
	}
	assert.Equal(t, OutcomeNotFound, kinds["nomatch"])
	assert.Equal(t, OutcomeUnavailable, kinds["gone"])
	assert.Equal(t, OutcomeFetchFailed, kinds["flaky"])
	assert.Equal(t, OutcomeBackfilled, kinds["good"])
}

func TestRunDuplicateIsNotFatal(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{games: []primary.Game{feedGame("g1", "Kansas", "Duke")}}
	games := &stubGameStore{saveErr: repository.ErrDuplicateGame}
	runs := &stubRunLog{}
	resolver := &stubResolver{byPrimary: map[string]*discovery.Resolution{
		"g1": {ArchiveID: "A1", Confidence: 0.9},
	}}
	docs := &stubDocs{byArchive: map[string][]byte{"A1": []byte("doc")}}

	o := newTestOrchestrator(feed, games, runs, resolver, docs, &stubParser{}, nil)

	summary, err := o.Run(context.Background(), time.Now(), time.Now(), "test")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Zero(t, summary.Failed)
	require.Len(t, summary.Outcomes, 1)
	assert.Equal(t, OutcomeDuplicate, summary.Outcomes[0].Kind)
	assert.True(t, runs.completed)
}

func TestRunMalformedDocument(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{games: []primary.Game{feedGame("g1", "Kansas", "Duke")}}
	runs := &stubRunLog{}
	resolver := &stubResolver{byPrimary: map[string]*discovery.Resolution{
		"g1": {ArchiveID: "A1", Confidence: 0.9},
	}}
	docs := &stubDocs{byArchive: map[string][]byte{"A1": []byte("garbage")}}
	parser := &stubParser{err: fmt.Errorf("%w: missing contest root", archive.ErrMalformedDocument)}

	o := newTestOrchestrator(feed, &stubGameStore{}, runs, resolver, docs, parser, nil)

	summary, err := o.Run(context.Background(), time.Now(), time.Now(), "test")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Outcomes, 1)
	assert.Equal(t, OutcomeMalformed, summary.Outcomes[0].Kind)
}

func TestRunInfrastructureFailure(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{err: fmt.Errorf("feed returned HTML error page")}
	runs := &stubRunLog{}

	o := newTestOrchestrator(feed, &stubGameStore{}, runs, &stubResolver{}, &stubDocs{}, &stubParser{}, nil)

	_, err := o.Run(context.Background(), time.Now(), time.Now(), "test")
	require.Error(t, err)

	assert.True(t, runs.failed)
	assert.False(t, runs.completed)
	assert.Contains(t, runs.failReason, "primary schedule")
}

func TestRunCancellationBetweenGames(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{games: []primary.Game{
		feedGame("g1", "Kansas", "Duke"),
		feedGame("g2", "Gonzaga", "UCLA"),
	}}
	runs := &stubRunLog{}
	resolver := &stubResolver{byPrimary: map[string]*discovery.Resolution{
		"g1": {ArchiveID: "A1", Confidence: 0.9},
		"g2": {ArchiveID: "A2", Confidence: 0.9},
	}}
	docs := &stubDocs{byArchive: map[string][]byte{"A1": []byte("doc"), "A2": []byte("doc")}}

	cfg := testConfig()
	cfg.InterGameDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	o := NewOrchestrator(cfg, feed, &stubGameStore{}, runs, resolver, docs, &stubParser{}, nil, nil, zap.NewNop())

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	summary, err := o.Run(ctx, time.Now(), time.Now(), "test")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	assert.True(t, runs.failed)
	assert.Contains(t, runs.failReason, "cancelled")
	assert.Equal(t, 1, summary.Processed, "first game finishes before the pause")
}

func TestRunPublishesProgress(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{games: []primary.Game{
		feedGame("g1", "Kansas", "Duke"),
		feedGame("g2", "Gonzaga", "UCLA"),
	}}
	resolver := &stubResolver{byPrimary: map[string]*discovery.Resolution{
		"g1": {ArchiveID: "A1", Confidence: 0.9},
		"g2": {ArchiveID: "A2", Confidence: 0.9},
	}}
	docs := &stubDocs{byArchive: map[string][]byte{"A1": []byte("d"), "A2": []byte("d")}}
	notifier := &stubNotifier{}

	o := newTestOrchestrator(feed, &stubGameStore{}, &stubRunLog{}, resolver, docs, &stubParser{}, notifier)

	summary, err := o.Run(context.Background(), time.Now(), time.Now(), "test")
	require.NoError(t, err)

	var total int
	for _, b := range notifier.batches {
		assert.Equal(t, summary.RunID, b.runID)
		total += len(b.outcomes)
	}
	assert.Equal(t, 2, total, "every outcome reaches the notifier")
}
