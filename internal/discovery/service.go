package discovery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/mnemosyne/internal/ingest/archive"
	"github.com/fortuna/mnemosyne/internal/ingest/primary"
	"github.com/fortuna/mnemosyne/internal/namematch"
	"github.com/fortuna/mnemosyne/internal/store"
)

// Source identifies which tier produced a resolution.
type Source string

const (
	SourceCache     Source = "cache"
	SourceDiscovery Source = "discovery"
)

// Resolution is the outcome of resolving a primary-source game to its
// archive counterpart.
type Resolution struct {
	ArchiveID  string  `json:"archiveId"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// MappingCache is the hot tier in front of the mapping table.
type MappingCache interface {
	GetMapping(ctx context.Context, primaryID string) (*store.GameIDMapping, error)
	SetMapping(ctx context.Context, m *store.GameIDMapping) error
	InvalidateMapping(ctx context.Context, primaryID string) error
}

// MappingStore is the persistent mapping table.
type MappingStore interface {
	GetByPrimaryID(ctx context.Context, primaryID string) (*store.GameIDMapping, error)
	Upsert(ctx context.Context, m *store.GameIDMapping) error
}

// ArchiveSearcher lists archive contests for a date.
type ArchiveSearcher interface {
	SearchGames(ctx context.Context, date time.Time) ([]archive.Candidate, error)
}

// Service resolves primary-source game ids to archive ids through three
// tiers: cached mappings first, then fuzzy discovery against the archive's
// schedule for the game's date, with manual mappings as the operator
// override. A resolved discovery is persisted and cached, so repeat
// lookups for the same game never touch the archive again.
type Service struct {
	cache    MappingCache
	mappings MappingStore
	searcher ArchiveSearcher
	matcher  *namematch.Matcher
	logger   *zap.Logger
}

// NewService creates a discovery service. cache may be nil to run without
// the hot tier.
func NewService(cache MappingCache, mappings MappingStore, searcher ArchiveSearcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		cache:    cache,
		mappings: mappings,
		searcher: searcher,
		matcher:  namematch.NewMatcher(),
		logger:   logger,
	}
}

// Discover resolves game to its archive id. Returns (nil, nil) when no
// candidate on the game's date clears the confidence floor; the caller
// decides whether that is worth reporting.
func (s *Service) Discover(ctx context.Context, game primary.Game) (*Resolution, error) {
	// Tier 1: cache, then the mapping table.
	if mapping, err := s.lookupKnown(ctx, game.ID); err != nil {
		return nil, err
	} else if mapping != nil {
		return &Resolution{
			ArchiveID:  mapping.ArchiveID,
			Confidence: mapping.Confidence,
			Source:     SourceCache,
		}, nil
	}

	// Tier 2: fuzzy discovery against the archive schedule.
	candidates, err := s.searcher.SearchGames(ctx, game.Date)
	if err != nil {
		return nil, fmt.Errorf("searching archive for %s: %w", game.Date.Format("2006-01-02"), err)
	}

	match, ok := s.matcher.BestMatch(game.HomeTeam, game.AwayTeam, toMatchCandidates(candidates))
	if !ok {
		s.logger.Info("no archive match above confidence floor",
			zap.String("primary_id", game.ID),
			zap.String("home", game.HomeTeam),
			zap.String("away", game.AwayTeam),
			zap.Int("candidates", len(candidates)))
		return nil, nil
	}

	mapping := &store.GameIDMapping{
		PrimaryID:    game.ID,
		ArchiveID:    match.CandidateID,
		HomeTeam:     game.HomeTeam,
		AwayTeam:     game.AwayTeam,
		GameDate:     game.Date,
		Confidence:   match.Confidence,
		MatchMethod:  store.MatchMethodDiscovery,
		DiscoveredAt: time.Now().UTC(),
	}

	if err := s.persist(ctx, mapping); err != nil {
		return nil, err
	}

	s.logger.Info("discovered archive mapping",
		zap.String("primary_id", game.ID),
		zap.String("archive_id", match.CandidateID),
		zap.Float64("confidence", match.Confidence))

	return &Resolution{
		ArchiveID:  mapping.ArchiveID,
		Confidence: mapping.Confidence,
		Source:     SourceDiscovery,
	}, nil
}

// SetManualMapping records an operator-supplied mapping. Manual mappings
// carry full confidence and overwrite whatever discovery found.
func (s *Service) SetManualMapping(ctx context.Context, primaryID, archiveID, homeTeam, awayTeam string, gameDate time.Time) (*store.GameIDMapping, error) {
	mapping := &store.GameIDMapping{
		PrimaryID:    primaryID,
		ArchiveID:    archiveID,
		HomeTeam:     homeTeam,
		AwayTeam:     awayTeam,
		GameDate:     gameDate,
		Confidence:   1.0,
		MatchMethod:  store.MatchMethodManual,
		DiscoveredAt: time.Now().UTC(),
	}

	if err := s.persist(ctx, mapping); err != nil {
		return nil, err
	}

	s.logger.Info("manual mapping set",
		zap.String("primary_id", primaryID),
		zap.String("archive_id", archiveID))

	return mapping, nil
}

// lookupKnown checks the cache, then the table, warming the cache on a
// table hit.
func (s *Service) lookupKnown(ctx context.Context, primaryID string) (*store.GameIDMapping, error) {
	if s.cache != nil {
		cached, err := s.cache.GetMapping(ctx, primaryID)
		if err != nil {
			// Cache trouble degrades to a table lookup.
			s.logger.Warn("mapping cache read failed", zap.String("primary_id", primaryID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	mapping, err := s.mappings.GetByPrimaryID(ctx, primaryID)
	if err != nil {
		return nil, fmt.Errorf("looking up mapping %s: %w", primaryID, err)
	}
	if mapping == nil {
		return nil, nil
	}

	if s.cache != nil {
		if err := s.cache.SetMapping(ctx, mapping); err != nil {
			s.logger.Warn("mapping cache write failed", zap.String("primary_id", primaryID), zap.Error(err))
		}
	}

	return mapping, nil
}

// persist writes a mapping to the table and refreshes the cache. The table
// write is authoritative; a cache failure only logs.
func (s *Service) persist(ctx context.Context, mapping *store.GameIDMapping) error {
	if err := s.mappings.Upsert(ctx, mapping); err != nil {
		return fmt.Errorf("persisting mapping %s: %w", mapping.PrimaryID, err)
	}

	if s.cache != nil {
		if err := s.cache.SetMapping(ctx, mapping); err != nil {
			s.logger.Warn("mapping cache write failed", zap.String("primary_id", mapping.PrimaryID), zap.Error(err))
		}
	}

	return nil
}

func toMatchCandidates(candidates []archive.Candidate) []namematch.Candidate {
	out := make([]namematch.Candidate, len(candidates))
	for i, c := range candidates {
		out[i] = namematch.Candidate{
			ID:       c.ID,
			HomeTeam: c.HomeTeam,
			AwayTeam: c.AwayTeam,
			Date:     c.Date,
		}
	}
	return out
}
