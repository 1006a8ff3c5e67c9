package photo

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
)

// WinCounter exposes the live casual-vote win counters, keyed by photo id.
type WinCounter interface {
	WinCounts(ctx context.Context) (map[int]int64, error)
}

// Catalog is the read side of the photo repository.
type Catalog interface {
	All(ctx context.Context) ([]Photo, error)
	ByIDs(ctx context.Context, ids []int) ([]Photo, error)
}

// Service merges the static catalog with live counters.
type Service struct {
	catalog Catalog
	wins    WinCounter
	// perTournament caps how many photos a scheduled tournament draws; 0 means all.
	perTournament int
	// rnd returns a float in [0, 1) for pair draws.
	rnd func() float64
	log *slog.Logger
}

// NewService builds the photo service.
func NewService(catalog Catalog, wins WinCounter, perTournament int, log *slog.Logger) *Service {
	return &Service{catalog: catalog, wins: wins, perTournament: perTournament, rnd: rand.Float64, log: log}
}

// All returns every catalog photo with its live win and vote counts.
func (s *Service) All(ctx context.Context) ([]Photo, error) {
	photos, err := s.catalog.All(ctx)
	if err != nil {
		return nil, err
	}
	return s.withCounters(ctx, photos)
}

// ByIDs returns the selected photos with live counters.
func (s *Service) ByIDs(ctx context.Context, ids []int) ([]Photo, error) {
	photos, err := s.catalog.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.withCounters(ctx, photos)
}

// TournamentPhotos is the scheduler's photo source. It draws a random subset
// when the service is capped, otherwise it returns the whole catalog.
func (s *Service) TournamentPhotos(ctx context.Context) ([]Photo, error) {
	photos, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if s.perTournament <= 0 || len(photos) <= s.perTournament {
		return photos, nil
	}
	rand.Shuffle(len(photos), func(i, j int) {
		photos[i], photos[j] = photos[j], photos[i]
	})
	return photos[:s.perTournament], nil
}

// Rankings returns photos ordered by wins, most first, up to limit (0 = all).
// Equal wins fall back to id order.
func (s *Service) Rankings(ctx context.Context, limit int) ([]Photo, error) {
	photos, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(photos, func(i, j int) bool {
		if photos[i].Wins != photos[j].Wins {
			return photos[i].Wins > photos[j].Wins
		}
		return photos[i].ID < photos[j].ID
	})
	if limit > 0 && len(photos) > limit {
		photos = photos[:limit]
	}
	return photos, nil
}

// Tiers returns the tier list of the whole catalog.
func (s *Service) Tiers(ctx context.Context) ([]TierGroup, error) {
	photos, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return TierList(photos), nil
}

func (s *Service) withCounters(ctx context.Context, photos []Photo) ([]Photo, error) {
	counts, err := s.wins.WinCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load win counters: %w", err)
	}
	for i := range photos {
		n := int(counts[photos[i].ID])
		photos[i].Wins += n
		photos[i].UserVotes += n
	}
	return photos, nil
}
