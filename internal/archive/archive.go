// Package archive snapshots finished tournaments into a bounded newest-first
// list, with an unbounded durable copy on the side.
package archive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SlpAus/photo-tournament-backend/internal/photo"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/kv"
)

// TopPhotosLimit is how many photos Stats ranks.
const TopPhotosLimit = 5

// PhotoRanker ranks photos by their global win counters.
type PhotoRanker interface {
	Rankings(ctx context.Context, limit int) ([]photo.Photo, error)
}

// DurableStore keeps the long-term copy of archived tournaments.
type DurableStore interface {
	Save(ctx context.Context, e Entry) error
	Count(ctx context.Context) (int64, error)
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Archive is the tournament history.
type Archive struct {
	store    kv.Store
	durable  DurableStore
	ranker   PhotoRanker
	capacity int
	log      *slog.Logger
}

// New builds an archive. durable may be nil.
func New(store kv.Store, durable DurableStore, ranker PhotoRanker, capacity int, log *slog.Logger) *Archive {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Archive{store: store, durable: durable, ranker: ranker, capacity: capacity, log: log}
}

// Append prepends e and drops whatever falls past capacity. The durable copy
// is written afterwards; its failure is logged and does not undo the append.
func (a *Archive) Append(ctx context.Context, e Entry) error {
	raw, err := kv.Encode(e)
	if err != nil {
		return err
	}
	if err := a.store.PushBounded(ctx, Key, raw, a.capacity); err != nil {
		return fmt.Errorf("failed to save tournament history: %w", err)
	}

	if a.durable != nil {
		if err := a.durable.Save(ctx, e); err != nil {
			a.log.Error("durable archive copy failed", "started_at", e.StartedAt, "error", err)
		}
	}
	return nil
}

// List returns up to limit entries, newest first. Malformed entries are skipped.
func (a *Archive) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > a.capacity {
		limit = a.capacity
	}
	raws, err := a.store.LRange(ctx, Key, 0, int64(limit-1))
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament history: %w", err)
	}

	entries := make([]Entry, 0, len(raws))
	for i, raw := range raws {
		var e Entry
		if err := kv.Decode(raw, &e); err != nil {
			a.log.Warn("skipping malformed history entry", "index", i, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Stats aggregates the archive.
func (a *Archive) Stats(ctx context.Context) (Stats, error) {
	entries, err := a.List(ctx, a.capacity)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Count: len(entries), TopPhotos: []photo.Photo{}}
	for i := range entries {
		stats.TotalVotes += entries[i].TotalVotes()
	}
	if len(entries) > 0 {
		recent := entries[0]
		stats.MostRecent = &recent
	}

	top, err := a.ranker.Rankings(ctx, TopPhotosLimit)
	if err != nil {
		return Stats{}, err
	}
	stats.TopPhotos = top

	if a.durable != nil {
		n, err := a.durable.Count(ctx)
		if err != nil {
			a.log.Warn("durable archive count failed", "error", err)
		} else {
			stats.AllTime = n
		}
	}
	return stats, nil
}

// Restore refills an empty history list from the durable copy, for when
// Redis came back without its data. It returns how many entries it pushed.
func (a *Archive) Restore(ctx context.Context) (int, error) {
	if a.durable == nil {
		return 0, nil
	}
	head, err := a.store.LRange(ctx, Key, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect tournament history: %w", err)
	}
	if len(head) > 0 {
		return 0, nil
	}

	entries, err := a.durable.Recent(ctx, a.capacity)
	if err != nil {
		return 0, err
	}
	// oldest first so the newest ends up at the head
	for i := len(entries) - 1; i >= 0; i-- {
		raw, err := kv.Encode(entries[i])
		if err != nil {
			return 0, err
		}
		if err := a.store.PushBounded(ctx, Key, raw, a.capacity); err != nil {
			return 0, fmt.Errorf("failed to restore tournament history: %w", err)
		}
	}
	if len(entries) > 0 {
		a.log.Info("tournament history restored from durable copy", "entries", len(entries))
	}
	return len(entries), nil
}
