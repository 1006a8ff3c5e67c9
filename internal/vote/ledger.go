// Package vote keeps each user's bounded vote history and the global
// casual-vote win counters.
package vote

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/SlpAus/photo-tournament-backend/internal/photo"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/kv"
)

// DefaultHistoryCapacity bounds a user's vote list.
const DefaultHistoryCapacity = 100

// Ledger is the vote history store.
type Ledger struct {
	store    kv.Store
	capacity int
	now      func() time.Time
	log      *slog.Logger
}

// NewLedger builds a ledger that keeps up to capacity records per user.
func NewLedger(store kv.Store, capacity int, log *slog.Logger) *Ledger {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &Ledger{store: store, capacity: capacity, now: time.Now, log: log}
}

// Record prepends rec to the user's history. Casual votes also bump the
// voted photo's win counter.
func (l *Ledger) Record(ctx context.Context, userID string, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	raw, err := kv.Encode(rec)
	if err != nil {
		return err
	}
	if err := l.store.PushBounded(ctx, historyKey(userID), raw, l.capacity); err != nil {
		return fmt.Errorf("failed to save vote for %s: %w", userID, err)
	}
	if rec.IsCasual() {
		if _, err := l.store.HIncrBy(ctx, WinsKey, strconv.Itoa(rec.VotedFor), 1); err != nil {
			return fmt.Errorf("failed to save win counter for photo %d: %w", rec.VotedFor, err)
		}
	}
	return nil
}

// RecordBracket logs a tournament vote for p in the given round and match.
func (l *Ledger) RecordBracket(ctx context.Context, userID string, round, match int, p photo.Photo) error {
	return l.Record(ctx, userID, Record{
		Timestamp:           l.now().UTC(),
		Round:               &round,
		Match:               &match,
		VotedFor:            p.ID,
		VotedForDescription: p.Description,
	})
}

// RecordCasual logs a vote for p cast outside the bracket.
func (l *Ledger) RecordCasual(ctx context.Context, userID string, p photo.Photo) error {
	return l.Record(ctx, userID, Record{
		Timestamp:           l.now().UTC(),
		VotedFor:            p.ID,
		VotedForDescription: p.Description,
		Type:                TypeCasual,
	})
}

// History returns up to limit of the user's most recent votes, newest first.
// Entries that fail to decode are skipped.
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		return []Record{}, nil
	}
	raws, err := l.store.LRange(ctx, historyKey(userID), 0, int64(limit-1))
	if err != nil {
		return nil, fmt.Errorf("failed to load votes for %s: %w", userID, err)
	}

	records := make([]Record, 0, len(raws))
	for i, raw := range raws {
		var rec Record
		if err := kv.Decode(raw, &rec); err != nil {
			l.log.Warn("skipping malformed vote record", "user_id", userID, "index", i, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// WinCounts returns the casual win counter of every photo that has one.
// Unparseable counters are skipped.
func (l *Ledger) WinCounts(ctx context.Context) (map[int]int64, error) {
	raw, err := l.store.HGetAll(ctx, WinsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load win counters: %w", err)
	}
	counts := make(map[int]int64, len(raw))
	for field, value := range raw {
		id, err := strconv.Atoi(field)
		if err != nil {
			l.log.Warn("skipping malformed win counter", "field", field)
			continue
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			l.log.Warn("skipping malformed win counter", "photo_id", id, "value", value)
			continue
		}
		counts[id] = n
	}
	return counts, nil
}

// Rankings returns the win counters, most wins first. Ties are ordered by id.
func (l *Ledger) Rankings(ctx context.Context) ([]Ranking, error) {
	counts, err := l.WinCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Ranking, 0, len(counts))
	for id, n := range counts {
		out = append(out, Ranking{PhotoID: id, Wins: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].PhotoID < out[j].PhotoID
	})
	return out, nil
}
