// Package presence keeps the user id -> last-active map and evicts entries
// that fall outside the liveness window whenever it is read or written.
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/SlpAus/photo-tournament-backend/internal/platform/kv"
)

// Key is the shared presence hash.
const Key = "photo_active_users"

// Entry is one live user.
type Entry struct {
	UserID     string    `json:"id"`
	LastActive time.Time `json:"lastActive"`
}

// Tracker reads and writes the presence hash.
type Tracker struct {
	store  kv.Store
	window time.Duration
	now    func() time.Time
	log    *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker builds a tracker with the given liveness window.
func NewTracker(store kv.Store, window time.Duration, log *slog.Logger, opts ...Option) *Tracker {
	t := &Tracker{store: store, window: window, now: time.Now, log: log}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Touch records ts as the user's last activity and sweeps stale entries.
func (t *Tracker) Touch(ctx context.Context, userID string, ts time.Time) error {
	err := t.store.HSet(ctx, Key, map[string]string{
		userID: ts.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to save presence for %s: %w", userID, err)
	}
	_, err = t.Sweep(ctx, t.window)
	return err
}

// ListActive returns the users seen within the window, most recent first.
// Stale entries found along the way are removed.
func (t *Tracker) ListActive(ctx context.Context) ([]Entry, error) {
	live, err := t.sweep(ctx, t.window)
	if err != nil {
		return nil, err
	}
	sort.Slice(live, func(i, j int) bool {
		if !live[i].LastActive.Equal(live[j].LastActive) {
			return live[i].LastActive.After(live[j].LastActive)
		}
		return live[i].UserID < live[j].UserID
	})
	return live, nil
}

// Count returns how many users are active.
func (t *Tracker) Count(ctx context.Context) (int, error) {
	live, err := t.sweep(ctx, t.window)
	if err != nil {
		return 0, err
	}
	return len(live), nil
}

// Sweep removes entries older than olderThan, along with entries whose
// timestamp cannot be parsed, and returns how many were removed.
func (t *Tracker) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	before, err := t.store.HGetAll(ctx, Key)
	if err != nil {
		return 0, fmt.Errorf("failed to load presence: %w", err)
	}
	live, err := t.evict(ctx, before, olderThan)
	if err != nil {
		return 0, err
	}
	return len(before) - len(live), nil
}

func (t *Tracker) sweep(ctx context.Context, olderThan time.Duration) ([]Entry, error) {
	all, err := t.store.HGetAll(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load presence: %w", err)
	}
	return t.evict(ctx, all, olderThan)
}

func (t *Tracker) evict(ctx context.Context, all map[string]string, olderThan time.Duration) ([]Entry, error) {
	cutoff := t.now().Add(-olderThan)
	live := make([]Entry, 0, len(all))
	var stale []string
	for id, raw := range all {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			t.log.Warn("dropping malformed presence entry", "user_id", id, "value", raw)
			stale = append(stale, id)
			continue
		}
		if ts.Before(cutoff) {
			stale = append(stale, id)
			continue
		}
		live = append(live, Entry{UserID: id, LastActive: ts})
	}

	if len(stale) > 0 {
		if err := t.store.HDel(ctx, Key, stale...); err != nil {
			return nil, fmt.Errorf("failed to sweep presence: %w", err)
		}
	}
	return live, nil
}
