package tournament

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SlpAus/photo-tournament-backend/internal/bracket"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/kv"
)

// Key is the singleton tournament record.
const Key = "photo_tournament"

// ErrPersistence wraps every failure of the backing store.
var ErrPersistence = errors.New("tournament: persistence failure")

// MutateFunc changes st in place and reports whether it should be written.
// It may run several times against fresh copies of the record.
type MutateFunc func(st *bracket.State) (bool, error)

// Repository reads and writes the singleton tournament under optimistic
// concurrency. A stored record that fails to decode is treated as absent.
type Repository struct {
	store kv.Store
	log   *slog.Logger
}

// NewRepository builds the repository.
func NewRepository(store kv.Store, log *slog.Logger) *Repository {
	return &Repository{store: store, log: log}
}

// Load returns the current tournament, or nil when there is none.
func (r *Repository) Load(ctx context.Context) (*bracket.State, error) {
	raw, err := r.store.Get(ctx, Key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load tournament: %v", ErrPersistence, err)
	}
	return r.decode(raw), nil
}

// Mutate applies fn to the current tournament and writes the result when fn
// asks for it, bumping Version. When there is no tournament fn is not called
// and Mutate returns nil. The returned state is what was written, or the
// unchanged current state.
func (r *Repository) Mutate(ctx context.Context, fn MutateFunc) (*bracket.State, error) {
	var result *bracket.State
	err := r.store.Update(ctx, Key, func(current string, exists bool) (string, error) {
		result = nil
		if !exists {
			return "", kv.ErrSkipWrite
		}
		st := r.decode(current)
		if st == nil {
			return "", kv.ErrSkipWrite
		}
		write, err := fn(st)
		if err != nil {
			return "", err
		}
		result = st
		if !write {
			return "", kv.ErrSkipWrite
		}
		st.Version++
		return kv.Encode(st)
	})
	if err != nil {
		return nil, r.wrap(err)
	}
	return result, nil
}

// Replace overwrites the tournament with st, continuing the version sequence
// of whatever it replaces.
func (r *Repository) Replace(ctx context.Context, st *bracket.State) error {
	err := r.store.Update(ctx, Key, func(current string, exists bool) (string, error) {
		st.Version = 1
		if exists {
			if prev := r.decode(current); prev != nil {
				st.Version = prev.Version + 1
			}
		}
		return kv.Encode(st)
	})
	return r.wrap(err)
}

func (r *Repository) decode(raw string) *bracket.State {
	var st bracket.State
	if err := kv.Decode(raw, &st); err != nil {
		r.log.Warn("ignoring malformed tournament record", "error", err)
		return nil
	}
	return &st
}

// wrap tags store failures as persistence errors. Domain errors returned by a
// MutateFunc and conflicts pass through untouched.
func (r *Repository) wrap(err error) error {
	if err == nil || errors.Is(err, kv.ErrConflict) || isDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: failed to save tournament: %v", ErrPersistence, err)
}

func isDomainError(err error) bool {
	return errors.Is(err, bracket.ErrInvalidMatchup) ||
		errors.Is(err, bracket.ErrInvalidChoice) ||
		errors.Is(err, bracket.ErrRoundIncomplete) ||
		errors.Is(err, bracket.ErrNotEnoughPhotos)
}
