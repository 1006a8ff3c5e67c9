// Package scheduler decides when tournaments start and expire and drives
// those decisions from a periodic tick.
package scheduler

import (
	"time"

	"github.com/SlpAus/photo-tournament-backend/internal/bracket"
)

// Policy holds the fixed timing rules of the tournament cycle.
type Policy struct {
	// Duration is how long a tournament runs before it is force-ended.
	Duration time.Duration
	// CheckInterval is the minimum gap between scheduled starts.
	CheckInterval time.Duration
}

// ShouldStart reports whether a new tournament may replace st: there is none,
// it is no longer active, or it has run for the full duration.
func (p Policy) ShouldStart(st *bracket.State, now time.Time) bool {
	if st == nil || !st.IsActive {
		return true
	}
	return st.Elapsed(now) >= p.Duration
}

// IsTimeForNext reports whether a full check interval has passed since
// lastChecked.
func (p Policy) IsTimeForNext(lastChecked, now time.Time) bool {
	return now.Sub(lastChecked) >= p.CheckInterval
}

// Schedule is the countdown shown to clients.
type Schedule struct {
	Active bool `json:"active"`
	// EndsAt is set while a tournament is active.
	EndsAt    *time.Time `json:"endsAt,omitempty"`
	NextStart time.Time  `json:"nextStart"`
	// Remaining is in milliseconds: until EndsAt while active, otherwise
	// until NextStart.
	Remaining int64 `json:"remaining"`
}

// NextStart computes the countdown for st at now. An active tournament is
// followed by a check interval after it expires. Otherwise the next start is
// the next interval boundary of the wall clock, strictly after now.
func (p Policy) NextStart(st *bracket.State, now time.Time) Schedule {
	if st != nil && st.IsActive {
		endsAt := st.StartedAt.Add(p.Duration)
		remaining := endsAt.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		return Schedule{
			Active:    true,
			EndsAt:    &endsAt,
			NextStart: endsAt.Add(p.CheckInterval),
			Remaining: remaining.Milliseconds(),
		}
	}

	next := now.Truncate(p.CheckInterval).Add(p.CheckInterval)
	return Schedule{
		NextStart: next,
		Remaining: next.Sub(now).Milliseconds(),
	}
}
