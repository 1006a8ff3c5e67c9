package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SlpAus/photo-tournament-backend/internal/bracket"
	"github.com/SlpAus/photo-tournament-backend/internal/photo"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/metrics"
	"github.com/SlpAus/photo-tournament-backend/pkg/lifecycle"
)

// StartedBy is recorded as the starter of scheduled tournaments.
const StartedBy = "scheduler"

// Tick results, used as the metrics label.
const (
	ResultIdle    = "idle"
	ResultExpired = "expired"
	ResultStarted = "started"
	ResultError   = "error"
)

// Tournaments is the part of the tournament service the runner drives.
type Tournaments interface {
	State(ctx context.Context) (*bracket.State, error)
	CheckExpiration(ctx context.Context, now time.Time) (bool, error)
	Initialize(ctx context.Context, photos []photo.Photo, startedBy string) (*bracket.State, error)
}

// PhotoSource supplies the photos of a scheduled tournament.
type PhotoSource interface {
	TournamentPhotos(ctx context.Context) ([]photo.Photo, error)
}

// Sweeper evicts stale presence entries.
type Sweeper interface {
	Sweep(ctx context.Context, olderThan time.Duration) (int, error)
}

// RunnerConfig holds the tick cadence.
type RunnerConfig struct {
	TickInterval    time.Duration
	CleanupInterval time.Duration
	CleanupWindow   time.Duration
	// AutoStart off means the runner only expires tournaments.
	AutoStart bool
}

// Runner is the periodic driver of the tournament cycle.
type Runner struct {
	policy      Policy
	tournaments Tournaments
	photos      PhotoSource
	sweeper     Sweeper
	cfg         RunnerConfig
	metrics     *metrics.Metrics
	log         *slog.Logger
	now         func() time.Time

	lastCheck   time.Time
	lastCleanup time.Time
}

// NewRunner builds a runner. sweeper may be nil to skip presence cleanup.
func NewRunner(policy Policy, tournaments Tournaments, photos PhotoSource, sweeper Sweeper, cfg RunnerConfig, m *metrics.Metrics, log *slog.Logger) *Runner {
	return &Runner{
		policy:      policy,
		tournaments: tournaments,
		photos:      photos,
		sweeper:     sweeper,
		cfg:         cfg,
		metrics:     m,
		log:         log,
		now:         time.Now,
	}
}

// Run ticks until the handle is cancelled. The first tick runs immediately
// and the check interval is counted from the moment Run starts.
func (r *Runner) Run(handle *lifecycle.Handle) {
	defer handle.Close()
	r.lastCheck = r.now()
	r.log.Info("tournament scheduler started", "tick", r.cfg.TickInterval, "auto_start", r.cfg.AutoStart)

	for {
		r.Tick(handle.Ctx())
		if err := handle.Sleep(r.cfg.TickInterval); err != nil {
			r.log.Info("tournament scheduler stopping")
			return
		}
	}
}

// Tick performs one scheduling pass and returns its result. Failures are
// logged and never stop the runner.
func (r *Runner) Tick(ctx context.Context) string {
	result := r.tick(ctx)
	r.metrics.SchedulerTicks.WithLabelValues(result).Inc()
	return result
}

func (r *Runner) tick(ctx context.Context) string {
	now := r.now()
	r.cleanup(ctx, now)

	result := ResultIdle
	expired, err := r.tournaments.CheckExpiration(ctx, now)
	if err != nil {
		if isShutdown(err) {
			return ResultIdle
		}
		r.log.Error("scheduler failed to check expiration", "error", err)
		result = ResultError
	}
	if expired {
		r.log.Info("scheduler expired the active tournament")
		result = ResultExpired
	}

	if !r.cfg.AutoStart || !(expired || r.policy.IsTimeForNext(r.lastCheck, now)) {
		return result
	}

	st, err := r.tournaments.State(ctx)
	if err != nil {
		r.log.Error("scheduler failed to load tournament", "error", err)
		return ResultError
	}
	if !r.policy.ShouldStart(st, now) {
		return result
	}

	photos, err := r.photos.TournamentPhotos(ctx)
	if err != nil {
		r.log.Error("scheduler failed to load photos", "error", err)
		return ResultError
	}
	if _, err := r.tournaments.Initialize(ctx, photos, StartedBy); err != nil {
		if errors.Is(err, bracket.ErrNotEnoughPhotos) {
			r.log.Warn("scheduler cannot start a tournament", "photos", len(photos))
		} else {
			r.log.Error("scheduler failed to start tournament", "error", err)
		}
		return ResultError
	}
	r.lastCheck = now
	r.log.Info("scheduler started a tournament", "photos", len(photos))
	return ResultStarted
}

func (r *Runner) cleanup(ctx context.Context, now time.Time) {
	if r.sweeper == nil || r.cfg.CleanupWindow <= 0 {
		return
	}
	if !r.lastCleanup.IsZero() && now.Sub(r.lastCleanup) < r.cfg.CleanupInterval {
		return
	}
	r.lastCleanup = now
	n, err := r.sweeper.Sweep(ctx, r.cfg.CleanupWindow)
	if err != nil {
		r.log.Error("presence cleanup failed", "error", err)
		return
	}
	if n > 0 {
		r.log.Info("presence cleanup evicted stale users", "count", n)
	}
}

func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
