// Package tournament runs the singleton tournament: it loads the bracket
// state, applies engine transitions under optimistic concurrency, records
// votes, archives finished tournaments and pushes every change to live clients.
package tournament

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SlpAus/photo-tournament-backend/internal/archive"
	"github.com/SlpAus/photo-tournament-backend/internal/bracket"
	"github.com/SlpAus/photo-tournament-backend/internal/photo"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/kv"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/metrics"
)

// ErrNoTournament is reported by handlers and tools when there is nothing to act on.
// Service methods return a nil state instead.
var ErrNoTournament = errors.New("tournament: no tournament")

// End reasons, used as the metric label.
const (
	reasonManual   = "manual"
	reasonExpired  = "expired"
	reasonReplaced = "replaced"
)

// Archiver stores finished tournaments.
type Archiver interface {
	Append(ctx context.Context, e archive.Entry) error
}

// VoteRecorder logs bracket votes in the voter's history.
type VoteRecorder interface {
	RecordBracket(ctx context.Context, userID string, round, match int, p photo.Photo) error
}

// Config is the tournament policy the service enforces.
type Config struct {
	VotesPerMatchup int
	Duration        time.Duration
}

// Service orchestrates the tournament lifecycle.
type Service struct {
	repo     *Repository
	archiver Archiver
	ledger   VoteRecorder
	hub      Publisher
	cfg      Config

	rnd     bracket.Rand
	now     func() time.Time
	tracer  trace.Tracer
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewService wires the tournament service.
func NewService(
	repo *Repository,
	archiver Archiver,
	ledger VoteRecorder,
	hub Publisher,
	cfg Config,
	tracer trace.Tracer,
	m *metrics.Metrics,
	log *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		archiver: archiver,
		ledger:   ledger,
		hub:      hub,
		cfg:      cfg,
		rnd:      bracket.DefaultRand,
		now:      time.Now,
		tracer:   tracer,
		metrics:  m,
		log:      log,
	}
}

// Duration is how long a tournament may run before it is force-ended.
func (s *Service) Duration() time.Duration { return s.cfg.Duration }

// State returns the current tournament, or nil.
func (s *Service) State(ctx context.Context) (*bracket.State, error) {
	ctx, span := s.tracer.Start(ctx, "tournament.State")
	defer span.End()

	st, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fail(span, err)
	}
	return st, nil
}

// Initialize starts a new tournament over photos. An active tournament is
// force-ended and archived first, once the new bracket has been built.
func (s *Service) Initialize(ctx context.Context, photos []photo.Photo, startedBy string) (*bracket.State, error) {
	ctx, span := s.tracer.Start(ctx, "tournament.Initialize", trace.WithAttributes(
		attribute.Int("tournament.photos", len(photos)),
		attribute.String("tournament.started_by", startedBy),
	))
	defer span.End()

	st, err := bracket.New(photos, startedBy, s.now(), s.rnd, bracket.WithVotesPerMatchup(s.cfg.VotesPerMatchup))
	if err != nil {
		return nil, fail(span, err)
	}
	if _, _, err := s.end(ctx, reasonReplaced, nil); err != nil {
		return nil, fail(span, err)
	}
	if err := s.repo.Replace(ctx, st); err != nil {
		return nil, fail(span, s.noteConflict(err))
	}

	s.metrics.TournamentsStarted.Inc()
	s.log.Info("tournament started", "started_by", startedBy, "photos", len(photos), "matchups", len(st.Bracket))
	s.publish(MsgState, st)
	return st, nil
}

// ApplyVote casts userID's vote on the matchup at idx. It returns nil when
// there is no tournament. Repeated votes return the unchanged state.
func (s *Service) ApplyVote(ctx context.Context, userID string, idx, choice int) (*bracket.State, error) {
	ctx, span := s.tracer.Start(ctx, "tournament.ApplyVote", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int("tournament.matchup", idx),
		attribute.Int("tournament.choice", choice),
	))
	defer span.End()

	var voted *bracket.Matchup
	st, err := s.repo.Mutate(ctx, func(st *bracket.State) (bool, error) {
		voted = nil
		changed, err := st.ApplyVote(idx, choice, userID, s.rnd)
		if err != nil || !changed {
			return false, err
		}
		m := st.Bracket[idx]
		voted = &m
		return true, nil
	})
	if err != nil {
		return nil, fail(span, s.noteConflict(err))
	}
	if st == nil {
		return nil, nil
	}
	if voted == nil {
		s.metrics.Votes.WithLabelValues("ignored").Inc()
		return st, nil
	}

	s.metrics.Votes.WithLabelValues("counted").Inc()
	if voted.Completed {
		s.log.Info("matchup resolved", "round", voted.Round, "match", voted.Match, "winner", voted.Winner.ID)
	}
	s.publish(MsgState, st)

	pick := voted.Player1
	if choice == 1 {
		pick = *voted.Player2
	}
	if err := s.ledger.RecordBracket(ctx, userID, voted.Round, voted.Match, pick); err != nil {
		s.log.Error("vote counted but not recorded in history", "user_id", userID, "matchup", idx, "error", err)
		return nil, fail(span, fmt.Errorf("%w: %v", ErrPersistence, err))
	}
	return st, nil
}

// AdvanceRound moves an active tournament to its next round. It returns nil
// when there is no tournament.
func (s *Service) AdvanceRound(ctx context.Context) (*bracket.State, error) {
	ctx, span := s.tracer.Start(ctx, "tournament.AdvanceRound")
	defer span.End()

	advanced := false
	st, err := s.repo.Mutate(ctx, func(st *bracket.State) (bool, error) {
		advanced = false
		if !st.IsActive {
			return false, nil
		}
		round, complete := st.CurrentRound, st.TournamentComplete
		if err := st.AdvanceRound(); err != nil {
			return false, err
		}
		advanced = st.CurrentRound != round || st.TournamentComplete != complete
		return advanced, nil
	})
	if err != nil {
		return nil, fail(span, s.noteConflict(err))
	}
	if st == nil {
		return nil, nil
	}
	if advanced {
		s.metrics.RoundsAdvanced.Inc()
		s.log.Info("round advanced", "round", st.CurrentRound, "complete", st.TournamentComplete)
		s.publish(MsgState, st)
	}
	return st, nil
}

// EndTournament force-ends the active tournament and archives it. It returns
// nil when there is no tournament; an already ended one is returned as is.
func (s *Service) EndTournament(ctx context.Context) (*bracket.State, error) {
	ctx, span := s.tracer.Start(ctx, "tournament.EndTournament")
	defer span.End()

	st, _, err := s.end(ctx, reasonManual, nil)
	if err != nil {
		return nil, fail(span, err)
	}
	return st, nil
}

// CheckExpiration ends the active tournament once it has run for the
// configured duration and reports whether it did.
func (s *Service) CheckExpiration(ctx context.Context, now time.Time) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "tournament.CheckExpiration")
	defer span.End()

	_, ended, err := s.end(ctx, reasonExpired, func(st *bracket.State) bool {
		return st.Expired(now, s.cfg.Duration)
	})
	if err != nil {
		return false, fail(span, err)
	}
	return ended, nil
}

// Winner returns the champion of a complete tournament, or nil.
func (s *Service) Winner(ctx context.Context) (*photo.Photo, error) {
	st, err := s.State(ctx)
	if err != nil || st == nil {
		return nil, err
	}
	return st.Winner(), nil
}

// HasVoted reports whether userID voted on the current matchup.
func (s *Service) HasVoted(ctx context.Context, userID string) (bool, error) {
	st, err := s.State(ctx)
	if err != nil || st == nil {
		return false, err
	}
	return st.HasVoted(userID), nil
}

// end force-ends the active tournament when cond (nil = always) holds.
// The ended state is written before it is archived, so two concurrent
// callers cannot both archive it. A failed archive is reported but the
// tournament stays ended.
func (s *Service) end(ctx context.Context, reason string, cond func(*bracket.State) bool) (*bracket.State, bool, error) {
	ended := false
	st, err := s.repo.Mutate(ctx, func(st *bracket.State) (bool, error) {
		ended = false
		if !st.IsActive || (cond != nil && !cond(st)) {
			return false, nil
		}
		st.ForceEnd(s.rnd)
		ended = true
		return true, nil
	})
	if err != nil {
		return nil, false, s.noteConflict(err)
	}
	if !ended {
		return st, false, nil
	}

	s.metrics.TournamentsEnded.WithLabelValues(reason).Inc()
	winner := 0
	if w := st.Winner(); w != nil {
		winner = w.ID
	}
	s.log.Info("tournament ended", "reason", reason, "round", st.CurrentRound, "winner", winner)
	s.publish(MsgEnded, st)

	entry := archive.Entry{State: *st, ArchivedAt: s.now().UTC()}
	if err := s.archiver.Append(ctx, entry); err != nil {
		return st, true, fmt.Errorf("%w: tournament ended but not archived: %v", ErrPersistence, err)
	}
	return st, true, nil
}

func (s *Service) publish(kind string, st *bracket.State) {
	s.hub.Publish(Message{Type: kind, State: st, Timestamp: s.now().UTC()})
}

func (s *Service) noteConflict(err error) error {
	if errors.Is(err, kv.ErrConflict) {
		s.metrics.Conflicts.Inc()
		s.log.Warn("tournament update abandoned after repeated conflicts")
	}
	return err
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
