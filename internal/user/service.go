package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SlpAus/photo-tournament-backend/internal/platform/kv"
)

// PresenceToucher refreshes a user's presence entry.
type PresenceToucher interface {
	Touch(ctx context.Context, userID string, ts time.Time) error
}

// Service issues and refreshes sessions.
type Service struct {
	store    kv.Store
	presence PresenceToucher
	now      func() time.Time
	log      *slog.Logger
}

// NewService builds the session service.
func NewService(store kv.Store, presence PresenceToucher, log *slog.Logger) *Service {
	return &Service{store: store, presence: presence, now: time.Now, log: log}
}

// NewID mints a fresh time-ordered session id.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("cannot generate uuid v7: %w", err)
	}
	return id.String(), nil
}

// IsValidID reports whether s looks like an id minted by NewID.
func IsValidID(s string) bool {
	id, err := uuid.Parse(s)
	return err == nil && id.Version() == 7
}

// GetSession upserts the session record for id and refreshes presence.
func (s *Service) GetSession(ctx context.Context, id string) (Session, error) {
	now := s.now().UTC()
	err := s.store.HSet(ctx, sessionKey(id), map[string]string{
		"id":         id,
		"lastActive": now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return Session{}, fmt.Errorf("failed to save session %s: %w", id, err)
	}
	if err := s.presence.Touch(ctx, id, now); err != nil {
		return Session{}, err
	}
	return Session{ID: id, LastActive: now}, nil
}
