package scheduler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SlpAus/photo-tournament-backend/internal/bracket"
)

// StateReader loads the current tournament.
type StateReader interface {
	State(ctx context.Context) (*bracket.State, error)
}

// Handler serves the schedule countdown.
type Handler struct {
	policy Policy
	states StateReader
	log    *slog.Logger
	now    func() time.Time
}

// NewHandler builds the schedule handler.
func NewHandler(policy Policy, states StateReader, log *slog.Logger) *Handler {
	return &Handler{policy: policy, states: states, log: log, now: time.Now}
}

// GetSchedule returns when the current tournament ends and the next begins.
func (h *Handler) GetSchedule(c *gin.Context) {
	st, err := h.states.State(c.Request.Context())
	if err != nil {
		h.log.Error("failed to load tournament for schedule", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load schedule"})
		return
	}
	c.JSON(http.StatusOK, h.policy.NextStart(st, h.now().UTC()))
}
