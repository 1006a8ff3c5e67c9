package user

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ActiveCounter reports the number of live users.
type ActiveCounter interface {
	Count(ctx context.Context) (int, error)
}

// Handler serves the session endpoints.
type Handler struct {
	active ActiveCounter
	log    *slog.Logger
}

// NewHandler builds the user handler.
func NewHandler(active ActiveCounter, log *slog.Logger) *Handler {
	return &Handler{active: active, log: log}
}

// GetSession returns the caller's session.
func (h *Handler) GetSession(c *gin.Context) {
	s, ok := FromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session missing"})
		return
	}
	c.JSON(http.StatusOK, s)
}

// GetActiveCount returns how many users were active in the presence window.
func (h *Handler) GetActiveCount(c *gin.Context) {
	n, err := h.active.Count(c.Request.Context())
	if err != nil {
		h.log.Error("failed to count active users", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load active users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}
