package vote

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SlpAus/photo-tournament-backend/internal/photo"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/metrics"
	"github.com/SlpAus/photo-tournament-backend/internal/user"
)

const defaultHistoryLimit = 10

// PhotoLookup resolves photo ids against the catalog.
type PhotoLookup interface {
	ByIDs(ctx context.Context, ids []int) ([]photo.Photo, error)
}

// Handler serves the vote history and casual vote endpoints.
type Handler struct {
	ledger  *Ledger
	photos  PhotoLookup
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewHandler builds the vote handler.
func NewHandler(ledger *Ledger, photos PhotoLookup, m *metrics.Metrics, log *slog.Logger) *Handler {
	return &Handler{ledger: ledger, photos: photos, metrics: m, log: log}
}

type casualVoteBody struct {
	PhotoID int `json:"photoId" binding:"required,gt=0"`
}

// GetHistory returns the caller's most recent votes.
func (h *Handler) GetHistory(c *gin.Context) {
	s, ok := user.FromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session missing"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := h.ledger.History(c.Request.Context(), s.ID, limit)
	if err != nil {
		h.log.Error("failed to load vote history", "user_id", s.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load vote history"})
		return
	}
	c.JSON(http.StatusOK, records)
}

// SubmitCasual records a vote for a single photo outside the bracket.
func (h *Handler) SubmitCasual(c *gin.Context) {
	s, ok := user.FromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session missing"})
		return
	}

	var body casualVoteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	found, err := h.photos.ByIDs(ctx, []int{body.PhotoID})
	if err != nil {
		h.log.Error("failed to look up photo", "photo_id", body.PhotoID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load photo"})
		return
	}
	if len(found) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "photo not found"})
		return
	}

	if err := h.ledger.RecordCasual(ctx, s.ID, found[0]); err != nil {
		h.log.Error("failed to record casual vote", "user_id", s.ID, "photo_id", body.PhotoID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save vote"})
		return
	}
	h.metrics.CasualVotes.Inc()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
