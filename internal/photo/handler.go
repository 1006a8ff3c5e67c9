package photo

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultRankingLimit = 20

// Handler serves the read-only photo endpoints.
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler builds the photo handler.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// GetRankings returns the photos with the most wins.
func (h *Handler) GetRankings(c *gin.Context) {
	limit := defaultRankingLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	photos, err := h.svc.Rankings(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("failed to load rankings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rankings"})
		return
	}
	c.JSON(http.StatusOK, photos)
}

// GetTiers returns the tier list.
func (h *Handler) GetTiers(c *gin.Context) {
	groups, err := h.svc.Tiers(c.Request.Context())
	if err != nil {
		h.log.Error("failed to load tier list", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tier list"})
		return
	}
	c.JSON(http.StatusOK, groups)
}

// GetPair returns two photos for a casual vote. ?exclude=1,2 asks for a
// pair without those photos.
func (h *Handler) GetPair(c *gin.Context) {
	var exclude []int
	if raw := c.Query("exclude"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "exclude must be a comma separated list of photo ids"})
				return
			}
			exclude = append(exclude, id)
		}
	}

	pair, err := h.svc.Pair(c.Request.Context(), exclude...)
	if err != nil {
		if errors.Is(err, ErrNoPair) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("failed to draw a photo pair", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to draw a photo pair"})
		return
	}
	c.JSON(http.StatusOK, pair)
}
