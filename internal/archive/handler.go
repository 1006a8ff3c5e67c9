package archive

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler serves the history endpoints.
type Handler struct {
	archive *Archive
	log     *slog.Logger
}

// NewHandler builds the archive handler.
func NewHandler(archive *Archive, log *slog.Logger) *Handler {
	return &Handler{archive: archive, log: log}
}

// GetHistory lists archived tournaments, newest first.
func (h *Handler) GetHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := h.archive.List(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("failed to load tournament history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tournament history"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GetStats returns the archive summary.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.archive.Stats(c.Request.Context())
	if err != nil {
		h.log.Error("failed to load tournament stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tournament stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
