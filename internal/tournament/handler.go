package tournament

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/SlpAus/photo-tournament-backend/internal/bracket"
	"github.com/SlpAus/photo-tournament-backend/internal/photo"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/kv"
	"github.com/SlpAus/photo-tournament-backend/internal/user"
)

// PhotoSource supplies the contestants of a new tournament.
type PhotoSource interface {
	TournamentPhotos(ctx context.Context) ([]photo.Photo, error)
	ByIDs(ctx context.Context, ids []int) ([]photo.Photo, error)
}

// Handler serves the tournament endpoints.
type Handler struct {
	svc      *Service
	photos   PhotoSource
	hub      *Hub
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHandler builds the tournament handler. Live connections are accepted
// from allowedOrigins only; an empty list accepts same-origin requests.
func NewHandler(svc *Service, photos PhotoSource, hub *Hub, allowedOrigins []string, log *slog.Logger) *Handler {
	h := &Handler{svc: svc, photos: photos, hub: hub, log: log}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, origin)
		}
	}
	return h
}

type startBody struct {
	PhotoIDs []int `json:"photoIds"`
}

type voteBody struct {
	MatchupIndex *int `json:"matchupIndex" binding:"required"`
	Choice       *int `json:"choice" binding:"required"`
}

// GetState returns the current tournament, or null.
func (h *Handler) GetState(c *gin.Context) {
	st, err := h.svc.State(c.Request.Context())
	if err != nil {
		h.respondError(c, "load tournament", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Start begins a tournament over the requested photos, or over the
// scheduler's photo selection when none are named.
func (h *Handler) Start(c *gin.Context) {
	s, ok := user.FromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session missing"})
		return
	}

	var body startBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
	}

	ctx := c.Request.Context()
	var (
		photos []photo.Photo
		err    error
	)
	if len(body.PhotoIDs) > 0 {
		photos, err = h.photos.ByIDs(ctx, body.PhotoIDs)
	} else {
		photos, err = h.photos.TournamentPhotos(ctx)
	}
	if err != nil {
		h.respondError(c, "load photos", err)
		return
	}

	st, err := h.svc.Initialize(ctx, photos, s.ID)
	if err != nil {
		h.respondError(c, "start tournament", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Vote casts the caller's vote.
func (h *Handler) Vote(c *gin.Context) {
	s, ok := user.FromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session missing"})
		return
	}

	var body voteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	st, err := h.svc.ApplyVote(c.Request.Context(), s.ID, *body.MatchupIndex, *body.Choice)
	h.respondState(c, "vote", st, err)
}

// Advance moves to the next round.
func (h *Handler) Advance(c *gin.Context) {
	st, err := h.svc.AdvanceRound(c.Request.Context())
	h.respondState(c, "advance round", st, err)
}

// End force-ends the tournament.
func (h *Handler) End(c *gin.Context) {
	st, err := h.svc.EndTournament(c.Request.Context())
	h.respondState(c, "end tournament", st, err)
}

// GetWinner returns the champion, or null while the tournament runs.
func (h *Handler) GetWinner(c *gin.Context) {
	w, err := h.svc.Winner(c.Request.Context())
	if err != nil {
		h.respondError(c, "load winner", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"winner": w})
}

// GetVoted reports whether the caller voted on the current matchup.
func (h *Handler) GetVoted(c *gin.Context) {
	s, ok := user.FromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session missing"})
		return
	}
	voted, err := h.svc.HasVoted(c.Request.Context(), s.ID)
	if err != nil {
		h.respondError(c, "load vote status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voted": voted})
}

// Live upgrades to a websocket that receives every tournament change,
// starting with the current state.
func (h *Handler) Live(c *gin.Context) {
	st, err := h.svc.State(c.Request.Context())
	if err != nil {
		h.respondError(c, "load tournament", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "error", err)
		return
	}
	h.hub.Attach(conn, &Message{Type: MsgState, State: st, Timestamp: h.svc.now().UTC()})
}

func (h *Handler) respondState(c *gin.Context, action string, st *bracket.State, err error) {
	if err != nil {
		h.respondError(c, action, err)
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNoTournament.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) respondError(c *gin.Context, action string, err error) {
	switch {
	case errors.Is(err, bracket.ErrInvalidMatchup), errors.Is(err, bracket.ErrInvalidChoice),
		errors.Is(err, bracket.ErrNotEnoughPhotos):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, bracket.ErrRoundIncomplete):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, kv.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "the tournament is busy, try again"})
	default:
		h.log.Error("tournament request failed", "action", action, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + action})
	}
}
