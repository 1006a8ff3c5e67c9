package api

import (
	"github.com/gin-gonic/gin"

	"github.com/SlpAus/photo-tournament-backend/internal/archive"
	"github.com/SlpAus/photo-tournament-backend/internal/photo"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/health"
	"github.com/SlpAus/photo-tournament-backend/internal/scheduler"
	"github.com/SlpAus/photo-tournament-backend/internal/tournament"
	"github.com/SlpAus/photo-tournament-backend/internal/user"
	"github.com/SlpAus/photo-tournament-backend/internal/vote"
)

// Handlers collects everything the routes are served by.
type Handlers struct {
	Session    gin.HandlerFunc
	VoteLimit  gin.HandlerFunc
	Status     *health.Status
	Users      *user.Handler
	Tournament *tournament.Handler
	Schedule   *scheduler.Handler
	Archive    *archive.Handler
	Votes      *vote.Handler
	Photos     *photo.Handler
	Metrics    gin.HandlerFunc
}

// SetupRoutes registers every route of the service.
func SetupRoutes(router *gin.Engine, h Handlers) {
	router.GET("/healthz", health.Handler(h.Status))
	if h.Metrics != nil {
		router.GET("/metrics", h.Metrics)
	}

	api := router.Group("/api", health.RequireRedis(h.Status), h.Session)
	{
		api.GET("/session", h.Users.GetSession)
		api.GET("/users/active", h.Users.GetActiveCount)

		t := api.Group("/tournament")
		{
			t.GET("", h.Tournament.GetState)
			t.POST("/start", h.Tournament.Start)
			t.POST("/vote", h.VoteLimit, h.Tournament.Vote)
			t.POST("/advance", h.Tournament.Advance)
			t.POST("/end", h.Tournament.End)
			t.GET("/winner", h.Tournament.GetWinner)
			t.GET("/voted", h.Tournament.GetVoted)
			t.GET("/schedule", h.Schedule.GetSchedule)
			t.GET("/live", h.Tournament.Live)
			t.GET("/history", h.Archive.GetHistory)
			t.GET("/stats", h.Archive.GetStats)
		}

		api.GET("/votes", h.Votes.GetHistory)
		api.POST("/votes/casual", h.VoteLimit, h.Votes.SubmitCasual)

		api.GET("/photos/pair", h.Photos.GetPair)
		api.GET("/photos/rankings", h.Photos.GetRankings)
		api.GET("/photos/tiers", h.Photos.GetTiers)
	}
}
