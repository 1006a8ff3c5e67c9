package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/SlpAus/photo-tournament-backend/api"
	"github.com/SlpAus/photo-tournament-backend/internal/archive"
	"github.com/SlpAus/photo-tournament-backend/internal/photo"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/config"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/database"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/health"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/kv"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/logger"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/metrics"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/shutdown"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/startup"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/tracing"
	"github.com/SlpAus/photo-tournament-backend/internal/presence"
	"github.com/SlpAus/photo-tournament-backend/internal/scheduler"
	"github.com/SlpAus/photo-tournament-backend/internal/tournament"
	"github.com/SlpAus/photo-tournament-backend/internal/user"
	"github.com/SlpAus/photo-tournament-backend/internal/vote"
	"github.com/SlpAus/photo-tournament-backend/pkg/lifecycle"
	"github.com/SlpAus/photo-tournament-backend/pkg/token"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New("release", "info").Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.Mode, cfg.Log.Level)
	ctx := context.Background()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, "photo-tournament", log)
	if err != nil {
		log.Error("tracing unavailable", "error", err)
		os.Exit(1)
	}

	rdb, err := database.InitRedis(ctx, cfg.Database.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	db, err := database.InitDB(cfg.Database.Sqlite)
	if err != nil {
		log.Error("sqlite unavailable", "error", err)
		os.Exit(1)
	}
	store := kv.NewRedisStore(rdb)

	signer, err := newSigner(cfg.Server.CookieSecret)
	if err != nil {
		log.Error("cannot create cookie signer", "error", err)
		os.Exit(1)
	}
	if cfg.Server.CookieSecret == "" {
		log.Warn("server.cookieSecret is empty, sessions will not survive a restart")
	}

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	// stores
	photoRepo := photo.NewRepository(db)
	archiveRepo := archive.NewRepository(db)
	ledger := vote.NewLedger(store, cfg.Ledger.HistoryCapacity, log)
	photos := photo.NewService(photoRepo, ledger, cfg.Tournament.PhotosPerTournament, log)
	history := archive.New(store, archiveRepo, photos, cfg.Archive.Capacity, log)

	startupDeps := startup.Dependencies{
		Photos:      photoRepo,
		Archives:    archiveRepo,
		History:     history,
		CatalogPath: cfg.Photos.CatalogPath,
		Log:         log,
	}
	if err := startup.InitializeApplication(ctx, startupDeps); err != nil {
		log.Error("application initialization failed", "error", err)
		os.Exit(1)
	}

	// services
	tracker := presence.NewTracker(store, cfg.Presence.Window, log)
	users := user.NewService(store, tracker, log)
	hub := tournament.NewHub(m, log)
	tournaments := tournament.NewService(
		tournament.NewRepository(store, log),
		history,
		ledger,
		hub,
		tournament.Config{VotesPerMatchup: cfg.Tournament.VotesPerMatchup, Duration: cfg.Tournament.Duration},
		otel.Tracer("tournament"),
		m,
		log,
	)
	policy := scheduler.Policy{Duration: cfg.Tournament.Duration, CheckInterval: cfg.Tournament.CheckInterval}
	runner := scheduler.NewRunner(policy, tournaments, photos, tracker, scheduler.RunnerConfig{
		TickInterval:    cfg.Tournament.TickInterval,
		CleanupInterval: cfg.Tournament.CleanupInterval,
		CleanupWindow:   cfg.Presence.CleanupWindow,
		AutoStart:       cfg.Tournament.AutoStart,
	}, m, log)

	status := health.NewStatus(log)
	checker := health.NewChecker(rdb, status, func(ctx context.Context) error {
		return startup.RebuildCache(ctx, startupDeps)
	}, health.DefaultCheckInterval, log)
	if err := checker.Initialize(ctx); err != nil {
		log.Error("redis health check failed", "error", err)
		os.Exit(1)
	}

	// background services; the hub lives on the forceful manager so it
	// broadcasts until the scheduler has stopped
	gracefulMgr := lifecycle.NewManager(log)
	forcefulMgr := lifecycle.NewManager(log)
	startService(gracefulMgr, "scheduler", runner.Run, log)
	startService(gracefulMgr, "redis-health", checker.Run, log)
	startService(forcefulMgr, "live-hub", hub.Run, log)

	// http
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	secureCookie := cfg.Server.Mode == gin.ReleaseMode
	limiter := vote.NewUserRateLimiter(rate.Limit(cfg.Vote.RatePerSecond), cfg.Vote.Burst)
	api.SetupRoutes(r, api.Handlers{
		Session:    user.EnsureSessionMiddleware(users, signer, secureCookie, log),
		VoteLimit:  vote.RateLimitMiddleware(limiter),
		Status:     status,
		Users:      user.NewHandler(tracker, log),
		Tournament: tournament.NewHandler(tournaments, photos, hub, cfg.Server.Cors.AllowedOrigins, log),
		Schedule:   scheduler.NewHandler(policy, tournaments, log),
		Archive:    archive.NewHandler(history, log),
		Votes:      vote.NewHandler(ledger, photos, m, log),
		Photos:     photo.NewHandler(photos, log),
		Metrics:    gin.WrapH(metrics.Handler(reg)),
	})

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	coordinator := shutdown.NewCoordinator(gracefulMgr, forcefulMgr, log)
	coordinator.OnShutdown("tracing", shutdownTracing)
	coordinator.OnShutdown("redis", func(context.Context) error { return rdb.Close() })
	coordinator.OnShutdown("sqlite", func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	coordinator.ListenForSignalsAndShutdown(server)
}

func newSigner(secret string) (*token.Signer, error) {
	if secret == "" {
		return token.NewRandomSigner()
	}
	return token.NewSigner(secret)
}

func startService(mgr *lifecycle.Manager, name string, run func(*lifecycle.Handle), log *slog.Logger) {
	handle, err := mgr.NewServiceHandle(name)
	if err != nil {
		log.Error("cannot register background service", "service", name, "error", err)
		os.Exit(1)
	}
	go run(handle)
}
