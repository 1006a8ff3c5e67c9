package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/SlpAus/photo-tournament-backend/internal/archive"
	"github.com/SlpAus/photo-tournament-backend/internal/photo"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/config"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/database"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/kv"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/logger"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/metrics"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/tracing"
	"github.com/SlpAus/photo-tournament-backend/internal/tournament"
	"github.com/SlpAus/photo-tournament-backend/internal/vote"
)

// startedBy marks tournaments started from the command line.
const startedBy = "tournamentctl"

func main() {
	app := &cli.App{
		Name:  "tournamentctl",
		Usage: "operate the photo tournament without the HTTP server",
		Commands: []*cli.Command{
			seedCommand(),
			{
				Name:  "tournament",
				Usage: "inspect and drive the live tournament",
				Subcommands: []*cli.Command{
					stateCommand(),
					startCommand(),
					advanceCommand(),
					endCommand(),
				},
			},
			historyCommand(),
			statsCommand(),
			rankingsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env is the set of services a command runs against.
type env struct {
	cfg         *config.Config
	log         *slog.Logger
	rdb         *redis.Client
	db          *gorm.DB
	photos      *photo.Service
	history     *archive.Archive
	tournaments *tournament.Service
	traces      tracing.ShutdownFunc
}

// discardPublisher drops live updates; connected clients pick the change up
// on their next poll.
type discardPublisher struct{}

func (discardPublisher) Publish(tournament.Message) {}

func open(ctx context.Context) (*env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Server.Mode, cfg.Log.Level)

	traces, err := tracing.Setup(ctx, cfg.Tracing, "tournamentctl", log)
	if err != nil {
		return nil, err
	}
	rdb, err := database.InitRedis(ctx, cfg.Database.Redis)
	if err != nil {
		return nil, err
	}
	db, err := database.InitDB(cfg.Database.Sqlite)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}

	store := kv.NewRedisStore(rdb)
	ledger := vote.NewLedger(store, cfg.Ledger.HistoryCapacity, log)
	photos := photo.NewService(photo.NewRepository(db), ledger, cfg.Tournament.PhotosPerTournament, log)
	history := archive.New(store, archive.NewRepository(db), photos, cfg.Archive.Capacity, log)
	tournaments := tournament.NewService(
		tournament.NewRepository(store, log),
		history,
		ledger,
		discardPublisher{},
		tournament.Config{VotesPerMatchup: cfg.Tournament.VotesPerMatchup, Duration: cfg.Tournament.Duration},
		otel.Tracer("tournamentctl"),
		metrics.Discard(),
		log,
	)

	return &env{
		cfg:         cfg,
		log:         log,
		rdb:         rdb,
		db:          db,
		photos:      photos,
		history:     history,
		tournaments: tournaments,
		traces:      traces,
	}, nil
}

func (e *env) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = e.traces(ctx)
	_ = e.rdb.Close()
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// withEnv opens the stores around action.
func withEnv(action func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := open(c.Context)
		if err != nil {
			return err
		}
		defer e.Close()
		return action(c, e)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "load the photo catalog file into SQLite",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "catalog", Usage: "catalog YAML file, defaults to photos.catalogPath"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			db, err := database.InitDB(cfg.Database.Sqlite)
			if err != nil {
				return err
			}
			path := c.String("catalog")
			if path == "" {
				path = cfg.Photos.CatalogPath
			}
			photos, err := photo.LoadCatalog(path)
			if err != nil {
				return err
			}
			repo := photo.NewRepository(db)
			if err := repo.Migrate(); err != nil {
				return err
			}
			if err := repo.Upsert(c.Context, photos); err != nil {
				return err
			}
			fmt.Printf("seeded %d photos from %s\n", len(photos), path)
			return nil
		},
	}
}

func stateCommand() *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "print the current tournament",
		Action: withEnv(func(c *cli.Context, e *env) error {
			st, err := e.tournaments.State(c.Context)
			if err != nil {
				return err
			}
			return printJSON(st)
		}),
	}
}

func startCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "start a tournament, replacing the active one",
		Flags: []cli.Flag{
			&cli.IntSliceFlag{Name: "photo", Usage: "photo id to include, repeatable; defaults to the scheduler's selection"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			var (
				photos []photo.Photo
				err    error
			)
			if ids := c.IntSlice("photo"); len(ids) > 0 {
				photos, err = e.photos.ByIDs(c.Context, ids)
			} else {
				photos, err = e.photos.TournamentPhotos(c.Context)
			}
			if err != nil {
				return err
			}
			st, err := e.tournaments.Initialize(c.Context, photos, startedBy)
			if err != nil {
				return err
			}
			return printJSON(st)
		}),
	}
}

func advanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "advance",
		Usage: "advance to the next round once every matchup is decided",
		Action: withEnv(func(c *cli.Context, e *env) error {
			st, err := e.tournaments.AdvanceRound(c.Context)
			if err != nil {
				return err
			}
			if st == nil {
				return tournament.ErrNoTournament
			}
			return printJSON(st)
		}),
	}
}

func endCommand() *cli.Command {
	return &cli.Command{
		Name:  "end",
		Usage: "force-end and archive the active tournament",
		Action: withEnv(func(c *cli.Context, e *env) error {
			st, err := e.tournaments.EndTournament(c.Context)
			if err != nil {
				return err
			}
			if st == nil {
				return tournament.ErrNoTournament
			}
			return printJSON(st)
		}),
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "list archived tournaments, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: archive.DefaultCapacity},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			entries, err := e.history.List(c.Context, c.Int("limit"))
			if err != nil {
				return err
			}
			return printJSON(entries)
		}),
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print archive statistics",
		Action: withEnv(func(c *cli.Context, e *env) error {
			stats, err := e.history.Stats(c.Context)
			if err != nil {
				return err
			}
			return printJSON(stats)
		}),
	}
}

func rankingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "rankings",
		Usage: "print photos by wins",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			photos, err := e.photos.Rankings(c.Context, c.Int("limit"))
			if err != nil {
				return err
			}
			return printJSON(photos)
		}),
	}
}
