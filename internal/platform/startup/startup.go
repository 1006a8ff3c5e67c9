// Package startup prepares the stores before the server accepts traffic.
package startup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SlpAus/photo-tournament-backend/internal/archive"
	"github.com/SlpAus/photo-tournament-backend/internal/photo"
)

// Dependencies are the stores startup touches.
type Dependencies struct {
	Photos      *photo.Repository
	Archives    *archive.Repository
	History     *archive.Archive
	CatalogPath string
	Log         *slog.Logger
}

// InitializeApplication migrates SQLite, loads the photo catalog and
// refills Redis from the durable copies where Redis starts empty.
func InitializeApplication(ctx context.Context, deps Dependencies) error {
	deps.Log.Info("initializing application")

	if err := photo.PrimeCatalog(ctx, deps.Photos, deps.CatalogPath, deps.Log); err != nil {
		return fmt.Errorf("photo catalog: %w", err)
	}
	if err := deps.Archives.Migrate(); err != nil {
		return err
	}
	if err := RebuildCache(ctx, deps); err != nil {
		return err
	}

	deps.Log.Info("application initialized")
	return nil
}

// RebuildCache restores the Redis data that has a durable copy. The live
// tournament, vote ledgers and win counters exist only in Redis and are
// not recoverable.
func RebuildCache(ctx context.Context, deps Dependencies) error {
	n, err := deps.History.Restore(ctx)
	if err != nil {
		return fmt.Errorf("tournament history: %w", err)
	}
	deps.Log.Info("redis cache rebuilt", "history_entries", n)
	return nil
}
