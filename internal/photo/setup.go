package photo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// PrimeCatalog migrates the photos table and seeds it from the catalog file.
// A missing file is tolerated when the table already holds photos.
func PrimeCatalog(ctx context.Context, repo *Repository, path string, log *slog.Logger) error {
	if err := repo.Migrate(); err != nil {
		return err
	}

	photos, err := LoadCatalog(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		n, countErr := repo.Count(ctx)
		if countErr != nil {
			return countErr
		}
		if n == 0 {
			return fmt.Errorf("photo catalog %s not found and the photos table is empty", path)
		}
		log.Warn("photo catalog file missing, keeping stored catalog", "path", path, "photos", n)
		return nil
	}

	if err := repo.Upsert(ctx, photos); err != nil {
		return err
	}
	log.Info("photo catalog loaded", "path", path, "photos", len(photos))
	return nil
}
