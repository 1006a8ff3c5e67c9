package archive

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SlpAus/photo-tournament-backend/internal/platform/kv"
)

// Repository keeps every archived tournament in SQLite, unbounded.
type Repository struct {
	db *gorm.DB
}

// NewRepository wraps an open database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the archived_tournaments table.
func (r *Repository) Migrate() error {
	if err := r.db.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("cannot migrate archived_tournaments table: %w", err)
	}
	return nil
}

// Save stores a durable copy of e.
func (r *Repository) Save(ctx context.Context, e Entry) error {
	snapshot, err := kv.Encode(e)
	if err != nil {
		return err
	}
	rec := Record{
		StartedBy:  e.StartedBy,
		StartedAt:  e.StartedAt,
		ArchivedAt: e.ArchivedAt,
		Rounds:     e.CurrentRound,
		TotalVotes: e.TotalVotes(),
		Snapshot:   snapshot,
	}
	if w := e.Winner(); w != nil {
		id := w.ID
		rec.WinnerID = &id
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("cannot save archived tournament: %w", err)
	}
	return nil
}

// Count returns the number of archived tournaments.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Record{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("cannot count archived tournaments: %w", err)
	}
	return n, nil
}

// Recent returns up to limit stored tournaments, newest first. Rows whose
// snapshot no longer decodes are skipped.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	var recs []Record
	err := r.db.WithContext(ctx).
		Order("archived_at desc").
		Order("id desc").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("cannot load archived tournaments: %w", err)
	}

	entries := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		var e Entry
		if err := kv.Decode(rec.Snapshot, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
