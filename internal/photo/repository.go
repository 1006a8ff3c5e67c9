package photo

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository keeps the static photo catalog in SQLite.
type Repository struct {
	db *gorm.DB
}

// NewRepository wraps an open database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the photos table.
func (r *Repository) Migrate() error {
	if err := r.db.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("cannot migrate photos table: %w", err)
	}
	return nil
}

// Upsert inserts the photos, or refreshes the catalog fields of the ones that
// already exist.
func (r *Repository) Upsert(ctx context.Context, photos []Photo) error {
	if len(photos) == 0 {
		return nil
	}
	records := make([]Record, 0, len(photos))
	for _, p := range photos {
		records = append(records, fromPhoto(p))
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "photo_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"url", "description", "ai_rating", "base_wins", "base_votes", "updated_at"}),
	}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("cannot upsert photo catalog: %w", err)
	}
	return nil
}

// All returns the whole catalog ordered by id.
func (r *Repository) All(ctx context.Context) ([]Photo, error) {
	var records []Record
	if err := r.db.WithContext(ctx).Order("photo_id asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("cannot load photo catalog: %w", err)
	}
	photos := make([]Photo, 0, len(records))
	for _, rec := range records {
		photos = append(photos, rec.toPhoto())
	}
	return photos, nil
}

// ByIDs returns the catalog entries for ids, ordered by id. Unknown ids are ignored.
func (r *Repository) ByIDs(ctx context.Context, ids []int) ([]Photo, error) {
	var records []Record
	if err := r.db.WithContext(ctx).Where("photo_id IN ?", ids).Order("photo_id asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("cannot load photos by id: %w", err)
	}
	photos := make([]Photo, 0, len(records))
	for _, rec := range records {
		photos = append(photos, rec.toPhoto())
	}
	return photos, nil
}

// Count returns the number of catalog entries.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Record{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("cannot count photos: %w", err)
	}
	return n, nil
}
