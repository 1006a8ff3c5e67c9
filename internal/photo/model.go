package photo

import (
	"errors"
	"time"
)

// Photo is a tournament contestant. The catalog supplies ID, URL, Description
// and AIRating; Wins and UserVotes are the base counts from the catalog plus
// the live casual-vote counter.
type Photo struct {
	ID          int     `json:"id" yaml:"id"`
	URL         string  `json:"url" yaml:"url"`
	Description string  `json:"description" yaml:"description"`
	AIRating    float64 `json:"aiRating" yaml:"aiRating"`
	Wins        int     `json:"wins" yaml:"wins"`
	UserVotes   int     `json:"userVotes" yaml:"userVotes"`
}

// Validate checks the fields every stored photo must carry.
func (p *Photo) Validate() error {
	if p.ID <= 0 {
		return errors.New("photo id must be positive")
	}
	if p.URL == "" {
		return errors.New("photo url is required")
	}
	return nil
}

// Record is the catalog row in SQLite.
type Record struct {
	// PhotoID is the catalog id, also used as the id in Redis counters.
	PhotoID     int    `gorm:"primaryKey;autoIncrement:false"`
	URL         string `gorm:"not null"`
	Description string
	AIRating    float64
	// BaseWins and BaseVotes are the counts shipped with the catalog.
	BaseWins  int
	BaseVotes int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name.
func (Record) TableName() string { return "photos" }

func (r Record) toPhoto() Photo {
	return Photo{
		ID:          r.PhotoID,
		URL:         r.URL,
		Description: r.Description,
		AIRating:    r.AIRating,
		Wins:        r.BaseWins,
		UserVotes:   r.BaseVotes,
	}
}

func fromPhoto(p Photo) Record {
	return Record{
		PhotoID:     p.ID,
		URL:         p.URL,
		Description: p.Description,
		AIRating:    p.AIRating,
		BaseWins:    p.Wins,
		BaseVotes:   p.UserVotes,
	}
}
