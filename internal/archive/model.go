package archive

import (
	"errors"
	"time"

	"github.com/SlpAus/photo-tournament-backend/internal/bracket"
	"github.com/SlpAus/photo-tournament-backend/internal/photo"
)

// Key is the bounded history list.
const Key = "photo_tournament_history"

// DefaultCapacity is how many finished tournaments the list keeps.
const DefaultCapacity = 10

// Entry is a finished tournament as it looked when archived.
type Entry struct {
	bracket.State
	ArchivedAt time.Time `json:"archivedAt"`
}

// Validate checks the snapshot and its archive stamp.
func (e *Entry) Validate() error {
	if e.ArchivedAt.IsZero() {
		return errors.New("archive entry is missing archivedAt")
	}
	return e.State.Validate()
}

// TotalVotes sums the votes cast across every matchup of the entry.
func (e *Entry) TotalVotes() int {
	total := 0
	for i := range e.Bracket {
		total += e.Bracket[i].TotalVotes()
	}
	return total
}

// Stats summarizes the archive.
type Stats struct {
	// Count is the number of entries in the bounded list.
	Count int `json:"count"`
	// AllTime counts every tournament ever archived to the durable store.
	AllTime    int64         `json:"allTime"`
	TotalVotes int           `json:"totalVotes"`
	TopPhotos  []photo.Photo `json:"topPhotos"`
	MostRecent *Entry        `json:"mostRecent"`
}

// Record is the durable copy of an archived tournament.
type Record struct {
	ID         uint `gorm:"primaryKey"`
	StartedBy  string
	StartedAt  time.Time `gorm:"index"`
	ArchivedAt time.Time `gorm:"index"`
	Rounds     int
	TotalVotes int
	WinnerID   *int
	// Snapshot is the JSON encoded Entry.
	Snapshot string `gorm:"type:text"`
}

// TableName pins the table name.
func (Record) TableName() string { return "archived_tournaments" }
