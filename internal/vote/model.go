package vote

import (
	"errors"
	"time"
)

const (
	// HistoryKeyPrefix prefixes each user's vote list.
	HistoryKeyPrefix = "photo_user_votes:"
	// WinsKey is the hash of casual-vote win counters, photo id -> count.
	WinsKey = "photo_wins"

	// TypeCasual marks a vote cast outside the bracket.
	TypeCasual = "casual"
)

// Record is one entry of a user's vote history. Round and Match are set for
// bracket votes only.
type Record struct {
	Timestamp           time.Time `json:"timestamp"`
	Round               *int      `json:"round,omitempty"`
	Match               *int      `json:"match,omitempty"`
	VotedFor            int       `json:"votedFor"`
	VotedForDescription string    `json:"votedForDescription"`
	Type                string    `json:"type,omitempty"`
}

// Validate checks the fields every stored record carries.
func (r *Record) Validate() error {
	if r.VotedFor <= 0 {
		return errors.New("vote record is missing votedFor")
	}
	if r.Timestamp.IsZero() {
		return errors.New("vote record is missing timestamp")
	}
	if r.Type != "" && r.Type != TypeCasual {
		return errors.New("vote record has unknown type " + r.Type)
	}
	return nil
}

// IsCasual reports whether the record came from a casual vote.
func (r *Record) IsCasual() bool { return r.Type == TypeCasual }

// Ranking is one row of the casual win leaderboard.
type Ranking struct {
	PhotoID int   `json:"photoId"`
	Wins    int64 `json:"wins"`
}

func historyKey(userID string) string {
	return HistoryKeyPrefix + userID
}
