// Package bracket holds the single-elimination state machine. Everything here
// is pure: callers load a State, apply a transition and persist the result.
package bracket

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/SlpAus/photo-tournament-backend/internal/photo"
)

// DefaultVotesPerMatchup is the number of votes that resolves a matchup.
const DefaultVotesPerMatchup = 3

var (
	ErrNotEnoughPhotos = errors.New("bracket: at least two photos are required")
	ErrInvalidMatchup  = errors.New("bracket: matchup is not open in the current round")
	ErrInvalidChoice   = errors.New("bracket: choice must be 0 or 1")
	ErrRoundIncomplete = errors.New("bracket: current round still has open matchups")
)

// Matchup is one head-to-head contest. Player2 is nil for a bye.
type Matchup struct {
	Round        int          `json:"round"`
	Match        int          `json:"match"`
	Player1      photo.Photo  `json:"player1"`
	Player2      *photo.Photo `json:"player2"`
	Player1Votes int          `json:"player1Votes"`
	Player2Votes int          `json:"player2Votes"`
	VotedUsers   []string     `json:"votedUsers"`
	Winner       *photo.Photo `json:"winner"`
	Completed    bool         `json:"completed"`
}

// IsBye reports whether the matchup has a single player.
func (m *Matchup) IsBye() bool { return m.Player2 == nil }

// TotalVotes returns the votes cast on both sides.
func (m *Matchup) TotalVotes() int { return m.Player1Votes + m.Player2Votes }

// HasVoted reports whether userID already voted on this matchup.
func (m *Matchup) HasVoted(userID string) bool {
	return slices.Contains(m.VotedUsers, userID)
}

// State is the singleton tournament record.
type State struct {
	IsActive           bool      `json:"isActive"`
	StartedBy          string    `json:"startedBy"`
	StartedAt          time.Time `json:"startedAt"`
	Bracket            []Matchup `json:"bracket"`
	CurrentRound       int       `json:"currentRound"`
	CurrentMatchup     int       `json:"currentMatchup"`
	RoundComplete      bool      `json:"roundComplete"`
	TournamentComplete bool      `json:"tournamentComplete"`
	// VotesPerMatchup is fixed when the tournament starts. Zero means the default.
	VotesPerMatchup int `json:"votesPerMatchup,omitempty"`
	// Deciding is the bracket index whose winner is the champion. It is set
	// when the tournament completes.
	Deciding *int `json:"decidingMatchup,omitempty"`
	// Version is bumped by the repository on every write.
	Version int64 `json:"version"`
}

// Validate checks the structural invariants a stored state must satisfy.
func (s *State) Validate() error {
	if s.CurrentRound < 1 {
		return fmt.Errorf("bracket: current round must be at least 1, got %d", s.CurrentRound)
	}
	if len(s.Bracket) == 0 {
		return errors.New("bracket: empty bracket")
	}
	if s.CurrentMatchup < 0 || s.CurrentMatchup >= len(s.Bracket) {
		return fmt.Errorf("bracket: current matchup %d out of range", s.CurrentMatchup)
	}
	if s.Deciding != nil && (*s.Deciding < 0 || *s.Deciding >= len(s.Bracket)) {
		return fmt.Errorf("bracket: deciding matchup %d out of range", *s.Deciding)
	}
	for i := range s.Bracket {
		m := &s.Bracket[i]
		if m.Round < 1 || m.Match < 1 {
			return fmt.Errorf("bracket: matchup %d has invalid position %d/%d", i, m.Round, m.Match)
		}
		if err := m.Player1.Validate(); err != nil {
			return fmt.Errorf("bracket: matchup %d player1: %w", i, err)
		}
		if m.Player2 != nil {
			if err := m.Player2.Validate(); err != nil {
				return fmt.Errorf("bracket: matchup %d player2: %w", i, err)
			}
		}
		if m.Completed != (m.Winner != nil) {
			return fmt.Errorf("bracket: matchup %d completed flag disagrees with winner", i)
		}
	}
	return nil
}

func (s *State) quorum() int {
	if s.VotesPerMatchup > 0 {
		return s.VotesPerMatchup
	}
	return DefaultVotesPerMatchup
}

// roundRange returns the [start, end) bracket indices of round.
// Rounds are appended in order, so each occupies one contiguous run.
func (s *State) roundRange(round int) (int, int) {
	start, end := -1, -1
	for i := range s.Bracket {
		if s.Bracket[i].Round != round {
			continue
		}
		if start < 0 {
			start = i
		}
		end = i + 1
	}
	if start < 0 {
		return 0, 0
	}
	return start, end
}
