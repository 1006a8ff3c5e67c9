package bracket

import (
	"time"

	"github.com/SlpAus/photo-tournament-backend/internal/photo"
)

// Option tunes a new tournament.
type Option func(*State)

// WithVotesPerMatchup overrides the resolving vote count.
func WithVotesPerMatchup(n int) Option {
	return func(s *State) {
		if n > 0 {
			s.VotesPerMatchup = n
		}
	}
}

// New seeds round 1 from a uniformly shuffled copy of photos. Consecutive
// photos are paired and an odd photo out gets a bye.
func New(photos []photo.Photo, startedBy string, now time.Time, rnd Rand, opts ...Option) (*State, error) {
	if len(photos) < 2 {
		return nil, ErrNotEnoughPhotos
	}

	seeded := make([]photo.Photo, len(photos))
	copy(seeded, photos)
	rnd.Shuffle(len(seeded), func(i, j int) {
		seeded[i], seeded[j] = seeded[j], seeded[i]
	})

	s := &State{
		IsActive:     true,
		StartedBy:    startedBy,
		StartedAt:    now.UTC(),
		Bracket:      pair(seeded, 1),
		CurrentRound: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// pair builds the matchups of one round.
func pair(players []photo.Photo, round int) []Matchup {
	matchups := make([]Matchup, 0, (len(players)+1)/2)
	for i := 0; i < len(players); i += 2 {
		m := Matchup{
			Round:      round,
			Match:      i/2 + 1,
			Player1:    players[i],
			VotedUsers: []string{},
		}
		if i+1 < len(players) {
			p2 := players[i+1]
			m.Player2 = &p2
		} else {
			winner := players[i]
			m.Winner = &winner
			m.Completed = true
		}
		matchups = append(matchups, m)
	}
	return matchups
}

// ApplyVote casts userID's vote for side choice (0 = player1, 1 = player2) on
// the matchup at idx. It reports whether the state changed; a repeated vote,
// a vote on a resolved matchup and a vote on a finished tournament change
// nothing and are not errors.
func (s *State) ApplyVote(idx, choice int, userID string, rnd Rand) (bool, error) {
	if !s.IsActive || s.TournamentComplete {
		return false, nil
	}
	if idx < 0 || idx >= len(s.Bracket) {
		return false, ErrInvalidMatchup
	}
	if choice != 0 && choice != 1 {
		return false, ErrInvalidChoice
	}
	m := &s.Bracket[idx]
	if m.Round != s.CurrentRound {
		return false, ErrInvalidMatchup
	}
	if m.Completed || m.HasVoted(userID) {
		return false, nil
	}

	if choice == 0 {
		m.Player1Votes++
	} else {
		m.Player2Votes++
	}
	m.VotedUsers = append(m.VotedUsers, userID)

	if m.TotalVotes() < s.quorum() {
		return true, nil
	}

	resolve(m, rnd)
	_, end := s.roundRange(s.CurrentRound)
	for i := idx + 1; i < end; i++ {
		if !s.Bracket[i].Completed {
			s.CurrentMatchup = i
			return true, nil
		}
	}
	if s.roundResolved() {
		s.RoundComplete = true
	}
	return true, nil
}

// resolve picks the side with more votes, or a random side on a tie.
func resolve(m *Matchup, rnd Rand) {
	winner := m.Player1
	switch {
	case m.IsBye():
	case m.Player2Votes > m.Player1Votes:
		winner = *m.Player2
	case m.Player2Votes == m.Player1Votes && rnd.IntN(2) == 1:
		winner = *m.Player2
	}
	m.Winner = &winner
	m.Completed = true
}

func (s *State) roundResolved() bool {
	start, end := s.roundRange(s.CurrentRound)
	for i := start; i < end; i++ {
		if !s.Bracket[i].Completed {
			return false
		}
	}
	return end > start
}

// AdvanceRound pairs the winners of the current round into the next one.
// With a single winner left the tournament is complete and the bracket is
// left as is.
func (s *State) AdvanceRound() error {
	if s.TournamentComplete {
		return nil
	}
	if !s.roundResolved() {
		return ErrRoundIncomplete
	}

	start, end := s.roundRange(s.CurrentRound)
	winners := make([]photo.Photo, 0, end-start)
	for i := start; i < end; i++ {
		winners = append(winners, *s.Bracket[i].Winner)
	}

	if len(winners) == 1 {
		s.TournamentComplete = true
		final := start
		s.Deciding = &final
		return nil
	}

	s.CurrentMatchup = len(s.Bracket)
	s.Bracket = append(s.Bracket, pair(winners, s.CurrentRound+1)...)
	s.CurrentRound++
	s.RoundComplete = false
	return nil
}

// ForceEnd stops the tournament. When it had not finished on its own, the
// current-round matchup with the most votes is resolved, the first one
// winning ties between matchups.
func (s *State) ForceEnd(rnd Rand) {
	wasComplete := s.TournamentComplete
	s.IsActive = false
	s.TournamentComplete = true
	if wasComplete {
		return
	}

	start, end := s.roundRange(s.CurrentRound)
	best := -1
	for i := start; i < end; i++ {
		if best < 0 || s.Bracket[i].TotalVotes() > s.Bracket[best].TotalVotes() {
			best = i
		}
	}
	if best < 0 {
		return
	}
	if m := &s.Bracket[best]; !m.Completed {
		resolve(m, rnd)
	}
	s.Deciding = &best
}

// Winner returns the champion, or nil until the tournament is complete.
// A force-ended tournament is won by the matchup ForceEnd resolved.
func (s *State) Winner() *photo.Photo {
	if !s.TournamentComplete {
		return nil
	}
	if s.Deciding != nil && *s.Deciding >= 0 && *s.Deciding < len(s.Bracket) {
		if w := s.Bracket[*s.Deciding].Winner; w != nil {
			champion := *w
			return &champion
		}
	}
	var final *Matchup
	for i := range s.Bracket {
		if final == nil || s.Bracket[i].Round > final.Round {
			final = &s.Bracket[i]
		}
	}
	if final == nil || final.Winner == nil {
		return nil
	}
	w := *final.Winner
	return &w
}

// HasVoted reports whether userID voted on the current matchup. It is false
// between rounds and after the tournament ends.
func (s *State) HasVoted(userID string) bool {
	if s.RoundComplete || s.TournamentComplete {
		return false
	}
	if s.CurrentMatchup < 0 || s.CurrentMatchup >= len(s.Bracket) {
		return false
	}
	return s.Bracket[s.CurrentMatchup].HasVoted(userID)
}

// Elapsed returns the time since the tournament started.
func (s *State) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}

// Expired reports whether an active tournament has run for at least d.
func (s *State) Expired(now time.Time, d time.Duration) bool {
	return s.IsActive && s.Elapsed(now) >= d
}
