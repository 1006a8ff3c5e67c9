package photo

import (
	"context"
	"errors"
	"fmt"

	"github.com/SlpAus/photo-tournament-backend/pkg/tree"
)

// ErrNoPair is returned when the catalog holds fewer than two photos.
var ErrNoPair = errors.New("not enough photos to form a pair")

// exposureWeight favours photos that have been voted on less.
func exposureWeight(userVotes int) float64 {
	return 1.0 / (float64(userVotes) + 5.0)
}

// Pair draws two distinct photos for a casual vote, weighted by
// exposureWeight. Photos in exclude are left out as long as two others
// remain, so a client can ask for a pair different from the one it showed.
func (s *Service) Pair(ctx context.Context, exclude ...int) ([2]Photo, error) {
	photos, err := s.All(ctx)
	if err != nil {
		return [2]Photo{}, err
	}
	if len(photos) < 2 {
		return [2]Photo{}, ErrNoPair
	}

	skip := make(map[int]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	eligible := 0
	for _, p := range photos {
		if !skip[p.ID] {
			eligible++
		}
	}
	if eligible < 2 {
		skip = nil
	}

	weights := make([]float64, len(photos))
	for i, p := range photos {
		if !skip[p.ID] {
			weights[i] = exposureWeight(p.UserVotes)
		}
	}
	st, err := tree.NewSegmentTree(len(photos))
	if err != nil {
		return [2]Photo{}, err
	}
	if err := st.Rebuild(weights); err != nil {
		return [2]Photo{}, err
	}

	first, err := s.draw(st)
	if err != nil {
		return [2]Photo{}, err
	}
	first = nearestWeighted(weights, first)
	weights[first] = 0
	if err := st.Update(first, 0); err != nil {
		return [2]Photo{}, err
	}
	second, err := s.draw(st)
	if err != nil {
		return [2]Photo{}, err
	}
	second = nearestWeighted(weights, second)
	return [2]Photo{photos[first], photos[second]}, nil
}

// nearestWeighted returns idx when its weight is positive, otherwise the
// closest index with a positive weight. Rounding in the tree descent can
// land on a zero leaf next to the intended one.
func nearestWeighted(weights []float64, idx int) int {
	if weights[idx] > 0 {
		return idx
	}
	for d := 1; d < len(weights); d++ {
		if i := idx - d; i >= 0 && weights[i] > 0 {
			return i
		}
		if i := idx + d; i < len(weights) && weights[i] > 0 {
			return i
		}
	}
	return idx
}

func (s *Service) draw(st *tree.SegmentTree) (int, error) {
	idx, err := st.Find(s.rnd() * st.TotalSum())
	if err != nil {
		return 0, fmt.Errorf("failed to draw a photo: %w", err)
	}
	return idx, nil
}
