// Package tree holds a sum segment tree used for weighted random sampling.
package tree

import (
	"fmt"
	"math/bits"
)

// SegmentTree keeps prefix sums over a fixed number of non-negative weights.
// Point updates and weighted lookups are O(log n).
type SegmentTree struct {
	tree         []float64 // 2 * alignedSize nodes, root at 1
	originalSize int
	alignedSize  int
}

// NewSegmentTree creates an all-zero tree of size weights.
func NewSegmentTree(size int) (*SegmentTree, error) {
	if size <= 0 {
		return nil, fmt.Errorf("tree: size must be positive, got %d", size)
	}
	alignedSize := 1 << bits.Len(uint(size))
	return &SegmentTree{
		tree:         make([]float64, 2*alignedSize),
		originalSize: size,
		alignedSize:  alignedSize,
	}, nil
}

// Len returns the number of weights.
func (st *SegmentTree) Len() int {
	return st.originalSize
}

// Rebuild replaces every weight. len(weights) must equal the tree size.
func (st *SegmentTree) Rebuild(weights []float64) error {
	if len(weights) != st.originalSize {
		return fmt.Errorf("tree: got %d weights for a tree of size %d", len(weights), st.originalSize)
	}

	for i := 0; i < st.originalSize; i++ {
		st.tree[st.alignedSize+i] = weights[i]
	}
	for i := st.originalSize; i < st.alignedSize; i++ {
		st.tree[st.alignedSize+i] = 0
	}
	for i := st.alignedSize - 1; i > 0; i-- {
		st.tree[i] = st.tree[2*i] + st.tree[2*i+1]
	}
	return nil
}

// Update sets the weight at index.
func (st *SegmentTree) Update(index int, value float64) error {
	if err := st.check(index); err != nil {
		return err
	}

	pos := st.alignedSize + index
	st.tree[pos] = value
	for pos > 1 {
		pos /= 2
		st.tree[pos] = st.tree[2*pos] + st.tree[2*pos+1]
	}
	return nil
}

// Query returns the weight at index.
func (st *SegmentTree) Query(index int) (float64, error) {
	if err := st.check(index); err != nil {
		return 0, err
	}
	return st.tree[st.alignedSize+index], nil
}

// PrefixSum returns the sum of weights 0..index inclusive.
func (st *SegmentTree) PrefixSum(index int) (float64, error) {
	if err := st.check(index); err != nil {
		return 0, err
	}

	sum := 0.0
	l, r := st.alignedSize, st.alignedSize+index+1
	for l < r {
		if l&1 == 1 {
			sum += st.tree[l]
			l++
		}
		if r&1 == 1 {
			r--
			sum += st.tree[r]
		}
		l /= 2
		r /= 2
	}
	return sum, nil
}

// Find returns the first index whose prefix sum exceeds value. With value
// drawn uniformly from [0, TotalSum()) every index is picked with
// probability proportional to its weight, and zero weights are never picked.
func (st *SegmentTree) Find(value float64) (int, error) {
	total := st.tree[1]
	if value < 0 || value >= total {
		return -1, fmt.Errorf("tree: value %f outside [0, %f)", value, total)
	}

	pos := 1
	for pos < st.alignedSize {
		left := 2 * pos
		if value < st.tree[left] {
			pos = left
		} else {
			value -= st.tree[left]
			pos = left + 1
		}
	}
	index := pos - st.alignedSize
	if index >= st.originalSize {
		// float rounding walked past the last real weight
		return -1, fmt.Errorf("tree: value %f fell past the last weight", value)
	}
	return index, nil
}

// TotalSum returns the sum of all weights.
func (st *SegmentTree) TotalSum() float64 {
	return st.tree[1]
}

func (st *SegmentTree) check(index int) error {
	if index < 0 || index >= st.originalSize {
		return fmt.Errorf("tree: index %d outside [0, %d)", index, st.originalSize)
	}
	return nil
}
