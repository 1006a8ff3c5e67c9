package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentTree_Sums(t *testing.T) {
	st, err := NewSegmentTree(5)
	require.NoError(t, err)
	require.NoError(t, st.Rebuild([]float64{1, 2, 3, 4, 5}))

	assert.Equal(t, 5, st.Len())
	assert.InDelta(t, 15.0, st.TotalSum(), 1e-9)

	sum, err := st.PrefixSum(2)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, sum, 1e-9)

	require.NoError(t, st.Update(1, 0))
	sum, err = st.PrefixSum(4)
	require.NoError(t, err)
	assert.InDelta(t, 13.0, sum, 1e-9)

	w, err := st.Query(1)
	require.NoError(t, err)
	assert.Zero(t, w)
}

func TestSegmentTree_Find(t *testing.T) {
	st, err := NewSegmentTree(4)
	require.NoError(t, err)
	require.NoError(t, st.Rebuild([]float64{0, 2, 0, 1}))

	testCases := []struct {
		value float64
		want  int
	}{
		{0, 1},
		{1.999, 1},
		{2, 3},
		{2.5, 3},
	}
	for _, tc := range testCases {
		got, err := st.Find(tc.value)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "value %v", tc.value)
	}

	_, err = st.Find(3)
	assert.Error(t, err)
	_, err = st.Find(-0.1)
	assert.Error(t, err)
}

func TestSegmentTree_Errors(t *testing.T) {
	_, err := NewSegmentTree(0)
	assert.Error(t, err)

	st, err := NewSegmentTree(3)
	require.NoError(t, err)
	assert.Error(t, st.Rebuild([]float64{1, 2}))
	assert.Error(t, st.Update(3, 1))
	_, err = st.Query(-1)
	assert.Error(t, err)
	_, err = st.PrefixSum(3)
	assert.Error(t, err)

	_, err = st.Find(0)
	assert.Error(t, err, "an empty tree has nothing to find")
}
