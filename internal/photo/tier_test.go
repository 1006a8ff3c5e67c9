package photo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		photo Photo
		want  Tier
	}{
		{name: "S at exact threshold", photo: Photo{Wins: 10, AIRating: 6.67}, want: TierS},
		{name: "A", photo: Photo{Wins: 10, AIRating: 0}, want: TierA},
		{name: "B", photo: Photo{Wins: 5, AIRating: 6}, want: TierB},
		{name: "C", photo: Photo{Wins: 4, AIRating: 2}, want: TierC},
		{name: "D", photo: Photo{Wins: 0, AIRating: 9.9}, want: TierD},
		{name: "rating alone reaches C at most", photo: Photo{AIRating: 10}, want: TierC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.photo), "score %.2f", Score(tt.photo))
		})
	}
}

func TestTierList_AllBandsPresent(t *testing.T) {
	groups := TierList([]Photo{
		{ID: 1, Wins: 20},
		{ID: 2, Wins: 0},
		{ID: 3, Wins: 15},
	})
	require.Len(t, groups, len(Tiers))

	for i, g := range groups {
		assert.Equal(t, Tiers[i], g.Tier)
		assert.NotEmpty(t, g.Description)
		assert.NotNil(t, g.Photos)
	}

	ids := func(ps []Photo) []int {
		out := []int{}
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}
	assert.Equal(t, []int{1, 3}, ids(groups[0].Photos))
	assert.Empty(t, groups[1].Photos)
	assert.Equal(t, []int{2}, ids(groups[4].Photos))
}
