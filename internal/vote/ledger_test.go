package vote

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlpAus/photo-tournament-backend/internal/photo"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/kv"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/logger"
)

var voteTime = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func newLedger(t *testing.T, capacity int) (*Ledger, *kv.MemoryStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	l := NewLedger(store, capacity, logger.Discard())
	l.now = func() time.Time { return voteTime }
	return l, store
}

func TestLedger_HistoryIsBounded(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, 100)

	for i := 1; i <= 130; i++ {
		require.NoError(t, l.RecordBracket(ctx, "u1", 1, 1, photo.Photo{ID: i, Description: "p" + strconv.Itoa(i)}))
	}

	all, err := l.History(ctx, "u1", 1000)
	require.NoError(t, err)
	require.Len(t, all, 100)
	assert.Equal(t, 130, all[0].VotedFor, "newest first")
	assert.Equal(t, 31, all[99].VotedFor)

	recent, err := l.History(ctx, "u1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []int{130, 129, 128}, []int{recent[0].VotedFor, recent[1].VotedFor, recent[2].VotedFor})
	require.NotNil(t, recent[0].Round)
	assert.Equal(t, 1, *recent[0].Round)
	assert.False(t, recent[0].IsCasual())
}

func TestLedger_HistorySkipsMalformed(t *testing.T) {
	ctx := context.Background()
	l, store := newLedger(t, 100)

	require.NoError(t, l.RecordCasual(ctx, "u1", photo.Photo{ID: 1, Description: "first"}))
	store.Push(historyKey("u1"), "{not json")
	store.Push(historyKey("u1"), `{"timestamp":"2026-06-01T10:00:00Z"}`)
	store.Push(historyKey("u1"), strconv.Quote(`{"timestamp":"2026-06-01T10:00:00Z","votedFor":2,"votedForDescription":"wrapped"}`))

	records, err := l.History(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "wrapped", records[0].VotedForDescription)
	assert.Equal(t, "first", records[1].VotedForDescription)
	assert.True(t, records[1].IsCasual())
}

func TestLedger_CasualVotesCountWins(t *testing.T) {
	ctx := context.Background()
	l, store := newLedger(t, 100)

	require.NoError(t, l.RecordCasual(ctx, "u1", photo.Photo{ID: 7}))
	require.NoError(t, l.RecordCasual(ctx, "u2", photo.Photo{ID: 7}))
	require.NoError(t, l.RecordCasual(ctx, "u2", photo.Photo{ID: 3}))
	require.NoError(t, l.RecordCasual(ctx, "u3", photo.Photo{ID: 5}))
	require.NoError(t, l.RecordBracket(ctx, "u1", 1, 1, photo.Photo{ID: 9}))
	require.NoError(t, store.HSet(ctx, WinsKey, map[string]string{"x": "1", "11": "lots"}))

	counts, err := l.WinCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]int64{7: 2, 3: 1, 5: 1}, counts, "bracket votes do not touch counters")

	rankings, err := l.Rankings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Ranking{{PhotoID: 7, Wins: 2}, {PhotoID: 3, Wins: 1}, {PhotoID: 5, Wins: 1}}, rankings)
}

func TestLedger_RejectsInvalidRecord(t *testing.T) {
	l, _ := newLedger(t, 100)
	err := l.Record(context.Background(), "u1", Record{Timestamp: voteTime})
	assert.Error(t, err)
}

func TestLedger_HistoryEmpty(t *testing.T) {
	l, _ := newLedger(t, 100)
	records, err := l.History(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
