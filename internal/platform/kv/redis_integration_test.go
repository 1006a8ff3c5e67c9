//go:build integration

package kv

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *RedisStore {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())

	return NewRedisStore(rdb)
}

func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	store := startRedis(t)
	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("bounded list", func(t *testing.T) {
		for i := 0; i < 12; i++ {
			require.NoError(t, store.PushBounded(ctx, "bounded", strconv.Itoa(i), 10))
		}
		items, err := store.LRange(ctx, "bounded", 0, -1)
		require.NoError(t, err)
		require.Len(t, items, 10)
		assert.Equal(t, "11", items[0])
	})

	t.Run("hash increment", func(t *testing.T) {
		n, err := store.HIncrBy(ctx, "wins", "42", 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		all, err := store.HGetAll(ctx, "wins")
		require.NoError(t, err)
		assert.Equal(t, "2", all["42"])
	})

	t.Run("concurrent updates do not lose writes", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "counter", "0"))

		const workers = 4
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.Update(ctx, "counter", func(current string, _ bool) (string, error) {
					n, _ := strconv.Atoi(current)
					return strconv.Itoa(n + 1), nil
				})
			}()
		}
		wg.Wait()
		close(errs)

		succeeded := 0
		for err := range errs {
			if err == nil {
				succeeded++
			} else {
				require.ErrorIs(t, err, ErrConflict)
			}
		}
		got, err := store.Get(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(succeeded), got)
	})
}
