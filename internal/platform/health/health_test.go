package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlpAus/photo-tournament-backend/internal/platform/logger"
)

// fakeInfo replays a script of INFO results, repeating the last one.
type fakeInfo struct {
	results []infoResult
	calls   int
}

type infoResult struct {
	runID string
	err   error
}

func (f *fakeInfo) Info(ctx context.Context, _ ...string) *redis.StringCmd {
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	r := f.results[i]
	if r.err != nil {
		return redis.NewStringResult("", r.err)
	}
	return redis.NewStringResult("# Server\r\nredis_version:7.2.4\r\nrun_id:"+r.runID+"\r\ntcp_port:6379\r\n", nil)
}

func up(id string) infoResult { return infoResult{runID: id} }

var down = infoResult{err: errors.New("connection refused")}

func TestChecker_Initialize(t *testing.T) {
	status := NewStatus(logger.Discard())
	c := NewChecker(&fakeInfo{results: []infoResult{up("abc123")}}, status, nil, 0, logger.Discard())
	require.NoError(t, c.Initialize(context.Background()))
	assert.Equal(t, "abc123", status.lastKnownRunID)

	c = NewChecker(&fakeInfo{results: []infoResult{down}}, NewStatus(logger.Discard()), nil, 0, logger.Discard())
	assert.Error(t, c.Initialize(context.Background()))

	c = NewChecker(&fakeInfo{results: []infoResult{{runID: "zz-not-hex"}}}, NewStatus(logger.Discard()), nil, 0, logger.Discard())
	assert.Error(t, c.Initialize(context.Background()))
}

func TestChecker_OutageAndRecovery(t *testing.T) {
	ctx := context.Background()
	status := NewStatus(logger.Discard())
	rebuilds := 0
	info := &fakeInfo{results: []infoResult{up("aaa"), down, up("aaa")}}
	c := NewChecker(info, status, func(context.Context) error { rebuilds++; return nil }, 0, logger.Discard())
	require.NoError(t, c.Initialize(ctx))

	c.Check(ctx)
	assert.Equal(t, StateDegraded, status.State())
	assert.Equal(t, "connection refused", status.LastError())

	c.Check(ctx)
	assert.Equal(t, StateHealthy, status.State())
	assert.Empty(t, status.LastError())
	assert.Zero(t, rebuilds)
}

func TestChecker_RestartTriggersRebuild(t *testing.T) {
	ctx := context.Background()
	status := NewStatus(logger.Discard())
	rebuilds := 0
	info := &fakeInfo{results: []infoResult{up("aaa"), up("bbb")}}
	c := NewChecker(info, status, func(context.Context) error { rebuilds++; return nil }, 0, logger.Discard())
	require.NoError(t, c.Initialize(ctx))

	c.Check(ctx)
	assert.Equal(t, 1, rebuilds)
	assert.Equal(t, StateHealthy, status.State())
}

func TestChecker_FailedRebuildIsRetried(t *testing.T) {
	ctx := context.Background()
	status := NewStatus(logger.Discard())
	attempts := 0
	rebuild := func(context.Context) error {
		attempts++
		if attempts == 1 {
			return errors.New("sqlite busy")
		}
		return nil
	}
	info := &fakeInfo{results: []infoResult{up("aaa"), up("bbb")}}
	c := NewChecker(info, status, rebuild, 0, logger.Discard())
	require.NoError(t, c.Initialize(ctx))

	c.Check(ctx)
	assert.Equal(t, StateRebuilding, status.State())
	assert.False(t, status.Healthy())

	c.Check(ctx)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, StateHealthy, status.State())
}

func TestStatus_RestartDuringRebuild(t *testing.T) {
	status := NewStatus(logger.Discard())
	status.SetInitialRunID("aaa")

	require.True(t, status.Assess(true, "bbb", nil))
	status.MarkRebuildComplete(true, "ccc")
	assert.Equal(t, StateRebuilding, status.State())

	require.True(t, status.Assess(true, "ccc", nil))
	status.MarkRebuildComplete(true, "ccc")
	assert.Equal(t, StateHealthy, status.State())
}

func TestHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	status := NewStatus(logger.Discard())

	r := gin.New()
	r.GET("/healthz", Handler(status))
	r.GET("/guarded", RequireRedis(status), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.Equal(t, http.StatusNoContent, get("/guarded").Code)

	status.Assess(false, "", errors.New("i/o timeout"))
	rec = get("/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","error":"i/o timeout"}`, rec.Body.String())
	assert.Equal(t, http.StatusServiceUnavailable, get("/guarded").Code)
}
