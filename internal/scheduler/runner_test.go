package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlpAus/photo-tournament-backend/internal/bracket"
	"github.com/SlpAus/photo-tournament-backend/internal/photo"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/logger"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/metrics"
	"github.com/SlpAus/photo-tournament-backend/pkg/lifecycle"
)

type fakeTournaments struct {
	mu          sync.Mutex
	state       *bracket.State
	expireErr   error
	initErr     error
	starts      []string
	expirations int
}

func (f *fakeTournaments) State(context.Context) (*bracket.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, nil
}

func (f *fakeTournaments) CheckExpiration(_ context.Context, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expireErr != nil {
		return false, f.expireErr
	}
	if f.state != nil && f.state.Expired(now, policy.Duration) {
		f.state.IsActive = false
		f.expirations++
		return true, nil
	}
	return false, nil
}

func (f *fakeTournaments) Initialize(_ context.Context, photos []photo.Photo, startedBy string) (*bracket.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initErr != nil {
		return nil, f.initErr
	}
	if len(photos) < 2 {
		return nil, bracket.ErrNotEnoughPhotos
	}
	f.state = &bracket.State{IsActive: true, StartedBy: startedBy, StartedAt: clock.now()}
	f.starts = append(f.starts, startedBy)
	return f.state, nil
}

func (f *fakeTournaments) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

type fakeSource struct {
	photos []photo.Photo
	err    error
}

func (f fakeSource) TournamentPhotos(context.Context) ([]photo.Photo, error) {
	return f.photos, f.err
}

type fakeSweeper struct {
	calls   int
	windows []time.Duration
	err     error
}

func (f *fakeSweeper) Sweep(_ context.Context, olderThan time.Duration) (int, error) {
	f.calls++
	f.windows = append(f.windows, olderThan)
	return 1, f.err
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var clock = &fakeClock{}

func twoPhotos() []photo.Photo {
	return []photo.Photo{{ID: 1, URL: "https://img.example/1.jpg"}, {ID: 2, URL: "https://img.example/2.jpg"}}
}

func newRunner(t *testing.T, tournaments *fakeTournaments, source PhotoSource, sweeper Sweeper, autoStart bool) *Runner {
	t.Helper()
	clock.t = base
	r := NewRunner(policy, tournaments, source, sweeper, RunnerConfig{
		TickInterval:    time.Minute,
		CleanupInterval: time.Hour,
		CleanupWindow:   25 * time.Hour,
		AutoStart:       autoStart,
	}, metrics.Discard(), logger.Discard())
	r.now = clock.now
	r.lastCheck = base
	return r
}

func TestRunner_WaitsForCheckInterval(t *testing.T) {
	ft := &fakeTournaments{}
	r := newRunner(t, ft, fakeSource{photos: twoPhotos()}, nil, true)
	ctx := context.Background()

	assert.Equal(t, ResultIdle, r.Tick(ctx))
	clock.advance(14 * time.Minute)
	assert.Equal(t, ResultIdle, r.Tick(ctx))
	assert.Zero(t, ft.startCount())

	clock.advance(time.Minute)
	assert.Equal(t, ResultStarted, r.Tick(ctx))
	assert.Equal(t, []string{StartedBy}, ft.starts)
	assert.Equal(t, base.Add(15*time.Minute), r.lastCheck)
}

func TestRunner_ActiveTournamentBlocksStart(t *testing.T) {
	ft := &fakeTournaments{state: &bracket.State{IsActive: true, StartedAt: base}}
	r := newRunner(t, ft, fakeSource{photos: twoPhotos()}, nil, true)

	clock.advance(20 * time.Minute)
	assert.Equal(t, ResultIdle, r.Tick(context.Background()))
	assert.Zero(t, ft.startCount())
}

func TestRunner_ExpiryStartsNextTournament(t *testing.T) {
	ft := &fakeTournaments{state: &bracket.State{IsActive: true, StartedAt: base.Add(-29 * time.Minute)}}
	r := newRunner(t, ft, fakeSource{photos: twoPhotos()}, nil, true)
	r.lastCheck = base

	clock.advance(time.Minute)
	assert.Equal(t, ResultStarted, r.Tick(context.Background()))
	assert.Equal(t, 1, ft.expirations)
	assert.Equal(t, 1, ft.startCount())
	assert.True(t, ft.state.IsActive)
}

func TestRunner_AutoStartOffOnlyExpires(t *testing.T) {
	ft := &fakeTournaments{state: &bracket.State{IsActive: true, StartedAt: base.Add(-time.Hour)}}
	r := newRunner(t, ft, fakeSource{photos: twoPhotos()}, nil, false)

	assert.Equal(t, ResultExpired, r.Tick(context.Background()))
	assert.Equal(t, 1, ft.expirations)
	assert.Zero(t, ft.startCount())
}

func TestRunner_FailuresDoNotStopTheLoop(t *testing.T) {
	ctx := context.Background()

	t.Run("photo source", func(t *testing.T) {
		ft := &fakeTournaments{}
		r := newRunner(t, ft, fakeSource{err: errors.New("sqlite locked")}, nil, true)
		clock.advance(15 * time.Minute)
		assert.Equal(t, ResultError, r.Tick(ctx))
		assert.Equal(t, base, r.lastCheck)
	})

	t.Run("not enough photos", func(t *testing.T) {
		ft := &fakeTournaments{}
		r := newRunner(t, ft, fakeSource{photos: twoPhotos()[:1]}, nil, true)
		clock.advance(15 * time.Minute)
		assert.Equal(t, ResultError, r.Tick(ctx))
		assert.Zero(t, ft.startCount())
	})

	t.Run("expiration check", func(t *testing.T) {
		ft := &fakeTournaments{expireErr: errors.New("redis down")}
		r := newRunner(t, ft, fakeSource{photos: twoPhotos()}, nil, true)
		clock.advance(15 * time.Minute)
		assert.Equal(t, ResultStarted, r.Tick(ctx))
	})

	t.Run("shutdown", func(t *testing.T) {
		ft := &fakeTournaments{expireErr: context.Canceled}
		r := newRunner(t, ft, fakeSource{photos: twoPhotos()}, nil, false)
		assert.Equal(t, ResultIdle, r.Tick(ctx))
	})
}

func TestRunner_PresenceCleanup(t *testing.T) {
	sw := &fakeSweeper{}
	r := newRunner(t, &fakeTournaments{}, fakeSource{}, sw, false)
	ctx := context.Background()

	r.Tick(ctx)
	clock.advance(59 * time.Minute)
	r.Tick(ctx)
	assert.Equal(t, 1, sw.calls)

	clock.advance(time.Minute)
	r.Tick(ctx)
	assert.Equal(t, 2, sw.calls)
	assert.Equal(t, []time.Duration{25 * time.Hour, 25 * time.Hour}, sw.windows)

	sw.err = errors.New("redis down")
	clock.advance(time.Hour)
	assert.Equal(t, ResultIdle, r.Tick(ctx))
}

func TestRunner_RunStopsOnShutdown(t *testing.T) {
	ft := &fakeTournaments{}
	r := newRunner(t, ft, fakeSource{photos: twoPhotos()}, nil, true)

	mgr := lifecycle.NewManager(logger.Discard())
	handle, err := mgr.NewServiceHandle("scheduler")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		r.Run(handle)
		close(done)
	}()

	mgr.Shutdown()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after shutdown")
	}
	assert.Empty(t, mgr.WaitWithTimeout(time.Second))
}

func TestHandler_GetSchedule(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ft := &fakeTournaments{state: &bracket.State{IsActive: true, StartedAt: base}}
	h := NewHandler(policy, ft, logger.Discard())
	h.now = func() time.Time { return base.Add(10 * time.Minute) }

	r := gin.New()
	r.GET("/api/tournament/schedule", h.GetSchedule)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tournament/schedule", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"active": true,
		"endsAt": "2026-08-01T12:37:30Z",
		"nextStart": "2026-08-01T12:52:30Z",
		"remaining": 1200000
	}`, rec.Body.String())
}
