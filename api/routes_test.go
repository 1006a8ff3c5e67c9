package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/SlpAus/photo-tournament-backend/internal/archive"
	"github.com/SlpAus/photo-tournament-backend/internal/bracket"
	"github.com/SlpAus/photo-tournament-backend/internal/photo"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/database"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/health"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/kv"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/logger"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/metrics"
	"github.com/SlpAus/photo-tournament-backend/internal/presence"
	"github.com/SlpAus/photo-tournament-backend/internal/scheduler"
	"github.com/SlpAus/photo-tournament-backend/internal/tournament"
	"github.com/SlpAus/photo-tournament-backend/internal/user"
	"github.com/SlpAus/photo-tournament-backend/internal/vote"
	"github.com/SlpAus/photo-tournament-backend/pkg/token"
)

type testServer struct {
	router *gin.Engine
	status *health.Status
	cookie *http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	log := logger.Discard()

	db, err := database.OpenMemoryDB()
	require.NoError(t, err)
	photoRepo := photo.NewRepository(db)
	require.NoError(t, photoRepo.Migrate())
	require.NoError(t, photoRepo.Upsert(ctx, []photo.Photo{
		{ID: 1, URL: "https://img.example/1.jpg", Description: "harbour", AIRating: 8},
		{ID: 2, URL: "https://img.example/2.jpg", Description: "ridge", AIRating: 6},
	}))
	archiveRepo := archive.NewRepository(db)
	require.NoError(t, archiveRepo.Migrate())

	store := kv.NewMemoryStore()
	m := metrics.Discard()
	ledger := vote.NewLedger(store, 100, log)
	photos := photo.NewService(photoRepo, ledger, 0, log)
	history := archive.New(store, archiveRepo, photos, archive.DefaultCapacity, log)
	tracker := presence.NewTracker(store, 5*time.Minute, log)
	hub := tournament.NewHub(m, log)
	tournaments := tournament.NewService(
		tournament.NewRepository(store, log), history, ledger, hub,
		tournament.Config{VotesPerMatchup: 1, Duration: 30 * time.Minute},
		noop.NewTracerProvider().Tracer("test"), m, log,
	)
	signer, err := token.NewSigner("0123456789abcdef0123")
	require.NoError(t, err)

	status := health.NewStatus(log)
	r := gin.New()
	SetupRoutes(r, Handlers{
		Session:    user.EnsureSessionMiddleware(user.NewService(store, tracker, log), signer, false, log),
		VoteLimit:  vote.RateLimitMiddleware(vote.NewUserRateLimiter(rate.Inf, 1)),
		Status:     status,
		Users:      user.NewHandler(tracker, log),
		Tournament: tournament.NewHandler(tournaments, photos, hub, nil, log),
		Schedule:   scheduler.NewHandler(scheduler.Policy{Duration: 30 * time.Minute, CheckInterval: 15 * time.Minute}, tournaments, log),
		Archive:    archive.NewHandler(history, log),
		Votes:      vote.NewHandler(ledger, photos, m, log),
		Photos:     photo.NewHandler(photos, log),
	})
	return &testServer{router: r, status: status}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == user.CookieName {
			s.cookie = c
		}
	}
	return rec
}

func TestRoutes_TournamentRoundTrip(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, s.cookie, "first contact mints a session cookie")
	var session user.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	rec = s.do(t, http.MethodGet, "/api/session", "")
	var again user.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	assert.Equal(t, session.ID, again.ID, "the cookie keeps the identity")

	rec = s.do(t, http.MethodGet, "/api/users/active", "")
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/tournament/start", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/tournament/vote", `{"matchupIndex":0,"choice":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var st bracket.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.RoundComplete)

	rec = s.do(t, http.MethodPost, "/api/tournament/advance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.TournamentComplete)
	champion := st.Winner()
	require.NotNil(t, champion)

	rec = s.do(t, http.MethodPost, "/api/tournament/end", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/tournament/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []archive.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, session.ID, entries[0].StartedBy)

	rec = s.do(t, http.MethodGet, "/api/votes", "")
	var records []vote.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, champion.ID, records[0].VotedFor)

	rec = s.do(t, http.MethodGet, "/api/tournament/schedule", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sched scheduler.Schedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sched))
	assert.False(t, sched.Active)

	rec = s.do(t, http.MethodGet, "/api/photos/tiers", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutes_UnhealthyRedisAnswers503(t *testing.T) {
	s := newTestServer(t)
	s.status.Assess(false, "", assert.AnError)

	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodGet, "/api/tournament", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodGet, "/healthz", "").Code)
	assert.Nil(t, s.cookie, "no session is minted while redis is down")
}
