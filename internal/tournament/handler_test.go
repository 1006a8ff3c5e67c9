package tournament

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlpAus/photo-tournament-backend/internal/bracket"
	"github.com/SlpAus/photo-tournament-backend/internal/photo"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/logger"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/metrics"
	"github.com/SlpAus/photo-tournament-backend/internal/user"
	"github.com/SlpAus/photo-tournament-backend/pkg/lifecycle"
)

type fakePhotoSource struct {
	photos []photo.Photo
}

func (f fakePhotoSource) TournamentPhotos(context.Context) ([]photo.Photo, error) {
	return f.photos, nil
}

func (f fakePhotoSource) ByIDs(_ context.Context, ids []int) ([]photo.Photo, error) {
	out := []photo.Photo{}
	for _, p := range f.photos {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

// withSession stands in for the session middleware.
func withSession(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user.SetSession(c, user.Session{ID: id, LastActive: now})
		c.Next()
	}
}

func newTestRouter(t *testing.T, f *fixture, hub *Hub) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHandler(f.svc, fakePhotoSource{photos: testPhotos(5)}, hub, nil, logger.Discard())

	r := gin.New()
	r.Use(withSession("alice"))
	g := r.Group("/api/tournament")
	g.GET("", h.GetState)
	g.POST("/start", h.Start)
	g.POST("/vote", h.Vote)
	g.POST("/advance", h.Advance)
	g.POST("/end", h.End)
	g.GET("/winner", h.GetWinner)
	g.GET("/voted", h.GetVoted)
	g.GET("/live", h.Live)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_NoTournament(t *testing.T) {
	r := newTestRouter(t, newFixture(t, 3), nil)

	rec := do(r, http.MethodGet, "/api/tournament", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", rec.Body.String())

	rec = do(r, http.MethodPost, "/api/tournament/vote", `{"matchupIndex":0,"choice":0}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(r, http.MethodPost, "/api/tournament/end", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(r, http.MethodGet, "/api/tournament/winner", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"winner":null}`, rec.Body.String())
}

func TestHandler_StartAndVote(t *testing.T) {
	f := newFixture(t, 3)
	r := newTestRouter(t, f, nil)

	rec := do(r, http.MethodPost, "/api/tournament/start", `{"photoIds":[2,4]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var st bracket.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "alice", st.StartedBy)
	require.Len(t, st.Bracket, 1)
	assert.Equal(t, 2, st.Bracket[0].Player1.ID)
	assert.Equal(t, 4, st.Bracket[0].Player2.ID)

	rec = do(r, http.MethodPost, "/api/tournament/vote", `{"matchupIndex":0,"choice":0}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(r, http.MethodGet, "/api/tournament/voted", "")
	assert.JSONEq(t, `{"voted":true}`, rec.Body.String())

	rec = do(r, http.MethodPost, "/api/tournament/advance", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(r, http.MethodPost, "/api/tournament/vote", `{"matchupIndex":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(r, http.MethodPost, "/api/tournament/vote", `{"matchupIndex":3,"choice":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_StartWithoutBodyUsesPhotoSource(t *testing.T) {
	r := newTestRouter(t, newFixture(t, 3), nil)

	rec := do(r, http.MethodPost, "/api/tournament/start", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var st bracket.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Len(t, st.Bracket, 3)
}

func TestHandler_LiveStream(t *testing.T) {
	f := newFixture(t, 3)
	mgr := lifecycle.NewManager(logger.Discard())
	handle, err := mgr.NewServiceHandle("live-hub")
	require.NoError(t, err)
	hub := NewHub(metrics.Discard(), logger.Discard())
	go hub.Run(handle)
	t.Cleanup(func() {
		mgr.Shutdown()
		mgr.WaitWithTimeout(time.Second)
	})
	f.svc.hub = hub

	srv := httptest.NewServer(newTestRouter(t, f, hub))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/tournament/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() Message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	first := read()
	assert.Equal(t, MsgState, first.Type)
	assert.Nil(t, first.State)

	_, err = f.svc.Initialize(context.Background(), testPhotos(2), "alice")
	require.NoError(t, err)

	update := read()
	assert.Equal(t, MsgState, update.Type)
	require.NotNil(t, update.State)
	assert.True(t, update.State.IsActive)
}
