package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreitag/hilo-server/internal/config"
	"github.com/mfreitag/hilo-server/internal/scores"
	"github.com/mfreitag/hilo-server/internal/session"
	"github.com/mfreitag/hilo-server/internal/store"
	"github.com/mfreitag/hilo-server/internal/terms"
)

// memScoreStore is an in-memory scores.Store for route tests.
type memScoreStore struct {
	best map[string]int
}

func (m *memScoreStore) key(p, c string) string { return p + "/" + c }

func (m *memScoreStore) Best(_ context.Context, p, c string) (int, error) {
	return m.best[m.key(p, c)], nil
}

func (m *memScoreStore) Upsert(_ context.Context, p, c string, score int) error {
	if score > m.best[m.key(p, c)] {
		m.best[m.key(p, c)] = score
	}
	return nil
}

func (m *memScoreStore) Top(_ context.Context, c string, n int) ([]scores.Entry, error) {
	var out []scores.Entry
	for k, v := range m.best {
		out = append(out, scores.Entry{PlayerID: k, Score: v})
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	supply, err := terms.NewSupply(nil, 20)
	require.NoError(t, err)
	tracker := scores.NewTracker(&memScoreStore{best: map[string]int{}})
	mgr := session.NewManager(supply, store.NewMemoryStore(), store.NewMemoryStore(), tracker, time.Second)
	cfg := config.Config{
		CookieName:   "hilo_token",
		ClientOrigin: "http://localhost:5173",
		JWTSecret:    "test_secret",
	}
	// Auth routes are mounted but unexercised here, so a nil DB is fine.
	return New(cfg, mgr, tracker, supply, nil)
}

func postJSON(t *testing.T, srv *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func getPath(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := getPath(t, srv, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestGameWalkOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/game/new", map[string]string{"category": "technology"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var st stateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 1, st.Round)
	assert.NotEmpty(t, st.ID)
	require.NotNil(t, st.KnownTerm.Score, "known term score is visible")
	assert.Nil(t, st.HiddenTerm.Score, "hidden term score must not leak")

	// Guess until the game ends; the server decides correctness, we just
	// walk the state machine through HTTP.
	finished := false
	for i := 0; i < 50 && !finished; i++ {
		rec = postJSON(t, srv, "/game/guess", map[string]any{"gameId": st.ID, "higher": i%2 == 0})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res guessRes
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		finished = res.State.Finished
		if finished {
			assert.NotNil(t, res.State.HiddenTerm.Score, "final state reveals the hidden score")
		}
	}

	if finished {
		rec = postJSON(t, srv, "/game/guess", map[string]any{"gameId": st.ID, "higher": true})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "game_finished")
	}
}

func TestRefreshRoute(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/game/new", map[string]string{"category": "movies"})
	require.Equal(t, http.StatusOK, rec.Code)
	var st stateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))

	rec = getPath(t, srv, "/game/"+st.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var got stateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, st.ID, got.ID)
	assert.Equal(t, st.Round, got.Round)

	rec = getPath(t, srv, "/game/does-not-exist")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEndGameRoute(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/game/new", map[string]string{"category": "music"})
	require.Equal(t, http.StatusOK, rec.Code)
	var st stateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))

	rec = postJSON(t, srv, "/game/end", map[string]string{"gameId": st.ID})
	assert.Equal(t, http.StatusOK, rec.Code)
	// idempotent
	rec = postJSON(t, srv, "/game/end", map[string]string{"gameId": st.ID})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCustomGameRoute(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/game/new", map[string]string{"customSeed": "flying cars"})
	require.Equal(t, http.StatusOK, rec.Code)
	var st stateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "custom", st.Category)
	assert.Equal(t, "flying cars", st.KnownTerm.Text)

	rec = postJSON(t, srv, "/game/new", map[string]string{"category": "custom"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "empty_custom_seed")
}

func TestNewGameRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/game/new", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad_json")

	// An empty body still starts a default-category game.
	req = httptest.NewRequest(http.MethodPost, "/game/new", nil)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestMyBestRoute(t *testing.T) {
	srv := newTestServer(t)

	// First call mints the anon identity and reports a zero best.
	rec := getPath(t, srv, "/scores/me?category=technology")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Category string `json:"category"`
		Best     int    `json:"best"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "technology", got.Category)
	assert.Equal(t, 0, got.Best)

	var anon string
	for _, c := range rec.Result().Cookies() {
		if c.Name == anonCookieName {
			anon = c.Value
		}
	}
	require.NotEmpty(t, anon)

	srv.tracker.Record(anon, "technology", 4)
	srv.tracker.Close()

	req := httptest.NewRequest(http.MethodGet, "/scores/me?category=technology", nil)
	req.AddCookie(&http.Cookie{Name: anonCookieName, Value: anon})
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 4, got.Best)
}

func TestLeaderboardRoute(t *testing.T) {
	srv := newTestServer(t)

	rec := getPath(t, srv, "/leaderboard?category=technology&n=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []scores.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.NotNil(t, entries, "empty leaderboard is [], not null")
}

func TestGuessValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/game/guess", map[string]any{"higher": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, srv, "/game/guess", map[string]any{"gameId": fmt.Sprintf("missing-%d", time.Now().Unix()), "higher": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
