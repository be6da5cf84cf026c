// internal/httpserver/server.go
//
// HTTP wiring for the higher/lower backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/debug/terms".
//   - Game endpoints (optional auth: guests play via anon cookie):
//     POST /game/new, POST /game/guess, POST /game/end, GET /game/{id}.
//   - Scores: GET /leaderboard, GET /scores/me.
//   - Auth + profile endpoints in routes_auth.go.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Responses carry a view of the game state that masks the hidden term's
//     score while the game is active; the score surfaces naturally once the
//     term becomes known or the game finishes.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/mfreitag/hilo-server/internal/config"
	"github.com/mfreitag/hilo-server/internal/game"
	"github.com/mfreitag/hilo-server/internal/scores"
	"github.com/mfreitag/hilo-server/internal/session"
	"github.com/mfreitag/hilo-server/internal/store"
	"github.com/mfreitag/hilo-server/internal/terms"
)

// Server bundles the router, the session manager, and supporting stores.
type Server struct {
	r       *chi.Mux
	mgr     *session.Manager
	tracker *scores.Tracker
	supply  *terms.Supply
	db      *sql.DB
	cfg     config.Config
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, mgr *session.Manager, tracker *scores.Tracker, supply *terms.Supply, db *sql.DB) *Server {
	s := &Server{r: chi.NewRouter(), mgr: mgr, tracker: tracker, supply: supply, db: db, cfg: cfg}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(15 * time.Second))
	s.r.Use(jsonContentType)
	s.r.Use(s.cors)

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"hilo-server","endpoints":["/health","POST /game/new","POST /game/guess","POST /game/end","GET /game/{id}","GET /leaderboard","GET /scores/me","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/debug/terms", func(w http.ResponseWriter, r *http.Request) {
		cached, sample := s.supply.Stats()
		_ = json.NewEncoder(w).Encode(map[string]any{"cached": cached, "sample": sample})
	})

	// Game endpoints: OPTIONAL AUTH (guests get a stable anon cookie id)
	s.r.Group(func(r chi.Router) {
		r.Use(s.withOptionalAuth())
		r.Post("/game/new", s.handleNewGame)
		r.Post("/game/guess", s.handleGuess)
		r.Post("/game/end", s.handleEndGame)
		r.Get("/game/{id}", s.handleRefresh)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/scores/me", s.handleMyBest)
	})

	// Auth + profile (see routes_auth.go)
	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.ClientOrigin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ GAME ---------------------------------------

// termView hides the score of a not-yet-revealed term.
type termView struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
	Score    *int   `json:"score,omitempty"`
}

// stateView is the wire shape of a game state. Pending terms and used ids
// stay server-side: they would leak upcoming scores.
type stateView struct {
	ID         string   `json:"gameId"`
	Category   string   `json:"category"`
	Round      int      `json:"round"`
	Score      int      `json:"score"`
	KnownTerm  termView `json:"knownTerm"`
	HiddenTerm termView `json:"hiddenTerm"`
	Finished   bool     `json:"finished"`
	CustomSeed string   `json:"customSeed,omitempty"`
}

func viewOf(st *game.State) stateView {
	v := stateView{
		ID:         st.ID,
		Category:   st.Category,
		Round:      st.Round,
		Score:      st.Score(),
		Finished:   st.Finished,
		CustomSeed: st.CustomSeed,
	}
	if st.KnownTerm != nil {
		score := st.KnownTerm.Score
		v.KnownTerm = termView{ID: st.KnownTerm.ID, Text: st.KnownTerm.Text, Category: st.KnownTerm.Category, Score: &score}
	}
	if st.HiddenTerm != nil {
		v.HiddenTerm = termView{ID: st.HiddenTerm.ID, Text: st.HiddenTerm.Text, Category: st.HiddenTerm.Category}
		if st.Finished {
			score := st.HiddenTerm.Score
			v.HiddenTerm.Score = &score
		}
	}
	return v
}

type newGameReq struct {
	Category   string `json:"category"`
	CustomSeed string `json:"customSeed"`
}

// handleNewGame starts a game for the current player (user or guest).
// An empty body is fine (default category); malformed JSON is not.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}

	player := s.currentPlayerID(w, r)
	st, err := s.mgr.StartGame(r.Context(), player, req.Category, req.CustomSeed)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(viewOf(st))
}

type guessReq struct {
	GameID string `json:"gameId"`
	Higher bool   `json:"higher"`
}
type guessRes struct {
	Correct bool      `json:"correct"`
	State   stateView `json:"state"`
}

// handleGuess applies a higher/lower guess.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == "" {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	res, err := s.mgr.Guess(r.Context(), req.GameID, req.Higher)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(guessRes{Correct: res.Correct, State: viewOf(res.State)})
}

type endGameReq struct {
	GameID string `json:"gameId"`
}

// handleEndGame terminates a game early. Idempotent.
func (s *Server) handleEndGame(w http.ResponseWriter, r *http.Request) {
	var req endGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == "" {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if err := s.mgr.EndGame(r.Context(), req.GameID); err != nil {
		s.writeGameError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// handleRefresh is the explicit pull-based reconciliation read; the client
// decides the cadence.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := s.mgr.Refresh(r.Context(), id)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(viewOf(st))
}

// handleMyBest returns the calling player's best score for a category.
func (s *Server) handleMyBest(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = terms.GeneralCategory
	}
	player := s.currentPlayerID(w, r)
	best := s.tracker.Best(r.Context(), player, category)
	_ = json.NewEncoder(w).Encode(map[string]any{"category": category, "best": best})
}

// handleLeaderboard returns the top n best scores for a category.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = terms.GeneralCategory
	}
	n := 10
	if v := r.URL.Query().Get("n"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			n = parsed
		}
	}
	entries, err := s.tracker.Top(r.Context(), category, n)
	if err != nil {
		log.Error().Err(err).Str("category", category).Msg("leaderboard read")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []scores.Entry{}
	}
	_ = json.NewEncoder(w).Encode(entries)
}

// writeGameError maps typed core errors to HTTP statuses.
func (s *Server) writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrGameFinished):
		http.Error(w, `{"error":"game_finished"}`, http.StatusConflict)
	case errors.Is(err, game.ErrInsufficientTerms):
		http.Error(w, `{"error":"insufficient_terms"}`, http.StatusServiceUnavailable)
	case errors.Is(err, session.ErrEmptySeed):
		http.Error(w, `{"error":"empty_custom_seed"}`, http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
	default:
		log.Error().Err(err).Msg("game operation failed")
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
	}
}
