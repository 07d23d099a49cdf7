// internal/httpserver/server.go
//
// HTTP server wiring for the word card game backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, request logs).
//   - Public endpoints: "/", "/health".
//   - Game endpoints mounted under /games (see routes_games.go).
//   - Live state stream over WebSocket: GET /games/{id}/ws (see stream.go).
//   - Mapping of game errors to HTTP status codes and stable error codes.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled for a single client origin.
//   - The WebSocket route sits outside the handler timeout; it lives as long as the
//     client or the game does.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordcards/internal/game"
	"github.com/robalobadob/wordcards/internal/session"
)

// Server bundles the router and the session manager every route goes through.
type Server struct {
	r        *chi.Mux
	sessions *session.Manager
	origin   string
	upgrader websocket.Upgrader
}

// New constructs a Server, installs middleware, and registers routes.
// clientOrigin is the single browser origin allowed by CORS and the WebSocket handshake.
func New(sessions *session.Manager, clientOrigin string) *Server {
	s := &Server{r: chi.NewRouter(), sessions: sessions, origin: clientOrigin}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)
	s.r.Use(chimw.Recoverer)
	s.r.Use(cors(clientOrigin))

	// --- diagnostics ---
	s.r.With(jsonContentType).Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"wordcards","endpoints":["/health","POST /games","GET /games/{id}","POST /games/{id}/{join,play,discard,challenge,exit}","GET /games/{id}/ws"]}`))
	})
	s.r.With(jsonContentType).Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.mountGames(s.r)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Router exposes the internal router (useful for tests and http.Server).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger writes one zerolog line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("reqId", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// ------------------------------- errors ------------------------------------

// errorCodes maps game errors to a status and a stable client-facing code.
// Order matters only for errors that wrap more than one sentinel.
var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{game.ErrGameNotFound, http.StatusNotFound, "game_not_found"},
	{game.ErrPlayerNotFound, http.StatusNotFound, "player_not_found"},
	{game.ErrWordNotOnBoard, http.StatusNotFound, "word_not_on_board"},
	{game.ErrGameFull, http.StatusConflict, "game_full"},
	{game.ErrNameTaken, http.StatusConflict, "name_taken"},
	{game.ErrNotYourTurn, http.StatusConflict, "not_your_turn"},
	{game.ErrInvalidName, http.StatusUnprocessableEntity, "invalid_name"},
	{game.ErrInvalidWord, http.StatusUnprocessableEntity, "invalid_word"},
	{game.ErrInvalidTile, http.StatusUnprocessableEntity, "invalid_tile"},
	{game.ErrCardNotInHand, http.StatusUnprocessableEntity, "card_not_in_hand"},
	{game.ErrStorageFailure, http.StatusServiceUnavailable, "storage_failure"},
	{session.ErrClosed, http.StatusServiceUnavailable, "shutting_down"},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, "timeout"},
	{context.Canceled, http.StatusServiceUnavailable, "canceled"},
}

// classify returns the HTTP status and error code for err.
func classify(err error) (int, string) {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.status, c.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// writeError responds with {"error":code}; server-side failures are logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("reqId", chimw.GetReqID(r.Context())).Str("path", r.URL.Path).Msg("request failed")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v, answering 400 bad_json on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_json"})
		return false
	}
	return true
}
