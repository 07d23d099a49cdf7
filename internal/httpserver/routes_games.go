// internal/httpserver/routes_games.go
//
// HTTP routes for game play. Every mutation goes through the session manager, which
// serializes it with all other mutations of the same game.
//   - POST /games                 → create a game, creator takes the first seat
//   - GET  /games/{id}            → current state (ETag = version, 304 when unchanged)
//   - POST /games/{id}/join       → take a seat
//   - POST /games/{id}/play       → play a word from the hand
//   - POST /games/{id}/discard    → discard one tile
//   - POST /games/{id}/challenge  → challenge a word on the board
//   - POST /games/{id}/exit       → leave; the last player out deletes the game

package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/robalobadob/wordcards/internal/game"
)

const handlerTimeout = 10 * time.Second

// mountGames registers all /games routes. The stream is exempt from the handler
// timeout; everything else is bounded and answers JSON.
func (s *Server) mountGames(r chi.Router) {
	r.Route("/games", func(r chi.Router) {
		r.With(chimw.Timeout(handlerTimeout), jsonContentType).Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/ws", s.handleStream)
			r.Group(func(r chi.Router) {
				r.Use(chimw.Timeout(handlerTimeout))
				r.Use(jsonContentType)
				r.Get("/", s.handleGet)
				r.Post("/join", s.handleJoin)
				r.Post("/play", s.handlePlay)
				r.Post("/discard", s.handleDiscard)
				r.Post("/challenge", s.handleChallenge)
				r.Post("/exit", s.handleExit)
			})
		})
	})
}

// playerReq is the body of create, join and exit.
type playerReq struct {
	PlayerName string `json:"playerName"`
}

type createRes struct {
	GameID string `json:"gameId"`
}

type okRes struct {
	OK bool `json:"ok"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req playerReq
	if !decode(w, r, &req) {
		return
	}
	id, err := s.sessions.Create(r.Context(), req.PlayerName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createRes{GameID: id})
}

// handleGet returns the state; clients polling with If-None-Match get 304 until
// the next commit.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	etag := strconv.Quote(strconv.FormatInt(st.Version, 10))
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req playerReq
	if !decode(w, r, &req) {
		return
	}
	if _, err := s.sessions.Join(r.Context(), chi.URLParam(r, "id"), req.PlayerName); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okRes{OK: true})
}

type playReq struct {
	PlayerName string `json:"playerName"`
	Word       string `json:"word"`
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playReq
	if !decode(w, r, &req) {
		return
	}
	st, err := s.sessions.Play(r.Context(), chi.URLParam(r, "id"), req.PlayerName, req.Word)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type discardReq struct {
	PlayerName string `json:"playerName"`
	Tile       string `json:"tile"`
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	var req discardReq
	if !decode(w, r, &req) {
		return
	}
	st, err := s.sessions.Discard(r.Context(), chi.URLParam(r, "id"), req.PlayerName, req.Tile)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type challengeReq struct {
	ChallengerName string `json:"challengerName"`
	Word           string `json:"word"`
}

type challengeRes struct {
	Result game.ChallengeResult `json:"result"`
	State  *game.State          `json:"state"`
}

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeReq
	if !decode(w, r, &req) {
		return
	}
	res, st, err := s.sessions.Challenge(r.Context(), chi.URLParam(r, "id"), req.ChallengerName, req.Word)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, challengeRes{Result: res, State: st})
}

type exitRes struct {
	OK      bool `json:"ok"`
	Deleted bool `json:"deleted"`
}

func (s *Server) handleExit(w http.ResponseWriter, r *http.Request) {
	var req playerReq
	if !decode(w, r, &req) {
		return
	}
	deleted, _, err := s.sessions.Exit(r.Context(), chi.URLParam(r, "id"), req.PlayerName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exitRes{OK: true, Deleted: deleted})
}
