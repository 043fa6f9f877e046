package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gastos/internal/board"
	"gastos/internal/game"
	applog "gastos/internal/log"
)

// moveRequest names a direction, a key or a swipe displacement. The first
// one present wins.
type moveRequest struct {
	Direction string   `json:"direction"`
	Key       string   `json:"key"`
	DX        *float64 `json:"dx"`
	DY        *float64 `json:"dy"`
}

func (m moveRequest) resolve() (board.Direction, bool) {
	switch {
	case m.Direction != "":
		return board.ParseKey(m.Direction)
	case m.Key != "":
		return board.ParseKey(m.Key)
	case m.DX != nil && m.DY != nil:
		return board.ClassifySwipe(*m.DX, *m.DY)
	}
	return 0, false
}

type sessionBody struct {
	Session game.Session `json:"session"`
}

type moveBody struct {
	Moved   bool          `json:"moved"`
	Session game.Session  `json:"session"`
	Result  *board.Result `json:"result,omitempty"`
}

type bestBody struct {
	Best int `json:"best"`
}

func writeGameError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, game.ErrBusy):
		writeError(w, http.StatusConflict, "busy")
	default:
		writeServerError(w, r, "game_error", err)
	}
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Games.Start(r.Context(), uidFrom(r.Context()))
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionBody{Session: sess})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Games.Get(r.Context(), uidFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionBody{Session: sess})
}

// handleMove ignores input it cannot map to a direction, the way the
// browser game ignores stray keys.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, id := uidFrom(ctx), chi.URLParam(r, "id")

	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_move")
		return
	}

	d, ok := req.resolve()
	if !ok {
		sess, err := s.deps.Games.Get(ctx, uid, id)
		if err != nil {
			writeGameError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, moveBody{Moved: false, Session: sess})
		return
	}

	sess, res, err := s.deps.Games.Move(ctx, uid, id, d)
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	if res.Over {
		applog.FromContext(ctx).InfoContext(ctx, "Game over",
			applog.FieldGameID, id, applog.FieldScore, sess.State.Score)
	}
	writeJSON(w, http.StatusOK, moveBody{Moved: res.Moved, Session: sess, Result: &res})
}

func (s *Server) handleResetGame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Games.Reset(r.Context(), uidFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionBody{Session: sess})
}

func (s *Server) handleEndGame(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Games.End(r.Context(), uidFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeGameError(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleBestScore(w http.ResponseWriter, r *http.Request) {
	best, err := s.deps.Games.Best(r.Context(), uidFrom(r.Context()))
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bestBody{Best: best})
}
