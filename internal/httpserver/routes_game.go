// internal/httpserver/routes_game.go
//
// Game endpoints used by the browser client.
//   - GET  /init                  → new puzzle for a fresh userId
//   - GET  /init/user/{userId}    → new puzzle for an existing userId ("play again")
//   - GET  /game/{userId}         → current snapshot (polling)
//   - POST /game/{userId}/place   → place the next primary source
//   - POST /game/{userId}/select  → pick the tile to drag
//   - POST /game/{userId}/drop    → drop the dragged tile's color on a source
//
// Rejected actions answer 200 with accepted=false and the unchanged snapshot;
// they never consume a move. When an action ends the game, the result is
// persisted best-effort (games row, account stats, daily result).

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/rgb-alchemy/internal/daily"
	"github.com/robalobadob/rgb-alchemy/internal/game"
	"github.com/robalobadob/rgb-alchemy/internal/metrics"
	"github.com/robalobadob/rgb-alchemy/internal/storage"
	"github.com/robalobadob/rgb-alchemy/internal/store"
)

// Session modes, used as the metrics label.
const (
	modeRandom = "random"
	modeDaily  = "daily"
)

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	uid := uuid.NewString()
	d, err := s.startGame(w, r, s.gen.New(uid), "", true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "start_failed")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleInitUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "userId")
	d, err := s.startGame(w, r, s.gen.New(uid), "", false)
	if errors.Is(err, game.ErrInvalidGame) {
		writeError(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "start_failed")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// startGame builds a session from d, installs it as the user's active game
// and records a games row. dailyDate is empty for random puzzles.
//
// Guests get a guest cookie naming the userId so the game can be claimed on
// signup or login, but only when the server minted the userId for this
// request or the caller's guest cookie already names it.
func (s *Server) startGame(w http.ResponseWriter, r *http.Request, d game.GameData, dailyDate string, minted bool) (game.GameData, error) {
	sess, err := game.New(d)
	if err != nil {
		return game.GameData{}, err
	}

	rec := &store.Record{
		Meta: store.Meta{
			GameID:    storage.GenID(),
			Daily:     dailyDate,
			StartedAt: time.Now().UTC(),
		},
		Session: sess,
	}
	if me := currentUser(r); me != nil {
		rec.AccountID = me.ID
	} else if minted || s.guestID(r) == d.UserID {
		s.setGuestCookie(w, d.UserID)
	}
	if err := s.store.Save(r.Context(), rec); err != nil {
		log.Error().Err(err).Str("userId", d.UserID).Msg("save session")
		return game.GameData{}, err
	}

	// Persist owner row; failures only cost history.
	if err := s.db.InsertGame(r.Context(), storage.GameRow{
		ID:        rec.GameID,
		PlayerID:  d.UserID,
		AccountID: rec.AccountID,
		Width:     d.Width,
		Height:    d.Height,
		MaxMoves:  d.MaxMoves,
		Target:    d.Target.Hex(),
		Daily:     dailyDate,
		StartedAt: rec.StartedAt,
	}); err != nil {
		log.Warn().Err(err).Str("gameId", rec.GameID).Msg("insert game row")
	}

	mode := modeRandom
	if dailyDate != "" {
		mode = modeDaily
	}
	metrics.SessionStarted(mode)
	metrics.SetActiveSessions(s.store.Len())
	log.Info().Str("userId", d.UserID).Str("gameId", rec.GameID).Str("mode", mode).
		Int("width", d.Width).Int("height", d.Height).Int("maxMoves", d.MaxMoves).
		Str("target", d.Target.Hex()).Msg("game started")

	return sess.Data(), nil
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	_, snap, err := s.store.Get(r.Context(), chi.URLParam(r, "userId"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// sourceReq addresses one edge slot. Side is a name ("top") or index (0..3).
type sourceReq struct {
	Side  game.Side `json:"side"`
	Index int       `json:"index"`
}

type tileReq struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// moveRes is returned by every action endpoint.
type moveRes struct {
	Accepted bool          `json:"accepted"`
	Reason   string        `json:"reason,omitempty"`
	Snapshot game.Snapshot `json:"snapshot"`
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req sourceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	s.applyMove(w, r, "place", func(g *game.Session) error {
		return g.PlaceSource(req.Side, req.Index)
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req tileReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	s.applyMove(w, r, "select", func(g *game.Session) error {
		return g.SelectDragTile(req.Row, req.Col)
	})
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var req sourceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	s.applyMove(w, r, "drop", func(g *game.Session) error {
		return g.DropOnSource(req.Side, req.Index)
	})
}

// applyMove runs act under the session lock and reports the outcome.
func (s *Server) applyMove(w http.ResponseWriter, r *http.Request, action string, act func(*game.Session) error) {
	uid := chi.URLParam(r, "userId")

	var (
		finished bool
		meta     store.Meta
	)
	snap, err := s.store.Update(r.Context(), uid, func(rec *store.Record) error {
		wasEnded := rec.Session.Ended()
		if err := act(rec.Session); err != nil {
			return err
		}
		if !wasEnded && rec.Session.Ended() {
			finished = true
			meta = rec.Meta
		}
		return nil
	})

	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
		return
	case err != nil && !isRejection(err):
		log.Error().Err(err).Str("userId", uid).Str("action", action).Msg("apply move")
		writeError(w, http.StatusServiceUnavailable, "unavailable")
		return
	case err != nil:
		metrics.Move(action, false)
		log.Debug().Str("userId", uid).Str("action", action).Str("reason", err.Error()).Msg("move rejected")
		writeJSON(w, http.StatusOK, moveRes{Accepted: false, Reason: err.Error(), Snapshot: snap})
		return
	}

	metrics.Move(action, true)
	if finished {
		s.finishGame(r.Context(), meta, snap)
	}
	writeJSON(w, http.StatusOK, moveRes{Accepted: true, Snapshot: snap})
}

// isRejection reports whether err is an engine refusal rather than a failure.
func isRejection(err error) bool {
	for _, target := range []error{
		game.ErrGameOver, game.ErrNoMovesLeft, game.ErrWrongPhase,
		game.ErrSlotOccupied, game.ErrNoDragTile, game.ErrOutOfRange,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// finishGame persists a game that just ended. Failures are logged, never
// surfaced: the move itself already succeeded.
func (s *Server) finishGame(ctx context.Context, meta store.Meta, snap game.Snapshot) {
	won := snap.Phase.Success
	used := snap.MaxMoves - snap.MovesRemaining
	delta := snap.Closest.Delta

	metrics.GameFinished(won, delta)
	log.Info().Str("userId", snap.UserID).Str("gameId", meta.GameID).Bool("won", won).
		Int("movesUsed", used).Float64("delta", delta).Msg("game finished")

	if err := s.db.FinishGame(ctx, meta.GameID, meta.AccountID, won, used, delta); err != nil {
		log.Warn().Err(err).Str("gameId", meta.GameID).Msg("finish game")
	}

	if meta.Daily != "" && won {
		res := daily.Result{
			UserID:    dailyIdentity(meta.AccountID, snap.UserID),
			Date:      meta.Daily,
			Moves:     used,
			BestDelta: delta,
			ElapsedMs: int(time.Since(meta.StartedAt).Milliseconds()),
		}
		if err := s.daily.InsertResult(ctx, res); err != nil {
			log.Warn().Err(err).Str("userId", res.UserID).Msg("insert daily result")
		}
	}
}
