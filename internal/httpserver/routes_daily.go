// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes two endpoints under /daily:
//   - POST /daily/new         → start (or resume) today's puzzle
//   - GET  /daily/leaderboard → top results for today (or ?date=YYYY-MM-DD)
//
// Every player gets the same board on a given date: the puzzle is generated
// from an HMAC of the date and DAILY_SALT. Moves go through the regular
// /game/{userId}/* endpoints. A win is recorded once per player per date.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/rgb-alchemy/internal/daily"
	"github.com/robalobadob/rgb-alchemy/internal/game"
)

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", s.handleDailyNew)
		r.Get("/leaderboard", s.handleLeaderboard)
	})
}

// dailyIdentity is who a daily result belongs to: the account when logged
// in, otherwise the player's userId.
func dailyIdentity(accountID, userID string) string {
	if accountID != "" {
		return accountID
	}
	return userID
}

// dailyNewReq optionally carries the caller's existing userId.
type dailyNewReq struct {
	UserID string `json:"userId"`
}

// dailyNewRes is returned by /daily/new. Game is omitted when already played.
type dailyNewRes struct {
	Date   string         `json:"date"`
	Played bool           `json:"played"`
	Game   *game.GameData `json:"game,omitempty"`
}

// handleDailyNew creates or reuses today's session for the caller.
//   - If the caller already has a result for today → Played=true.
//   - If the caller's active session is today's unfinished daily → reuse it.
//   - Otherwise start a new seeded session.
func (s *Server) handleDailyNew(w http.ResponseWriter, r *http.Request) {
	var req dailyNewReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	uid, minted := req.UserID, false
	if uid == "" {
		uid, minted = uuid.NewString(), true
	}

	now := time.Now().UTC()
	date := daily.DateKey(now)

	accountID := ""
	if me := currentUser(r); me != nil {
		accountID = me.ID
	}
	played, err := s.daily.AlreadyPlayed(r.Context(), dailyIdentity(accountID, uid), date)
	if err != nil {
		log.Error().Err(err).Msg("daily: already played lookup")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if played {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Played: true})
		return
	}

	if meta, snap, err := s.store.Get(r.Context(), uid); err == nil && meta.Daily == date && snap.Phase.Kind != game.PhaseEnded {
		d := game.GameData{UserID: uid, Width: snap.Width, Height: snap.Height, MaxMoves: snap.MaxMoves, Target: snap.Target}
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Game: &d})
		return
	}

	d, err := s.startGame(w, r, s.gen.FromSeed(uid, daily.Seed(now, s.env.DailySalt)), date, minted)
	if errors.Is(err, game.ErrInvalidGame) {
		writeError(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "start_failed")
		return
	}
	writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Game: &d})
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(time.Now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "bad_date")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit > 100 {
		limit = 100
	}
	rows, err := s.daily.Leaderboard(r.Context(), date, limit)
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("daily: leaderboard")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}
