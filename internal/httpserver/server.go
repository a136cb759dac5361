// internal/httpserver/server.go
//
// HTTP server wiring for the RGB Alchemy backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/metrics".
//   - Game endpoints (optional auth): /init, /init/user/{userId}, /game/{userId}/*.
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine.
//   - Periodic sweep of idle and finished live sessions.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The websocket feed is mounted outside the timeout group; chi's Timeout
//     middleware would cancel long-lived connections.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/rgb-alchemy/internal/config"
	"github.com/robalobadob/rgb-alchemy/internal/daily"
	"github.com/robalobadob/rgb-alchemy/internal/metrics"
	"github.com/robalobadob/rgb-alchemy/internal/puzzle"
	"github.com/robalobadob/rgb-alchemy/internal/storage"
	"github.com/robalobadob/rgb-alchemy/internal/store"
	"github.com/robalobadob/rgb-alchemy/internal/targets"
)

// Server bundles router, live session store, database and puzzle generator.
type Server struct {
	r     *chi.Mux
	store store.Store
	db    *storage.Store
	daily *daily.Store
	gen   *puzzle.Generator
	env   config.Env
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, db *storage.Store, gen *puzzle.Generator, env config.Env) *Server {
	s := &Server{
		r:     chi.NewRouter(),
		store: st,
		db:    db,
		daily: daily.NewStore(db.DB()),
		gen:   gen,
		env:   env,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(jsonContentType) // default JSON responses
	s.r.Use(s.cors)          // credentials-friendly CORS
	s.r.Use(s.withOptionalAuth)

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "rgb-alchemy",
			"endpoints": []string{"/health", "/metrics", "GET /init", "GET /game/{userId}", "/daily/*", "/auth/*"},
		})
	})
	s.r.Get("/health", s.handleHealth)
	s.r.Handle("/metrics", metrics.Handler())

	// Live feed, no handler timeout.
	s.r.Get("/game/{userId}/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time

		// Game endpoints, guests can play
		r.Get("/init", s.handleInit)
		r.Get("/init/user/{userId}", s.handleInitUser)
		r.Get("/game/{userId}", s.handleGet)
		r.Post("/game/{userId}/place", s.handlePlace)
		r.Post("/game/{userId}/select", s.handleSelect)
		r.Post("/game/{userId}/drop", s.handleDrop)

		s.mountDaily(r)
		s.mountAuthRoutes(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Handler exposes the router (used by http.Server and tests).
func (s *Server) Handler() http.Handler { return s.r }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		log.Warn().Err(err).Msg("health: database ping failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"sessions": s.store.Len(),
		"targets":  targets.Stats(),
	})
}

// SweepSessions drops idle and finished live sessions and refreshes the
// active-sessions gauge.
func (s *Server) SweepSessions() int {
	n := s.store.Prune(
		time.Duration(s.env.SessionIdleMinutes)*time.Minute,
		time.Duration(s.env.SessionEndedMinutes)*time.Minute,
	)
	metrics.SetActiveSessions(s.store.Len())
	if n > 0 {
		log.Info().Int("removed", n).Int("active", s.store.Len()).Msg("swept sessions")
	}
	return n
}

// RunSweeper calls SweepSessions every interval until ctx is done.
func (s *Server) RunSweeper(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.SweepSessions()
		}
	}
}

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
	origin := s.env.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
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

// ------------------------------- small util --------------------------------

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
