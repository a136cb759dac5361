// internal/httpserver/ws.go
//
// Websocket feed for the browser client.
// Responsibilities:
//   - GET /game/{userId}/ws upgrades when the session exists (404 otherwise).
//   - Sends the current snapshot, then one snapshot per accepted action.
//   - Keeps the connection alive with pings; a missed pong closes it.
//
// Origins are limited to CLIENT_ORIGIN or the server's own host.

package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/rgb-alchemy/internal/store"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 25 * time.Second
)

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == s.env.ClientOrigin || origin == "http://"+r.Host
		},
	}
}

// handleWS streams the session's snapshot after every accepted action.
// The current snapshot is sent right after the upgrade. Client messages are
// ignored; actions go through the POST endpoints.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "userId")
	if _, _, err := s.store.Get(r.Context(), uid); errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	// subscribe before reading the current state so no update is missed
	updates, cancel := s.store.Subscribe(uid)
	defer cancel()

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("userId", uid).Msg("ws upgrade")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(1 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// drain reads so control frames are handled; exit when the peer goes away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if _, snap, err := s.store.Get(r.Context(), uid); err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}

	log.Debug().Str("userId", uid).Msg("ws subscribed")
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(snap); err != nil {
				log.Debug().Err(err).Str("userId", uid).Msg("ws write")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
