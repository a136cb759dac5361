package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/rgb-alchemy/internal/httpserver"
	"github.com/robalobadob/rgb-alchemy/internal/storage"
	"github.com/robalobadob/rgb-alchemy/internal/store"
)

var flagPort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the game server",
	Long: `Start the HTTP/websocket server the browser client talks to.

Configuration comes from the environment (and .env): PORT, LOG_LEVEL, DB_PATH,
CLIENT_ORIGIN, JWT_SECRET, JWT_EXPIRES_DAYS, COOKIE_NAME, DAILY_SALT,
TARGETS_FILE, TUNING_FILE, SESSION_IDLE_MINUTES, SESSION_ENDED_MINUTES,
MAX_SESSIONS. Flags override the environment.

Examples:
  alchemy serve                  # Listen on :9876
  alchemy serve --port 8080      # Listen on port 8080
  alchemy serve --db ./game.db   # Use specific database`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagPort, "port", "", "Port to listen on (default: PORT or 9876)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if flagPort != "" {
		env.Port = flagPort
	}

	gen, err := newGenerator()
	if err != nil {
		return err
	}

	db, err := storage.Open(env.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := httpserver.New(store.NewMemoryStore(store.WithMaxSessions(env.MaxSessions)), db, gen, env)
	hs := &http.Server{
		Addr:              ":" + env.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go srv.RunSweeper(ctx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", env.Port).Str("db", env.DBPath).Msg("starting rgb-alchemy server")
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return hs.Shutdown(shutdownCtx)
}
