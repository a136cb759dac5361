// Package metrics exposes Prometheus instruments for game sessions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// sessionsStarted counts new sessions by mode (random, daily).
	sessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alchemy_sessions_started_total",
		Help: "Game sessions started by mode",
	}, []string{"mode"})

	// movesTotal counts player actions by action and result.
	movesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alchemy_moves_total",
		Help: "Player actions by action and result",
	}, []string{"action", "result"})

	gamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alchemy_games_finished_total",
		Help: "Finished games by outcome",
	}, []string{"outcome"})

	// finalDelta tracks how close players got at the end of a game.
	finalDelta = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alchemy_final_delta",
		Help:    "Closest-tile distance to target when a game ends",
		Buckets: []float64{0.02, 0.05, 0.1, 0.15, 0.25, 0.4, 0.6, 1},
	})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alchemy_active_sessions",
		Help: "Sessions currently held in memory",
	})
)

// Action results.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
)

func SessionStarted(mode string) { sessionsStarted.WithLabelValues(mode).Inc() }

// Move records one action attempt.
func Move(action string, accepted bool) {
	result := ResultRejected
	if accepted {
		result = ResultAccepted
	}
	movesTotal.WithLabelValues(action, result).Inc()
}

// GameFinished records an ended game and its best distance.
func GameFinished(won bool, delta float64) {
	outcome := "lost"
	if won {
		outcome = "won"
	}
	gamesFinished.WithLabelValues(outcome).Inc()
	finalDelta.Observe(delta)
}

func SetActiveSessions(n int) { activeSessions.Set(float64(n)) }

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
