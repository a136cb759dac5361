// alchemy is the RGB Alchemy color-mixing puzzle: an HTTP/websocket game
// server for the browser client and a terminal client for local play.
//
// Usage:
//
//	alchemy serve            - Start the game server (default :9876)
//	alchemy play             - Play a puzzle in the terminal
//	alchemy play --daily     - Play today's daily puzzle
//	alchemy leaderboard      - Show the daily leaderboard
//
// Global flags:
//
//	--db <path>       - Database path (default: DB_PATH or ./data/alchemy.db)
//	--tuning <path>   - Generator tuning YAML (default: TUNING_FILE, ./configs/tuning.yaml, embedded)
//	--targets <path>  - Target color list (default: TARGETS_FILE or embedded)
//	--seed <value>    - RNG seed for reproducible puzzles (0 = random)
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/rgb-alchemy/internal/config"
	"github.com/robalobadob/rgb-alchemy/internal/puzzle"
	"github.com/robalobadob/rgb-alchemy/internal/targets"
)

var (
	// Global flags
	flagDBPath  string
	flagTuning  string
	flagTargets string
	flagSeed    uint64

	// env is loaded once before any subcommand runs.
	env config.Env
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "alchemy",
	Short: "RGB Alchemy - mix light sources to match a target color",
	Long: `RGB Alchemy is a color-mixing puzzle. Colored light sources placed on
the edges of a board shine across it; tiles take the mix of the light that
reaches them. Match the target color within the move budget.

Available commands:
  serve        - Start the HTTP/websocket game server
  play         - Play in the terminal
  leaderboard  - Show the daily challenge leaderboard

Examples:
  alchemy serve --port 9876
  alchemy play --seed 42
  alchemy play --daily --name alice
  alchemy leaderboard --date 2025-06-01`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		env = config.LoadEnv()
		if flagDBPath != "" {
			env.DBPath = flagDBPath
		}
		if flagTuning != "" {
			env.TuningFile = flagTuning
		}
		if flagTargets != "" {
			env.TargetsFile = flagTargets
		}
		if lvl, err := zerolog.ParseLevel(env.LogLevel); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to the SQLite database")
	rootCmd.PersistentFlags().StringVar(&flagTuning, "tuning", "", "Path to generator tuning YAML")
	rootCmd.PersistentFlags().StringVar(&flagTargets, "targets", "", "Path to target color list")
	rootCmd.PersistentFlags().Uint64Var(&flagSeed, "seed", 0, "RNG seed (0 = random)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(leaderboardCmd)
}

// newGenerator loads the target catalogue and tuning and builds a generator.
func newGenerator() (*puzzle.Generator, error) {
	if err := targets.Init(env.TargetsFile); err != nil {
		return nil, fmt.Errorf("load targets: %w", err)
	}
	tun, err := config.LoadTuning(env.TuningFile)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("targets", targets.Stats()).
		Int("minWidth", tun.Board.MinWidth).Int("maxWidth", tun.Board.MaxWidth).
		Int("minMoves", tun.Moves.Min).Int("maxMoves", tun.Moves.Max).
		Msg("puzzle generator ready")
	return puzzle.NewGenerator(tun, targets.All(), flagSeed), nil
}
