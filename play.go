package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/rgb-alchemy/internal/daily"
	"github.com/robalobadob/rgb-alchemy/internal/game"
	"github.com/robalobadob/rgb-alchemy/internal/render"
	"github.com/robalobadob/rgb-alchemy/internal/storage"
)

var (
	flagDaily bool
	flagName  string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a puzzle in the terminal",
	Long: `Play RGB Alchemy in the terminal.

The first three moves place the red, green and blue sources on empty edge
slots. After that, pick a tile and drop its color on any source.

Commands:
  place <side> <index>   place the next primary (side: top|bottom|left|right)
  drag <row> <col>       pick up a tile's color
  drop <side> <index>    drop the picked color on a source
  show                   redraw the board
  help                   show this list
  quit                   leave the game

Examples:
  alchemy play
  alchemy play --seed 42
  alchemy play --daily --name alice   # result goes on the daily leaderboard`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().BoolVar(&flagDaily, "daily", false, "Play today's daily puzzle")
	playCmd.Flags().StringVar(&flagName, "name", "", "Player name for the daily leaderboard (default: $USER)")
}

const playHelp = `commands: place <side> <index> | drag <row> <col> | drop <side> <index> | show | help | quit`

var errQuit = errors.New("quit")

func runPlay(cmd *cobra.Command, _ []string) error {
	// keep the board readable unless a level was asked for
	if env.LogLevel == "info" {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	gen, err := newGenerator()
	if err != nil {
		return err
	}

	name := flagName
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		name = "player"
	}

	out := cmd.OutOrStdout()
	now := time.Now().UTC()
	data := gen.New(name)

	var db *storage.Store
	if flagDaily {
		db, err = storage.Open(env.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		date := daily.DateKey(now)
		played, err := daily.NewStore(db.DB()).AlreadyPlayed(cmd.Context(), name, date)
		if err != nil {
			return err
		}
		if played {
			fmt.Fprintf(out, "%s already solved the daily puzzle for %s.\n", name, date)
			return nil
		}
		data = gen.FromSeed(name, daily.Seed(now, env.DailySalt))
	}

	sess, err := game.New(data)
	if err != nil {
		return err
	}

	final := playLoop(cmd.InOrStdin(), out, sess, render.New(out))

	if flagDaily && final.Phase.Kind == game.PhaseEnded && final.Phase.Success {
		res := daily.Result{
			UserID:    name,
			Date:      daily.DateKey(now),
			Moves:     final.MaxMoves - final.MovesRemaining,
			BestDelta: final.Closest.Delta,
			ElapsedMs: int(time.Since(now).Milliseconds()),
		}
		if err := daily.NewStore(db.DB()).InsertResult(cmd.Context(), res); err != nil {
			log.Warn().Err(err).Msg("record daily result")
		} else {
			fmt.Fprintf(out, "Result recorded for %s on %s.\n", name, res.Date)
		}
	}
	return nil
}

// playLoop reads commands from in until the game ends, the input runs out
// or the player quits. It returns the last snapshot.
func playLoop(in io.Reader, out io.Writer, sess *game.Session, view *render.Renderer) game.Snapshot {
	fmt.Fprintln(out, view.View(sess.Snapshot()))
	fmt.Fprintln(out, playHelp)
	fmt.Fprint(out, "> ")

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) > 0 {
			redraw, err := execute(sess, fields)
			switch {
			case errors.Is(err, errQuit):
				return sess.Snapshot()
			case err != nil:
				fmt.Fprintf(out, "rejected: %v\n", err)
			case redraw:
				fmt.Fprintln(out, view.View(sess.Snapshot()))
			default:
				fmt.Fprintln(out, playHelp)
			}
		}
		if sess.Ended() {
			return sess.Snapshot()
		}
		fmt.Fprint(out, "> ")
	}
	return sess.Snapshot()
}

// execute applies one command. redraw reports whether the board should be
// shown again.
func execute(sess *game.Session, fields []string) (redraw bool, err error) {
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "quit", "q", "exit":
		return false, errQuit
	case "help", "?":
		return false, nil
	case "show":
		return true, nil
	case "place", "p":
		side, idx, err := sideArgs(args)
		if err != nil {
			return false, err
		}
		return true, sess.PlaceSource(side, idx)
	case "drag", "select", "s":
		if len(args) != 2 {
			return false, errors.New("usage: drag <row> <col>")
		}
		row, err1 := strconv.Atoi(args[0])
		col, err2 := strconv.Atoi(args[1])
		if err1 != nil || err2 != nil {
			return false, errors.New("row and col must be numbers")
		}
		return true, sess.SelectDragTile(row, col)
	case "drop", "d":
		side, idx, err := sideArgs(args)
		if err != nil {
			return false, err
		}
		return true, sess.DropOnSource(side, idx)
	}
	return false, fmt.Errorf("unknown command %q", cmd)
}

func sideArgs(args []string) (game.Side, int, error) {
	if len(args) != 2 {
		return 0, 0, errors.New("usage: <side> <index>")
	}
	side, err := game.ParseSide(args[0])
	if err != nil {
		return 0, 0, err
	}
	idx, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, errors.New("index must be a number")
	}
	return side, idx, nil
}
