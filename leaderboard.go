package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/robalobadob/rgb-alchemy/internal/daily"
	"github.com/robalobadob/rgb-alchemy/internal/render"
	"github.com/robalobadob/rgb-alchemy/internal/storage"
)

var (
	flagDate  string
	flagLimit int
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the daily challenge leaderboard",
	Long: `Display the best daily results for a date: fewest moves first, then
closest match, then fastest.

Examples:
  alchemy leaderboard
  alchemy leaderboard --date 2025-06-01 --limit 5`,
	Args: cobra.NoArgs,
	RunE: runLeaderboard,
}

func init() {
	leaderboardCmd.Flags().StringVar(&flagDate, "date", "", "Date as YYYY-MM-DD (default: today, UTC)")
	leaderboardCmd.Flags().IntVar(&flagLimit, "limit", 10, "Number of rows to show")
}

func runLeaderboard(cmd *cobra.Command, _ []string) error {
	date := flagDate
	if date == "" {
		date = daily.DateKey(time.Now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q: want YYYY-MM-DD", date)
	}

	db, err := storage.Open(env.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := daily.NewStore(db.DB()).Leaderboard(cmd.Context(), date, flagLimit)
	if err != nil {
		return fmt.Errorf("read leaderboard: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Daily Leaderboard - %s\n\n", date)
	if len(rows) == 0 {
		fmt.Fprintln(out, "No results recorded yet.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Play 'alchemy play --daily' to set the first one!")
		return nil
	}

	fmt.Fprintf(out, "  %-4s  %-20s  %-5s  %-9s  %s\n", "Rank", "Player", "Moves", "Delta", "Time")
	fmt.Fprintf(out, "  %-4s  %-20s  %-5s  %-9s  %s\n", "----", "------", "-----", "-----", "----")
	for i, r := range rows {
		elapsed := (time.Duration(r.ElapsedMs) * time.Millisecond).Round(time.Second)
		fmt.Fprintf(out, "  %-4d  %-20s  %-5d  %-9s  %s\n", i+1, r.UserID, r.Moves, render.Delta(r.BestDelta), elapsed)
	}
	return nil
}
