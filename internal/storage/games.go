package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Game status values stored in games.status.
const (
	StatusPlaying = "playing"
	StatusWon     = "won"
	StatusLost    = "lost"
)

// GameRow is one game's history record.
type GameRow struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"playerId"`
	AccountID  string    `json:"-"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	MaxMoves   int       `json:"maxMoves"`
	Target     string    `json:"target"` // #rrggbb
	Daily      string    `json:"daily,omitempty"`
	Status     string    `json:"status"`
	MovesUsed  int       `json:"movesUsed"`
	BestDelta  float64   `json:"bestDelta"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
}

// InsertGame records a newly started game.
func (s *Store) InsertGame(ctx context.Context, g GameRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (id, player_id, account_id, width, height, max_moves, target, daily, status, started_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		g.ID, g.PlayerID, nullable(g.AccountID), g.Width, g.Height, g.MaxMoves, g.Target,
		nullable(g.Daily), StatusPlaying, g.StartedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("storage: insert game: %w", err)
	}
	return nil
}

// FinishGame stores the outcome of a game. With a non-empty accountID the
// account's stats are bumped in the same transaction.
func (s *Store) FinishGame(ctx context.Context, id, accountID string, won bool, movesUsed int, bestDelta float64) error {
	status := StatusLost
	if won {
		status = StatusWon
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE games SET status=?, moves_used=?, best_delta=?, finished_at=? WHERE id=?`,
		status, movesUsed, bestDelta, time.Now().UTC().Format(time.RFC3339), id,
	); err != nil {
		return fmt.Errorf("storage: finish game: %w", err)
	}
	if accountID != "" {
		if err := bumpStats(ctx, tx, accountID, won); err != nil {
			return fmt.Errorf("storage: bump stats: %w", err)
		}
	}
	return tx.Commit()
}

// GamesByAccount returns an account's most recent games, newest first.
func (s *Store) GamesByAccount(ctx context.Context, accountID string, limit int) ([]GameRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player_id, width, height, max_moves, target, COALESCE(daily,''), status,
		       moves_used, COALESCE(best_delta, 1), started_at, COALESCE(finished_at,'')
		FROM games WHERE account_id=? ORDER BY started_at DESC LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: query games: %w", err)
	}
	defer rows.Close()

	out := []GameRow{}
	for rows.Next() {
		var g GameRow
		var started, finished string
		if err := rows.Scan(&g.ID, &g.PlayerID, &g.Width, &g.Height, &g.MaxMoves, &g.Target, &g.Daily,
			&g.Status, &g.MovesUsed, &g.BestDelta, &started, &finished); err != nil {
			return nil, fmt.Errorf("storage: scan game: %w", err)
		}
		g.AccountID = accountID
		g.StartedAt = parseTime(started)
		g.FinishedAt = parseTime(finished)
		out = append(out, g)
	}
	return out, rows.Err()
}

// ClaimPlayerGames attaches a player's anonymous games to an account.
func (s *Store) ClaimPlayerGames(ctx context.Context, playerID, accountID string) (int64, error) {
	if playerID == "" || accountID == "" {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE games SET account_id=? WHERE player_id=? AND account_id IS NULL`, accountID, playerID)
	if err != nil {
		return 0, fmt.Errorf("storage: claim games: %w", err)
	}
	return res.RowsAffected()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// parseTime parses RFC3339 timestamps; on error returns zero time.
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
