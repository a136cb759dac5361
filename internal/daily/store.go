package daily

import (
	"context"
	"database/sql"
)

// Result is one player's finished daily game.
type Result struct {
	UserID    string  `json:"userId"`
	Date      string  `json:"date"`
	Moves     int     `json:"moves"`
	BestDelta float64 `json:"bestDelta"`
	ElapsedMs int     `json:"elapsedMs"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) AlreadyPlayed(ctx context.Context, userID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM daily_results WHERE user_id=? AND date=?",
		userID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records r; a second result for the same user and date is ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, date, moves, best_delta, elapsed_ms)
		 VALUES(?,?,?,?,?)`, r.UserID, r.Date, r.Moves, r.BestDelta, r.ElapsedMs,
	)
	return err
}

type LBRow struct {
	UserID    string  `json:"userId"`
	Moves     int     `json:"moves"`
	BestDelta float64 `json:"bestDelta"`
	ElapsedMs int     `json:"elapsedMs"`
}

// Leaderboard ranks a date's results by fewest moves, then closest match,
// then fastest, then earliest.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, moves, best_delta, elapsed_ms
		 FROM daily_results
		 WHERE date=?
		 ORDER BY moves ASC, best_delta ASC, elapsed_ms ASC, created_at ASC
		 LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LBRow{}
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Moves, &r.BestDelta, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
