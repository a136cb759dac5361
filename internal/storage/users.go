package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUserNotFound  = errors.New("storage: user not found")
	ErrUsernameTaken = errors.New("storage: username taken")
)

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	GamesPlayed  int       `json:"gamesPlayed"`
	Wins         int       `json:"wins"`
	Streak       int       `json:"streak"`
}

// CreateUser inserts an account. Usernames are unique ignoring case.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	username = strings.TrimSpace(username)

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE lower(username)=lower(?)`, username).Scan(&exists)
	switch {
	case err == nil:
		return nil, ErrUsernameTaken
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("storage: lookup user: %w", err)
	}

	u := &User{
		ID:           GenID(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("storage: insert user: %w", err)
	}
	return u, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at, games_played, wins, streak
	                    FROM users WHERE lower(username)=lower(?)`, strings.TrimSpace(username))
	return scanUser(row)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at, games_played, wins, streak
	                    FROM users WHERE id=?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created, &u.GamesPlayed, &u.Wins, &u.Streak); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("storage: scan user: %w", err)
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}

// bumpStats counts a finished game. A win extends the streak, a loss resets it.
func bumpStats(ctx context.Context, tx *sql.Tx, accountID string, won bool) error {
	q := `UPDATE users SET games_played = games_played + 1, streak = 0 WHERE id=?`
	if won {
		q = `UPDATE users SET games_played = games_played + 1, wins = wins + 1, streak = streak + 1 WHERE id=?`
	}
	_, err := tx.ExecContext(ctx, q, accountID)
	return err
}

// GenID returns a random 128-bit hex identifier.
func GenID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
