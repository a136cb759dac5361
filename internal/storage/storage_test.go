package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesDirectoryAndMigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "alchemy.db")

	s, err := Open(path)
	require.NoError(t, err)

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n))
	assert.Equal(t, 2, n)
	require.NoError(t, s.Close())

	// reopening must not re-apply anything
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestCreateAndFindUser(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "  Mixer ", "hash")
	require.NoError(t, err)
	assert.Equal(t, "Mixer", u.Username)
	assert.Len(t, u.ID, 32)

	_, err = s.CreateUser(ctx, "mixer", "other")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	byName, err := s.FindUserByUsername(ctx, "MIXER")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
	assert.Equal(t, "hash", byName.PasswordHash)

	byID, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mixer", byID.Username)

	_, err = s.FindUserByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFinishGameBumpsStats(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "player", "hash")
	require.NoError(t, err)

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"g1", "g2", "g3"} {
		require.NoError(t, s.InsertGame(ctx, GameRow{
			ID: id, PlayerID: "p1", AccountID: u.ID, Width: 10, Height: 8, MaxMoves: 12,
			Target: "#008080", StartedAt: start.Add(time.Duration(i) * time.Minute),
		}))
	}

	require.NoError(t, s.FinishGame(ctx, "g1", u.ID, true, 5, 0.05))
	require.NoError(t, s.FinishGame(ctx, "g2", u.ID, true, 7, 0.08))

	got, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.GamesPlayed)
	assert.Equal(t, 2, got.Wins)
	assert.Equal(t, 2, got.Streak)

	require.NoError(t, s.FinishGame(ctx, "g3", u.ID, false, 12, 0.3))
	got, err = s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.GamesPlayed)
	assert.Equal(t, 2, got.Wins)
	assert.Equal(t, 0, got.Streak)

	games, err := s.GamesByAccount(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, games, 3)
	assert.Equal(t, "g3", games[0].ID)
	assert.Equal(t, StatusLost, games[0].Status)
	assert.Equal(t, StatusWon, games[2].Status)
	assert.Equal(t, 5, games[2].MovesUsed)
	assert.InDelta(t, 0.05, games[2].BestDelta, 1e-9)
	assert.False(t, games[2].FinishedAt.IsZero())
}

func TestClaimPlayerGames(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "claimer", "hash")
	require.NoError(t, err)

	for _, id := range []string{"a", "b"} {
		require.NoError(t, s.InsertGame(ctx, GameRow{
			ID: id, PlayerID: "anon-1", Width: 4, Height: 4, MaxMoves: 8, Target: "#ff8c00", StartedAt: time.Now(),
		}))
	}
	require.NoError(t, s.InsertGame(ctx, GameRow{
		ID: "c", PlayerID: "anon-2", Width: 4, Height: 4, MaxMoves: 8, Target: "#ff8c00", StartedAt: time.Now(),
	}))

	n, err := s.ClaimPlayerGames(ctx, "anon-1", u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	games, err := s.GamesByAccount(ctx, u.ID, 10)
	require.NoError(t, err)
	assert.Len(t, games, 2)
	for _, g := range games {
		assert.Equal(t, StatusPlaying, g.Status)
		assert.True(t, g.FinishedAt.IsZero())
	}
}
