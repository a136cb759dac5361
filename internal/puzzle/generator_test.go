package puzzle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/rgb-alchemy/internal/color"
	"github.com/robalobadob/rgb-alchemy/internal/config"
	"github.com/robalobadob/rgb-alchemy/internal/game"
	"github.com/robalobadob/rgb-alchemy/internal/targets"
)

var testTargets = []targets.Target{
	{Name: "almost black", Color: color.RGB{R: 5, G: 5, B: 5}},
	{Name: "teal", Color: color.RGB{R: 0, G: 128, B: 128}},
	{Name: "orange", Color: color.RGB{R: 255, G: 140, B: 0}},
}

func TestNewStaysInRange(t *testing.T) {
	tun := config.DefaultTuning()
	g := NewGenerator(tun, testTargets, 42)

	for i := 0; i < 200; i++ {
		d := g.New("u")
		require.NoError(t, d.Validate())
		assert.GreaterOrEqual(t, d.Width, tun.Board.MinWidth)
		assert.LessOrEqual(t, d.Width, tun.Board.MaxWidth)
		assert.GreaterOrEqual(t, d.Height, tun.Board.MinHeight)
		assert.LessOrEqual(t, d.Height, tun.Board.MaxHeight)
		assert.GreaterOrEqual(t, d.MaxMoves, tun.Moves.Min)
		assert.LessOrEqual(t, d.MaxMoves, tun.Moves.Max)
		assert.NotEqual(t, color.RGB{R: 5, G: 5, B: 5}, d.Target, "near-black targets are skipped")
	}
}

func TestFixedRanges(t *testing.T) {
	tun := config.Tuning{
		Board: config.BoardTuning{MinWidth: 3, MaxWidth: 3, MinHeight: 7, MaxHeight: 7},
		Moves: config.MovesTuning{Min: 5, Max: 5},
	}
	d := NewGenerator(tun, testTargets[1:2], 1).New("abc")
	assert.Equal(t, game.GameData{UserID: "abc", Width: 3, Height: 7, MaxMoves: 5, Target: testTargets[1].Color}, d)
}

func TestFromSeedIsDeterministic(t *testing.T) {
	g1 := NewGenerator(config.DefaultTuning(), testTargets, 1)
	g2 := NewGenerator(config.DefaultTuning(), testTargets, 999)

	// advancing one generator must not change seeded output
	g1.New("x")

	a := g1.FromSeed("alice", 77)
	b := g2.FromSeed("bob", 77)
	assert.Equal(t, a.Width, b.Width)
	assert.Equal(t, a.Height, b.Height)
	assert.Equal(t, a.MaxMoves, b.MaxMoves)
	assert.Equal(t, a.Target, b.Target)
	assert.Equal(t, "alice", a.UserID)
}

func TestEligibleKeepsListWhenAllFiltered(t *testing.T) {
	list := testTargets[:1]
	assert.Equal(t, list, eligible(list, 0.5))
}
