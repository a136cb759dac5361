// internal/puzzle/generator.go
//
// Puzzle generator behind GET /init.
// Responsibilities:
//   - Pick board size and move budget uniformly from the tuning ranges.
//   - Pick a target from the catalogue, skipping colors too close to black
//     (an unlit board would already be a match).
//   - FromSeed builds the same puzzle for every caller given the same seed;
//     the daily challenge relies on this.
//
// Generator is safe for concurrent use.
package puzzle

import (
	"math/rand/v2"
	"sync"

	"github.com/robalobadob/rgb-alchemy/internal/color"
	"github.com/robalobadob/rgb-alchemy/internal/config"
	"github.com/robalobadob/rgb-alchemy/internal/game"
	"github.com/robalobadob/rgb-alchemy/internal/targets"
)

// Generator creates GameData documents.
type Generator struct {
	tuning  config.Tuning
	targets []targets.Target

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator returns a generator drawing from list. A seed of 0 uses a
// random seed.
func NewGenerator(t config.Tuning, list []targets.Target, seed uint64) *Generator {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Generator{
		tuning:  t,
		targets: eligible(list, t.MinTargetDelta),
		rng:     newRand(seed),
	}
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// eligible drops targets that are within minDelta of black.
// If that leaves nothing, the full list is kept.
func eligible(list []targets.Target, minDelta float64) []targets.Target {
	out := make([]targets.Target, 0, len(list))
	for _, t := range list {
		if color.Distance(t.Color, color.Black) >= minDelta {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return append(out, list...)
	}
	return out
}

// New returns a fresh random puzzle for userID.
func (g *Generator) New(userID string) game.GameData {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.build(g.rng, userID)
}

// FromSeed returns the puzzle determined by seed, independent of any
// previous calls.
func (g *Generator) FromSeed(userID string, seed uint64) game.GameData {
	return g.build(newRand(seed), userID)
}

func (g *Generator) build(r *rand.Rand, userID string) game.GameData {
	d := game.GameData{
		UserID:   userID,
		Width:    between(r, g.tuning.Board.MinWidth, g.tuning.Board.MaxWidth),
		Height:   between(r, g.tuning.Board.MinHeight, g.tuning.Board.MaxHeight),
		MaxMoves: between(r, g.tuning.Moves.Min, g.tuning.Moves.Max),
	}
	if len(g.targets) > 0 {
		d.Target = g.targets[r.IntN(len(g.targets))].Color
	} else {
		d.Target = targets.Random(r).Color
	}
	return d
}

// between returns a uniform int in [lo, hi].
func between(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}
