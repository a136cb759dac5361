// internal/game/grid.go
//
// Light propagation and closest-tile search. Both are pure functions of
// their inputs; the session re-runs them in full after every accepted move.

package game

import (
	"github.com/robalobadob/rgb-alchemy/internal/color"
)

// ComputeTiles returns the height×width tile colors produced by sources.
//
// Each active source lights its column (top/bottom) or row (left/right).
// Strength is full at the adjacent tile and falls off linearly towards the
// opposite edge without reaching zero. Tiles with no active source are black;
// otherwise the contributions are combined with color.Mix.
func ComputeTiles(src Sources, width, height int) [][]color.RGB {
	tiles := make([][]color.RGB, height)
	for row := 0; row < height; row++ {
		tiles[row] = make([]color.RGB, width)
		for col := 0; col < width; col++ {
			var contrib []color.Light
			if s, ok := at(src.Top, col); ok {
				contrib = append(contrib, s.Color.Scale(falloff(height, row+1)))
			}
			if s, ok := at(src.Bottom, col); ok {
				contrib = append(contrib, s.Color.Scale(falloff(height, height-row)))
			}
			if s, ok := at(src.Left, row); ok {
				contrib = append(contrib, s.Color.Scale(falloff(width, col+1)))
			}
			if s, ok := at(src.Right, row); ok {
				contrib = append(contrib, s.Color.Scale(falloff(width, width-col)))
			}
			if len(contrib) == 0 {
				continue // stays black
			}
			tiles[row][col] = color.Mix(contrib...)
		}
	}
	return tiles
}

// falloff is (span+1-dist)/(span+1) for a tile dist steps from the edge.
func falloff(span, dist int) float64 {
	return float64(span+1-dist) / float64(span+1)
}

// at returns the active source at i, if any.
func at(arr []Source, i int) (Source, bool) {
	if i < 0 || i >= len(arr) || !arr[i].Active() {
		return Source{}, false
	}
	return arr[i], true
}

// FindClosest scans tiles in row-major order and returns the first tile with
// the smallest distance to target. An empty grid yields (0,0), black, delta 1.
func FindClosest(tiles [][]color.RGB, target color.RGB) Closest {
	best := Closest{Delta: 1}
	found := false
	for row := range tiles {
		for col, c := range tiles[row] {
			d := color.Distance(c, target)
			if !found || d < best.Delta {
				best = Closest{Row: row, Col: col, Color: c, Delta: d}
				found = true
			}
		}
	}
	return best
}
