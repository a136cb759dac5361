// Package render draws a game snapshot as a styled terminal view.
//
// It is the only place that turns engine state into text; the play command
// and any other terminal consumer go through View.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/robalobadob/rgb-alchemy/internal/color"
	"github.com/robalobadob/rgb-alchemy/internal/game"
)

// Cell glyphs. Each cell is two columns wide so the board looks square.
const (
	tileGlyph      = "██"
	closestGlyph   = "▓▓"
	sourceGlyph    = "●●"
	emptySlotGlyph = "··"
	cornerGlyph    = "  "
)

// Renderer carries lipgloss styles bound to one output.
type Renderer struct {
	r     *lipgloss.Renderer
	dim   lipgloss.Style
	label lipgloss.Style
	panel lipgloss.Style
	win   lipgloss.Style
	loss  lipgloss.Style
}

// New returns a Renderer whose color profile is detected from w.
func New(w io.Writer) *Renderer {
	r := lipgloss.NewRenderer(w)
	return &Renderer{
		r:     r,
		dim:   r.NewStyle().Foreground(lipgloss.Color("240")),
		label: r.NewStyle().Bold(true),
		panel: r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).MarginLeft(2),
		win:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		loss:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
}

func (r *Renderer) swatch(c color.RGB, glyph string) string {
	return r.r.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render(glyph)
}

func (r *Renderer) slot(s game.Source) string {
	if !s.Set {
		return r.dim.Render(emptySlotGlyph)
	}
	return r.swatch(s.Color, sourceGlyph)
}

// Board draws the tile grid framed by its four source rows and columns.
// The closest tile is drawn with a different glyph.
func (r *Renderer) Board(s game.Snapshot) string {
	var sb strings.Builder

	edge := func(slots []game.Source) {
		sb.WriteString(cornerGlyph)
		for _, src := range slots {
			sb.WriteString(r.slot(src))
		}
		sb.WriteString(cornerGlyph)
	}

	edge(s.Sources.Top)
	for row, tiles := range s.Tiles {
		sb.WriteByte('\n')
		sb.WriteString(r.slot(s.Sources.Left[row]))
		for col, c := range tiles {
			glyph := tileGlyph
			if row == s.Closest.Row && col == s.Closest.Col {
				glyph = closestGlyph
			}
			sb.WriteString(r.swatch(c, glyph))
		}
		sb.WriteString(r.slot(s.Sources.Right[row]))
	}
	sb.WriteByte('\n')
	edge(s.Sources.Bottom)
	return sb.String()
}

// Info draws the side panel: moves, target, closest color and its distance.
func (r *Renderer) Info(s game.Snapshot) string {
	lines := []string{
		r.label.Render("Moves left: ") + fmt.Sprint(s.MovesRemaining),
		r.label.Render("Target:     ") + r.swatch(s.Target, tileGlyph) + " " + s.Target.String(),
		r.label.Render("Closest:    ") + r.swatch(s.Closest.Color, tileGlyph) + " " + s.Closest.Color.String(),
		"            " + Delta(s.Closest.Delta),
	}

	switch s.Phase.Kind {
	case game.PhasePlacement:
		lines = append(lines, "", r.dim.Render(fmt.Sprintf("Place source %d of 3", s.Phase.Placed+1)))
	case game.PhaseFreePlay:
		hint := "Select a tile, then drop it on a source"
		if s.Drag != nil {
			hint = fmt.Sprintf("Holding tile (%d,%d)", s.Drag.Row, s.Drag.Col)
		}
		lines = append(lines, "", r.dim.Render(hint))
	case game.PhaseEnded:
		if s.Phase.Success {
			lines = append(lines, "", r.win.Render("Success! You matched the target."))
		} else {
			lines = append(lines, "", r.loss.Render("Out of moves. Better luck next time."))
		}
	}
	return r.panel.Render(strings.Join(lines, "\n"))
}

// View joins the board and the info panel side by side.
func (r *Renderer) View(s game.Snapshot) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, r.Board(s), r.Info(s))
}

// Delta formats a distance as a percentage with two decimals.
func Delta(d float64) string {
	return fmt.Sprintf("Δ=%.2f%%", d*100)
}
