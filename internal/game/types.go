// internal/game/types.go
//
// Core type definitions for the RGB Alchemy engine.
// Defines:
//   - Side: which edge of the board a source sits on.
//   - Source / Sources: the four edge arrays with explicit presence.
//   - Closest, Phase, Snapshot: query results handed to callers.
//   - GameData: the session construction document the browser client fetches.

package game

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/robalobadob/rgb-alchemy/internal/color"
)

// Side identifies a board edge.
type Side int

const (
	SideTop Side = iota
	SideBottom
	SideLeft
	SideRight
)

var sideNames = [...]string{"top", "bottom", "left", "right"}

func (s Side) String() string {
	if s < SideTop || s > SideRight {
		return fmt.Sprintf("side(%d)", int(s))
	}
	return sideNames[s]
}

// ParseSide accepts the side name ("top", "Left", ...) or its wire index 0..3.
func ParseSide(v string) (Side, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, n := range sideNames {
		if v == n || v == fmt.Sprint(i) {
			return Side(i), nil
		}
	}
	return 0, fmt.Errorf("game: unknown side %q", v)
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// UnmarshalJSON accepts the side name or its index, quoted or not.
func (s *Side) UnmarshalJSON(b []byte) error {
	v := string(b)
	if u, err := strconv.Unquote(v); err == nil {
		v = u
	}
	return s.UnmarshalText([]byte(v))
}

// Source is one edge slot. Set records whether a source was ever placed,
// independently of its color.
type Source struct {
	Color color.RGB `json:"color"`
	Set   bool      `json:"set"`
}

// Active reports whether the source emits any light.
func (s Source) Active() bool { return s.Set && !s.Color.IsZero() }

// Sources holds the four edge arrays. Top/Bottom are indexed by column,
// Left/Right by row.
type Sources struct {
	Top    []Source `json:"top"`
	Bottom []Source `json:"bottom"`
	Left   []Source `json:"left"`
	Right  []Source `json:"right"`
}

// NewSources returns unset source arrays for a width×height board.
func NewSources(width, height int) Sources {
	return Sources{
		Top:    make([]Source, width),
		Bottom: make([]Source, width),
		Left:   make([]Source, height),
		Right:  make([]Source, height),
	}
}

// Side returns the slot array for side (shared, not copied).
func (s *Sources) Side(side Side) []Source {
	switch side {
	case SideTop:
		return s.Top
	case SideBottom:
		return s.Bottom
	case SideLeft:
		return s.Left
	case SideRight:
		return s.Right
	}
	return nil
}

// Clone deep-copies every array.
func (s Sources) Clone() Sources {
	return Sources{
		Top:    append([]Source(nil), s.Top...),
		Bottom: append([]Source(nil), s.Bottom...),
		Left:   append([]Source(nil), s.Left...),
		Right:  append([]Source(nil), s.Right...),
	}
}

// Position is a tile coordinate.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Closest is the best-matching tile for the target.
type Closest struct {
	Row   int       `json:"row"`
	Col   int       `json:"col"`
	Color color.RGB `json:"color"`
	Delta float64   `json:"delta"`
}

// PhaseKind names the state machine states.
type PhaseKind string

const (
	PhasePlacement PhaseKind = "placement"
	PhaseFreePlay  PhaseKind = "free_play"
	PhaseEnded     PhaseKind = "ended"
)

// Phase is the session state: AwaitingPlacement(Placed), FreePlay or Ended(Success).
type Phase struct {
	Kind    PhaseKind `json:"kind"`
	Placed  int       `json:"placed"`
	Success bool      `json:"success"`
}

// Snapshot bundles every query result at one point in time.
type Snapshot struct {
	UserID         string        `json:"userId"`
	Width          int           `json:"width"`
	Height         int           `json:"height"`
	MaxMoves       int           `json:"maxMoves"`
	MovesRemaining int           `json:"movesRemaining"`
	Target         color.RGB     `json:"target"`
	Phase          Phase         `json:"phase"`
	Tiles          [][]color.RGB `json:"tiles"`
	Sources        Sources       `json:"sources"`
	Closest        Closest       `json:"closest"`
	Drag           *Position     `json:"drag,omitempty"`
}

// GameData is the construction document for a session. Its JSON form is
// what GET /init returns to the browser.
type GameData struct {
	UserID   string    `json:"userId" validate:"required,max=128"`
	Width    int       `json:"width" validate:"min=1,max=64"`
	Height   int       `json:"height" validate:"min=1,max=64"`
	MaxMoves int       `json:"maxMoves" validate:"min=1,max=1000"`
	Target   color.RGB `json:"target"`
}

var validate = validator.New()

// Validate checks the bounds a session can be built with.
func (d GameData) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGame, err)
	}
	return nil
}
