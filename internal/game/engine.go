// internal/game/engine.go
//
// Session state machine for a single RGB Alchemy game.
// Responsibilities:
//   - Create sessions from GameData (fixed board size, move budget, target).
//   - Placement phase: the first three moves put Red, Green, Blue (in that
//     order) onto unset edge slots.
//   - Free play: copy a selected tile's color onto any slot.
//   - Recompute the board after each accepted move and check for the end:
//     closest delta below WinThreshold wins, running out of moves loses.
//
// Notes:
//   - Rejected actions return one of the Err* sentinels and leave the session
//     untouched; no move is consumed.
//   - Ended is terminal: every action afterwards returns ErrGameOver.
//   - A Session is not safe for concurrent use; callers serialise access.
package game

import (
	"errors"

	"github.com/robalobadob/rgb-alchemy/internal/color"
)

// WinThreshold is the delta below which the closest tile counts as a match.
const WinThreshold = 0.1

// placementMoves is the number of primaries handed out before free play.
const placementMoves = len(color.Primaries)

var (
	ErrInvalidGame  = errors.New("invalid game data")
	ErrGameOver     = errors.New("game over")
	ErrNoMovesLeft  = errors.New("no moves left")
	ErrWrongPhase   = errors.New("action not allowed in this phase")
	ErrSlotOccupied = errors.New("source slot already set")
	ErrNoDragTile   = errors.New("no tile selected")
	ErrOutOfRange   = errors.New("position out of range")
)

// Session holds the state of one game.
type Session struct {
	userID   string
	width    int
	height   int
	maxMoves int
	target   color.RGB

	sources Sources
	tiles   [][]color.RGB
	moves   int
	placed  int
	drag    *Position
	ended   bool
	success bool
}

// New constructs a session with unset sources and an all-black board.
func New(d GameData) (*Session, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		userID:   d.UserID,
		width:    d.Width,
		height:   d.Height,
		maxMoves: d.MaxMoves,
		target:   d.Target,
		sources:  NewSources(d.Width, d.Height),
		moves:    d.MaxMoves,
	}
	s.tiles = ComputeTiles(s.sources, s.width, s.height)
	return s, nil
}

// PlaceSource puts the next primary color onto an unset slot.
func (s *Session) PlaceSource(side Side, idx int) error {
	if err := s.canMove(); err != nil {
		return err
	}
	if s.placed >= placementMoves {
		return ErrWrongPhase
	}
	slot, err := s.slot(side, idx)
	if err != nil {
		return err
	}
	if slot.Set {
		return ErrSlotOccupied
	}
	*slot = Source{Color: color.Primaries[s.placed], Set: true}
	s.placed++
	s.commit()
	return nil
}

// SelectDragTile records the tile whose color the next DropOnSource copies.
// Selecting is not a move.
func (s *Session) SelectDragTile(row, col int) error {
	if err := s.canMove(); err != nil {
		return err
	}
	if s.placed < placementMoves {
		return ErrWrongPhase
	}
	if row < 0 || row >= s.height || col < 0 || col >= s.width {
		return ErrOutOfRange
	}
	s.drag = &Position{Row: row, Col: col}
	return nil
}

// DropOnSource copies the selected tile's current color onto any slot,
// overwriting whatever was there.
func (s *Session) DropOnSource(side Side, idx int) error {
	if err := s.canMove(); err != nil {
		return err
	}
	if s.placed < placementMoves {
		return ErrWrongPhase
	}
	if s.drag == nil {
		return ErrNoDragTile
	}
	slot, err := s.slot(side, idx)
	if err != nil {
		return err
	}
	*slot = Source{Color: s.tiles[s.drag.Row][s.drag.Col], Set: true}
	s.drag = nil
	s.commit()
	return nil
}

func (s *Session) canMove() error {
	if s.ended {
		return ErrGameOver
	}
	if s.moves <= 0 {
		return ErrNoMovesLeft
	}
	return nil
}

func (s *Session) slot(side Side, idx int) (*Source, error) {
	arr := s.sources.Side(side)
	if idx < 0 || idx >= len(arr) {
		return nil, ErrOutOfRange
	}
	return &arr[idx], nil
}

// commit finishes an accepted move: recompute, spend the move, check the end.
func (s *Session) commit() {
	s.tiles = ComputeTiles(s.sources, s.width, s.height)
	s.moves--
	if FindClosest(s.tiles, s.target).Delta < WinThreshold {
		s.ended, s.success = true, true
		s.drag = nil
	} else if s.moves == 0 {
		s.ended = true
		s.drag = nil
	}
}

// UserID returns the player the session belongs to.
func (s *Session) UserID() string { return s.userID }

// Target returns the color to match.
func (s *Session) Target() color.RGB { return s.target }

// Size returns the board width and height.
func (s *Session) Size() (width, height int) { return s.width, s.height }

// MaxMoves returns the move budget the session started with.
func (s *Session) MaxMoves() int { return s.maxMoves }

// MovesRemaining returns the moves left.
func (s *Session) MovesRemaining() int { return s.moves }

// MovesUsed returns the number of accepted moves so far.
func (s *Session) MovesUsed() int { return s.maxMoves - s.moves }

// Ended reports whether the game is over.
func (s *Session) Ended() bool { return s.ended }

// Phase reports the current state machine state.
func (s *Session) Phase() Phase {
	switch {
	case s.ended:
		return Phase{Kind: PhaseEnded, Placed: s.placed, Success: s.success}
	case s.placed < placementMoves:
		return Phase{Kind: PhasePlacement, Placed: s.placed}
	default:
		return Phase{Kind: PhaseFreePlay, Placed: s.placed}
	}
}

// Tiles returns a copy of the current board.
func (s *Session) Tiles() [][]color.RGB {
	out := make([][]color.RGB, len(s.tiles))
	for i, row := range s.tiles {
		out[i] = append([]color.RGB(nil), row...)
	}
	return out
}

// Sources returns a copy of the edge sources.
func (s *Session) Sources() Sources { return s.sources.Clone() }

// Closest returns the tile nearest to the target.
func (s *Session) Closest() Closest { return FindClosest(s.tiles, s.target) }

// Drag returns the pending drag tile, if any.
func (s *Session) Drag() (Position, bool) {
	if s.drag == nil {
		return Position{}, false
	}
	return *s.drag, true
}

// Data returns the GameData the session was built from.
func (s *Session) Data() GameData {
	return GameData{
		UserID:   s.userID,
		Width:    s.width,
		Height:   s.height,
		MaxMoves: s.maxMoves,
		Target:   s.target,
	}
}

// Snapshot captures every query result at once.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		UserID:         s.userID,
		Width:          s.width,
		Height:         s.height,
		MaxMoves:       s.maxMoves,
		MovesRemaining: s.moves,
		Target:         s.target,
		Phase:          s.Phase(),
		Tiles:          s.Tiles(),
		Sources:        s.Sources(),
		Closest:        s.Closest(),
	}
	if p, ok := s.Drag(); ok {
		snap.Drag = &p
	}
	return snap
}
