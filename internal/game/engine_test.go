package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/rgb-alchemy/internal/color"
)

func newSession(t *testing.T, w, h, moves int, target color.RGB) *Session {
	t.Helper()
	s, err := New(GameData{UserID: "u1", Width: w, Height: h, MaxMoves: moves, Target: target})
	require.NoError(t, err)
	return s
}

func placeAll(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.PlaceSource(SideTop, 0))
	require.NoError(t, s.PlaceSource(SideTop, 1))
	require.NoError(t, s.PlaceSource(SideTop, 2))
}

func TestNewSession(t *testing.T) {
	s := newSession(t, 4, 2, 8, color.White)

	w, h := s.Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, h)
	assert.Equal(t, 8, s.MovesRemaining())
	assert.Equal(t, Phase{Kind: PhasePlacement}, s.Phase())
	assert.Len(t, s.Sources().Top, 4)
	assert.Len(t, s.Sources().Left, 2)
	for _, row := range s.Tiles() {
		for _, c := range row {
			assert.Equal(t, color.Black, c)
		}
	}
}

func TestNewSessionRejectsInvalidData(t *testing.T) {
	testCases := []GameData{
		{UserID: "", Width: 3, Height: 3, MaxMoves: 5},
		{UserID: "u", Width: 0, Height: 3, MaxMoves: 5},
		{UserID: "u", Width: 3, Height: 65, MaxMoves: 5},
		{UserID: "u", Width: 3, Height: 3, MaxMoves: 0},
	}
	for _, d := range testCases {
		_, err := New(d)
		assert.ErrorIs(t, err, ErrInvalidGame, "%+v", d)
	}
}

func TestPlacementAssignsPrimariesInOrder(t *testing.T) {
	s := newSession(t, 3, 3, 10, color.White)

	require.NoError(t, s.PlaceSource(SideLeft, 2))
	require.NoError(t, s.PlaceSource(SideBottom, 0))
	require.NoError(t, s.PlaceSource(SideRight, 1))

	src := s.Sources()
	assert.Equal(t, Source{Color: color.Red, Set: true}, src.Left[2])
	assert.Equal(t, Source{Color: color.Green, Set: true}, src.Bottom[0])
	assert.Equal(t, Source{Color: color.Blue, Set: true}, src.Right[1])
	assert.Equal(t, 7, s.MovesRemaining())
	assert.Equal(t, Phase{Kind: PhaseFreePlay, Placed: 3}, s.Phase())

	assert.ErrorIs(t, s.PlaceSource(SideTop, 0), ErrWrongPhase)
	assert.Equal(t, 7, s.MovesRemaining(), "rejected placement must not spend a move")
}

func TestPlacementRejectsOccupiedSlot(t *testing.T) {
	s := newSession(t, 3, 3, 10, color.White)
	require.NoError(t, s.PlaceSource(SideTop, 0))

	before := s.Snapshot()
	assert.ErrorIs(t, s.PlaceSource(SideTop, 0), ErrSlotOccupied)
	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, 1, s.Phase().Placed)

	require.NoError(t, s.PlaceSource(SideBottom, 0))
	assert.Equal(t, color.Green, s.Sources().Bottom[0].Color, "green follows red even after a rejection")
}

func TestOutOfRange(t *testing.T) {
	s := newSession(t, 4, 2, 10, color.White)

	require.NoError(t, s.PlaceSource(SideTop, 3))
	assert.ErrorIs(t, s.PlaceSource(SideLeft, 3), ErrOutOfRange)
	assert.ErrorIs(t, s.PlaceSource(SideRight, -1), ErrOutOfRange)
	assert.ErrorIs(t, s.PlaceSource(Side(7), 0), ErrOutOfRange)
	assert.Equal(t, 9, s.MovesRemaining())

	require.NoError(t, s.PlaceSource(SideTop, 0))
	require.NoError(t, s.PlaceSource(SideTop, 1))
	assert.ErrorIs(t, s.SelectDragTile(2, 0), ErrOutOfRange)
	assert.ErrorIs(t, s.SelectDragTile(0, 4), ErrOutOfRange)
}

func TestDragRequiresFreePlay(t *testing.T) {
	s := newSession(t, 3, 3, 10, color.White)
	assert.ErrorIs(t, s.SelectDragTile(0, 0), ErrWrongPhase)
	assert.ErrorIs(t, s.DropOnSource(SideTop, 0), ErrWrongPhase)
	assert.Equal(t, 10, s.MovesRemaining())
}

func TestDropWithoutSelectionIsRejected(t *testing.T) {
	s := newSession(t, 3, 3, 10, color.White)
	placeAll(t, s)

	assert.ErrorIs(t, s.DropOnSource(SideBottom, 0), ErrNoDragTile)
	assert.Equal(t, 7, s.MovesRemaining())
}

func TestDropCopiesTileColor(t *testing.T) {
	s := newSession(t, 3, 3, 10, color.White)
	placeAll(t, s)

	require.NoError(t, s.SelectDragTile(0, 0))
	p, ok := s.Drag()
	require.True(t, ok)
	assert.Equal(t, Position{0, 0}, p)
	assert.Equal(t, 7, s.MovesRemaining(), "selecting is not a move")

	require.NoError(t, s.DropOnSource(SideBottom, 0))
	assert.Equal(t, Source{Color: color.RGB{R: 191, G: 0, B: 0}, Set: true}, s.Sources().Bottom[0])
	assert.Equal(t, 6, s.MovesRemaining())
	_, ok = s.Drag()
	assert.False(t, ok, "drop clears the selection")

	// top red at 0.25 plus bottom (191,0,0) at 0.75
	assert.Equal(t, color.RGB{R: 207, G: 0, B: 0}, s.Tiles()[2][0])

	assert.ErrorIs(t, s.DropOnSource(SideBottom, 1), ErrNoDragTile)
}

func TestDropMayOverwriteSetSlot(t *testing.T) {
	s := newSession(t, 3, 3, 10, color.White)
	placeAll(t, s)

	require.NoError(t, s.SelectDragTile(2, 2))
	require.NoError(t, s.DropOnSource(SideTop, 0))
	assert.Equal(t, color.RGB{R: 0, G: 0, B: 64}, s.Sources().Top[0].Color)
}

func TestWinEndsImmediately(t *testing.T) {
	s := newSession(t, 3, 3, 10, color.RGB{R: 191, G: 0, B: 0})

	require.NoError(t, s.PlaceSource(SideTop, 0))
	assert.True(t, s.Ended())
	assert.Equal(t, Phase{Kind: PhaseEnded, Placed: 1, Success: true}, s.Phase())
	assert.Equal(t, 9, s.MovesRemaining())
	assert.Less(t, s.Closest().Delta, WinThreshold)

	assert.ErrorIs(t, s.PlaceSource(SideTop, 1), ErrGameOver)
	assert.Equal(t, 9, s.MovesRemaining())
}

func TestWinOnLastMoveIsSuccess(t *testing.T) {
	s := newSession(t, 3, 3, 1, color.RGB{R: 191, G: 0, B: 0})
	require.NoError(t, s.PlaceSource(SideTop, 0))
	assert.Equal(t, 0, s.MovesRemaining())
	assert.True(t, s.Phase().Success)
}

func TestLossWhenMovesRunOut(t *testing.T) {
	s := newSession(t, 3, 3, 3, color.White)
	placeAll(t, s)

	assert.Equal(t, 0, s.MovesRemaining())
	assert.Equal(t, Phase{Kind: PhaseEnded, Placed: 3, Success: false}, s.Phase())
	assert.GreaterOrEqual(t, s.Closest().Delta, WinThreshold)

	assert.ErrorIs(t, s.SelectDragTile(0, 0), ErrGameOver)
	assert.ErrorIs(t, s.DropOnSource(SideTop, 0), ErrGameOver)
	assert.ErrorIs(t, s.PlaceSource(SideLeft, 0), ErrGameOver)
}

func TestMovesAccounting(t *testing.T) {
	s := newSession(t, 3, 3, 20, color.White)

	type step struct {
		do       func() error
		accepted bool
	}
	steps := []step{
		{func() error { return s.SelectDragTile(0, 0) }, false},
		{func() error { return s.PlaceSource(SideTop, 0) }, true},
		{func() error { return s.PlaceSource(SideTop, 0) }, false},
		{func() error { return s.PlaceSource(SideLeft, 1) }, true},
		{func() error { return s.DropOnSource(SideTop, 1) }, false},
		{func() error { return s.PlaceSource(SideRight, 2) }, true},
		{func() error { return s.PlaceSource(SideRight, 0) }, false},
		{func() error { return s.DropOnSource(SideTop, 1) }, false},
		{func() error { return s.SelectDragTile(1, 1) }, true},
		{func() error { return s.DropOnSource(SideTop, 1) }, true},
	}
	for i, st := range steps {
		before := s.MovesRemaining()
		err := st.do()
		spent := before - s.MovesRemaining()
		if !st.accepted {
			assert.Error(t, err, "step %d", i)
			assert.Equal(t, 0, spent, "step %d", i)
			continue
		}
		assert.NoError(t, err, "step %d", i)
		if i == 8 {
			assert.Equal(t, 0, spent, "select is free")
		} else {
			assert.Equal(t, 1, spent, "step %d", i)
		}
	}
	assert.Equal(t, 16, s.MovesRemaining())
	assert.Equal(t, 4, s.MovesUsed())
}

func TestQueriesAreIdempotent(t *testing.T) {
	s := newSession(t, 4, 3, 10, color.RGB{R: 90, G: 90, B: 200})
	placeAll(t, s)

	assert.Equal(t, s.Snapshot(), s.Snapshot())
	assert.Equal(t, s.Closest(), s.Closest())

	tiles := s.Tiles()
	tiles[0][0] = color.White
	src := s.Sources()
	src.Top[0].Color = color.White
	assert.NotEqual(t, color.White, s.Tiles()[0][0], "returned tiles are copies")
	assert.Equal(t, color.Red, s.Sources().Top[0].Color, "returned sources are copies")
}

func TestSnapshot(t *testing.T) {
	s := newSession(t, 3, 2, 5, color.Blue)
	placeAll(t, s)
	require.NoError(t, s.SelectDragTile(1, 2))

	snap := s.Snapshot()
	assert.Equal(t, "u1", snap.UserID)
	assert.Equal(t, 3, snap.Width)
	assert.Equal(t, 2, snap.Height)
	assert.Equal(t, 5, snap.MaxMoves)
	assert.Equal(t, 2, snap.MovesRemaining)
	assert.Equal(t, PhaseFreePlay, snap.Phase.Kind)
	require.NotNil(t, snap.Drag)
	assert.Equal(t, Position{1, 2}, *snap.Drag)
	assert.Equal(t, s.Closest(), snap.Closest)
	assert.Equal(t, GameData{UserID: "u1", Width: 3, Height: 2, MaxMoves: 5, Target: color.Blue}, s.Data())
}
