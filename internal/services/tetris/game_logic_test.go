package tetris

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/models/tetris"
)

// newRunningSession はシード固定の running 状態のセッションを返します。
func newRunningSession(t *testing.T) *GameSession {
	t.Helper()
	s := NewGameSession("test-session", "tester", tetris.NewSeededPieceFactory(1))
	s.Start()
	require.NotNil(t, s.CurrentPiece, "Initial CurrentPiece is nil, cannot run test.")
	return s
}

// setCurrent は現在のピースを指定した種類のスポーン状態に置き換えます。
func setCurrent(s *GameSession, pt tetris.PieceType) *tetris.Piece {
	s.CurrentPiece = s.factory.NewPiece(pt)
	return s.CurrentPiece
}

func fillRow(b *tetris.Board, y int, except ...int) {
	skip := map[int]bool{}
	for _, x := range except {
		skip[x] = true
	}
	for x := 0; x < tetris.BoardWidth; x++ {
		if !skip[x] {
			b[y][x] = "#888888"
		}
	}
}

func TestApplyPlayerInput_MoveLeft(t *testing.T) {
	s := newRunningSession(t)
	initialX := s.CurrentPiece.X

	moved := ApplyPlayerInput(s, ActionMoveLeft)

	assert.True(t, moved)
	assert.Equal(t, initialX-1, s.CurrentPiece.X)

	// 左端では移動しない（ピースは変化しない）
	s.CurrentPiece.X = 0
	before := s.CurrentPiece.Clone()
	moved = ApplyPlayerInput(s, ActionMoveLeft)
	assert.False(t, moved)
	assert.Equal(t, before, s.CurrentPiece)
}

func TestApplyPlayerInput_MoveRight(t *testing.T) {
	s := newRunningSession(t)
	p := setCurrent(s, tetris.TypeO)
	initialX := p.X

	assert.True(t, ApplyPlayerInput(s, ActionMoveRight))
	assert.Equal(t, initialX+1, s.CurrentPiece.X)

	s.CurrentPiece.X = tetris.BoardWidth - 2
	assert.False(t, ApplyPlayerInput(s, ActionMoveRight))
	assert.Equal(t, tetris.BoardWidth-2, s.CurrentPiece.X)
}

func TestMoveLeft_BlockedBySettledCells(t *testing.T) {
	s := newRunningSession(t)
	p := setCurrent(s, tetris.TypeO) // x=4
	s.Board[1][3] = "#FF0000"

	assert.False(t, s.MoveLeft())
	assert.Equal(t, 4, p.X)
}

func TestApplyPlayerInput_Rotate(t *testing.T) {
	s := newRunningSession(t)
	p := setCurrent(s, tetris.TypeT)
	expected := p.Shape.Rotated()

	assert.True(t, ApplyPlayerInput(s, ActionRotate))
	assert.True(t, expected.Equal(s.CurrentPiece.Shape))
	assert.Equal(t, 2, s.CurrentPiece.Shape.Width())
	assert.Equal(t, 3, s.CurrentPiece.Shape.Height())
}

func TestRotate_RejectedLeavesPieceUnchanged(t *testing.T) {
	s := newRunningSession(t)
	p := setCurrent(s, tetris.TypeI)
	p.Y = tetris.BoardHeight - 1 // 横向きで最下段、縦にすると床を突き抜ける
	before := p.Clone()

	assert.False(t, s.Rotate())
	assert.Same(t, p, s.CurrentPiece)
	assert.Equal(t, before, s.CurrentPiece)
}

func TestRotate_FourTimesIsIdentity(t *testing.T) {
	s := newRunningSession(t)
	p := setCurrent(s, tetris.TypeL)
	p.Y = 5
	original := p.Clone()

	for i := 0; i < 4; i++ {
		require.True(t, s.Rotate())
	}
	assert.True(t, original.Shape.Equal(s.CurrentPiece.Shape))
	assert.Equal(t, original.X, s.CurrentPiece.X)
	assert.Equal(t, original.Y, s.CurrentPiece.Y)
}

func TestMoveDown_OPieceLandsWithoutClearing(t *testing.T) {
	s := newRunningSession(t)
	setCurrent(s, tetris.TypeO)
	next := s.NextPiece

	drops := 0
	for {
		moved, over := s.MoveDown()
		require.False(t, over)
		if !moved {
			break
		}
		drops++
	}

	assert.Equal(t, tetris.BoardHeight-2, drops)
	assert.Equal(t, tetris.ColorOf(tetris.TypeO), s.Board[18][4])
	assert.Equal(t, tetris.ColorOf(tetris.TypeO), s.Board[19][5])
	assert.Equal(t, 4, s.Board.Filled())
	assert.Equal(t, 0, s.Score)
	assert.Equal(t, StatusRunning, s.Status)
	// 次のピースが現在のピースに昇格している
	assert.Same(t, next, s.CurrentPiece)
	assert.NotNil(t, s.NextPiece)
}

func TestMoveDown_HorizontalIClearsBottomRow(t *testing.T) {
	s := newRunningSession(t)
	fillRow(&s.Board, 19, 3, 4, 5, 6)
	s.Board[18][0] = "#123456"
	setCurrent(s, tetris.TypeI) // x=3..6

	for {
		moved, over := s.MoveDown()
		require.False(t, over)
		if !moved {
			break
		}
	}

	assert.Equal(t, 100, s.Score)
	assert.Equal(t, 1, s.LinesCleared)
	// 18行目にあったブロックが1行下に移動している
	assert.Equal(t, tetris.Color("#123456"), s.Board[19][0])
	assert.Equal(t, 1, s.Board.Filled())
}

func TestMoveDown_VerticalIClearsFourRows(t *testing.T) {
	s := newRunningSession(t)
	for y := 16; y < tetris.BoardHeight; y++ {
		fillRow(&s.Board, y, 5)
	}
	setCurrent(s, tetris.TypeI)
	require.True(t, s.Rotate())
	s.CurrentPiece.X = 5

	for {
		moved, _ := s.MoveDown()
		if !moved {
			break
		}
	}

	assert.Equal(t, 400, s.Score)
	assert.Equal(t, 4, s.LinesCleared)
	assert.Equal(t, 0, s.Board.Filled())
}

func TestMoveDown_LockAtTopIsGameOver(t *testing.T) {
	s := newRunningSession(t)
	for y := 2; y < tetris.BoardHeight; y++ {
		fillRow(&s.Board, y, 0)
	}
	setCurrent(s, tetris.TypeO)
	next := s.NextPiece

	moved, over := s.MoveDown()

	assert.False(t, moved)
	assert.True(t, over)
	assert.Equal(t, StatusOver, s.Status)
	assert.False(t, s.EndedAt.IsZero())
	assert.Same(t, next, s.NextPiece, "ゲームオーバー時は次のピースを出さない")
	assert.Equal(t, tetris.ColorOf(tetris.TypeO), s.Board[0][4])
	assert.Equal(t, 0, s.Score)

	// ゲームオーバー後の入力は無視される
	before := s.Snapshot()
	assert.False(t, ApplyPlayerInput(s, ActionMoveLeft))
	assert.False(t, ApplyPlayerInput(s, ActionSoftDrop))
	assert.Equal(t, before, s.Snapshot())
}

func TestMoveDown_SpawnOverlapEndsGameWithoutMerge(t *testing.T) {
	s := newRunningSession(t)
	for y := 2; y < tetris.BoardHeight; y++ {
		fillRow(&s.Board, y, 0)
	}
	s.Board[0][4] = "#FF0000"
	setCurrent(s, tetris.TypeO) // (4,0) に重なってスポーン
	filled := s.Board.Filled()

	var over bool
	assert.NotPanics(t, func() { _, over = s.MoveDown() })
	assert.True(t, over)
	assert.Equal(t, StatusOver, s.Status)
	assert.Equal(t, tetris.Empty, s.Board[0][5])
	assert.Equal(t, tetris.Empty, s.Board[1][4])
	assert.Equal(t, filled, s.Board.Filled())
}

func TestApplyPlayerInput_IgnoredBeforeStart(t *testing.T) {
	s := NewGameSession("idle", "tester", tetris.NewSeededPieceFactory(1))

	for _, a := range []Action{ActionMoveLeft, ActionMoveRight, ActionSoftDrop, ActionRotate} {
		assert.False(t, ApplyPlayerInput(s, a))
	}
	assert.Equal(t, StatusIdle, s.Status)
	assert.Nil(t, s.CurrentPiece)
}

func TestApplyPlayerInput_UnknownAction(t *testing.T) {
	s := newRunningSession(t)
	before := s.Snapshot()
	assert.False(t, ApplyPlayerInput(s, Action("hard_drop")))
	assert.Equal(t, before, s.Snapshot())

	_, ok := ParseAction("hold")
	assert.False(t, ok)
	a, ok := ParseAction("rotate")
	assert.True(t, ok)
	assert.Equal(t, ActionRotate, a)
}
