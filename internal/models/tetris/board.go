package tetris

import (
	"errors"
	"fmt"
	"time"
)

const (
	BoardWidth  = 10 // テトリスボードの幅 (COLS)
	BoardHeight = 20 // テトリスボードの高さ (ROWS)

	// TickInterval は重力による自動落下の間隔です。
	TickInterval = 500 * time.Millisecond

	// PointsPerLine は1ライン消去あたりの得点です。
	PointsPerLine = 100
)

// ErrMergeCollision はピースが衝突している状態でマージしようとした場合のエラーです。
// 呼び出し側の順序が正しければ発生しないため、Merge はこのエラーで panic します。
var ErrMergeCollision = errors.New("tetris: merge called with a colliding piece")

// Color はボード上のマスの色を表します。空のマスは Empty です。
type Color string

// Empty は空のマスを表します。
const Empty Color = ""

// Board はテトリスのゲームボードを表す2次元配列です。
// Board[y][x] でアクセスします。yは行、xは列です。
// 配列型なので、ボードの寸法はライフタイム全体で BoardHeight x BoardWidth に固定されます。
type Board [BoardHeight][BoardWidth]Color

// NewBoard は新しい空のボードを初期化して返します。
// Goの配列はゼロ値（Empty）で初期化されるため、特別な初期化は不要です。
func NewBoard() Board {
	var board Board
	return board
}

// Collides は指定されたピースが壁・床・既存のブロックと衝突するかどうかを判定します。
// ボードより上 (y < 0) のマスはそれだけでは衝突とみなしません。
// この関数は純粋関数で、ボードとピースのどちらも変更しません。
//
// Parameters:
//   p : 衝突判定を行うテトリミノのポインタ
// Returns:
//   bool: 衝突する場合はtrue、しない場合はfalse
func (b *Board) Collides(p *Piece) bool {
	for _, cell := range p.Cells() {
		x := p.X + cell[0]
		y := p.Y + cell[1]

		// 左右の壁、または床との衝突
		if x < 0 || x >= BoardWidth || y >= BoardHeight {
			return true
		}
		// y < 0 の位置のブロックは既存のブロックと衝突しない
		if y >= 0 && b[y][x] != Empty {
			return true
		}
	}
	return false
}

// Merge は落下したピースをボードに固定し、ピースの色でマスを埋めます。
// 衝突しているピースや盤外のマスを持つピースを渡すのはプログラミングエラーで、panic します。
func (b *Board) Merge(p *Piece) {
	if b.Collides(p) {
		panic(fmt.Errorf("%w: %s at (%d,%d)", ErrMergeCollision, p.Type, p.X, p.Y))
	}
	for _, cell := range p.Cells() {
		x := p.X + cell[0]
		y := p.Y + cell[1]
		if y < 0 {
			panic(fmt.Errorf("%w: cell above the board at (%d,%d)", ErrMergeCollision, x, y))
		}
		b[y][x] = p.Color
	}
}

// IsRowFull は指定した行のすべてのマスが埋まっているかを返します。
func (b *Board) IsRowFull(y int) bool {
	for x := 0; x < BoardWidth; x++ {
		if b[y][x] == Empty {
			return false
		}
	}
	return true
}

// Filled は埋まっているマスの数を返します。
func (b *Board) Filled() int {
	n := 0
	for y := 0; y < BoardHeight; y++ {
		for x := 0; x < BoardWidth; x++ {
			if b[y][x] != Empty {
				n++
			}
		}
	}
	return n
}

// ClearLines は揃ったラインを消去し、残りの行を下に詰めます。
// 最下行から1回の走査で処理し、消去した行数だけ空の行が上に追加されます。
// 残った行の相対的な順序は保たれます。
//
// Returns:
//   int: 消去されたライン数
func (b *Board) ClearLines() int {
	cleared := 0
	newBoard := NewBoard()

	destY := BoardHeight - 1 // 次にコピーする行の位置（下から詰める）
	for y := BoardHeight - 1; y >= 0; y-- {
		if b.IsRowFull(y) {
			cleared++
			continue
		}
		newBoard[destY] = b[y]
		destY--
	}
	*b = newBoard
	return cleared
}

// LineClearScore は一度に消去したライン数に対する得点を返します。
func LineClearScore(lines int) int {
	if lines <= 0 {
		return 0
	}
	return lines * PointsPerLine
}
