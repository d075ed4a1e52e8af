package tetris

import (
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/models/tetris"
)

// Action はプレイヤーの入力操作です。
type Action string

const (
	ActionMoveLeft  Action = "move_left"
	ActionMoveRight Action = "move_right"
	ActionSoftDrop  Action = "soft_drop"
	ActionRotate    Action = "rotate"
)

// ParseAction は文字列を Action に変換します。未知の操作は false を返します。
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionMoveLeft, ActionMoveRight, ActionSoftDrop, ActionRotate:
		return a, true
	default:
		return "", false
	}
}

// MoveLeft はピースを1マス左に動かします。衝突する場合は元に戻します。
func (s *GameSession) MoveLeft() bool {
	return s.shift(-1)
}

// MoveRight はピースを1マス右に動かします。衝突する場合は元に戻します。
func (s *GameSession) MoveRight() bool {
	return s.shift(1)
}

func (s *GameSession) shift(dx int) bool {
	if !s.IsRunning() {
		return false
	}
	s.CurrentPiece.X += dx
	if s.Board.Collides(s.CurrentPiece) {
		s.CurrentPiece.X -= dx
		return false
	}
	return true
}

// Rotate はピースを時計回りに回転させます。回転後に衝突する場合は回転を破棄します（壁蹴りなし）。
func (s *GameSession) Rotate() bool {
	if !s.IsRunning() {
		return false
	}
	rotated := s.CurrentPiece.Rotated()
	if s.Board.Collides(rotated) {
		return false
	}
	s.CurrentPiece = rotated
	return true
}

// MoveDown はピースを1マス下に動かします（ソフトドロップと重力の両方で使用）。
// 着地した場合はボードに固定し、ラインを消去して得点を加算します。
// y == 0 で固定された場合はゲームオーバーになり、それ以外は次のピースが出現します。
//
// Returns:
//   moved : ピースが1マス落下した場合はtrue
//   over  : この操作でゲームオーバーになった場合はtrue
func (s *GameSession) MoveDown() (moved bool, over bool) {
	if !s.IsRunning() {
		return false, false
	}
	s.CurrentPiece.Y++
	if !s.Board.Collides(s.CurrentPiece) {
		return true, false
	}
	s.CurrentPiece.Y--

	lockedY := s.CurrentPiece.Y
	s.lockPiece()

	if lockedY == 0 {
		s.finish()
		return false, true
	}
	s.spawnNext()
	return false, false
}

// lockPiece はピースをボードに固定した後の処理（ライン消去とスコア加算）を行います。
func (s *GameSession) lockPiece() {
	// スポーン直後に既存ブロックと重なっているピースはマージしない（y == 0 なのでこの後ゲームオーバー）
	if !s.Board.Collides(s.CurrentPiece) {
		s.Board.Merge(s.CurrentPiece)
	}
	cleared := s.Board.ClearLines()
	s.LinesCleared += cleared
	s.Score += tetris.LineClearScore(cleared)
}

// ApplyPlayerInput はプレイヤーの入力（アクション）に基づいてゲーム状態を更新します。
// 開始前・ゲームオーバー後など操作中のピースがない場合は入力を無視します。
//
// Parameters:
//   s      : 更新するゲームセッション
//   action : プレイヤーが実行したアクション
// Returns:
//   bool: ゲーム状態が実際に変更された場合はtrue
func ApplyPlayerInput(s *GameSession, action Action) bool {
	if !s.IsRunning() {
		return false
	}

	switch action {
	case ActionMoveLeft:
		return s.MoveLeft()
	case ActionMoveRight:
		return s.MoveRight()
	case ActionRotate:
		return s.Rotate()
	case ActionSoftDrop:
		// 着地した場合もボードが変わるので常に変更あり
		s.MoveDown()
		return true
	default:
		return false
	}
}
