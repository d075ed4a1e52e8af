package tetris

import (
	"time"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/models/tetris"
)

// Status はゲームセッションの状態です。idle → running → over と遷移します。
type Status string

const (
	StatusIdle    Status = "idle"    // 開始前
	StatusRunning Status = "running" // プレイ中
	StatusOver    Status = "over"    // ゲームオーバー（状態は凍結）
)

// GameSession は1回のプレイ（開始からゲームオーバーまで）のすべての状態を保持します。
// GameSession 自体はスレッドセーフではありません。同時に操作するのは GameLoop の1ゴルーチンだけです。
type GameSession struct {
	ID           string        `json:"id"`
	PlayerName   string        `json:"player_name"`
	Board        tetris.Board  `json:"board"`         // 現在のゲームボード
	CurrentPiece *tetris.Piece `json:"current_piece"` // 現在操作中のテトリミノ
	NextPiece    *tetris.Piece `json:"next_piece"`    // 次に出現するテトリミノ
	Score        int           `json:"score"`         // 現在のスコア
	LinesCleared int           `json:"lines_cleared"` // クリアしたライン数
	Status       Status        `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	EndedAt      time.Time     `json:"ended_at"`
	Games        int           `json:"games"` // このセッションで開始したゲーム数

	factory *tetris.PieceFactory
}

// NewGameSession は idle 状態の新しいゲームセッションを返します。
//
// Parameters:
//   id         : セッションID
//   playerName : ゲームオーバー時にハイスコアとして登録する名前
//   factory    : ピースの生成に使う PieceFactory
func NewGameSession(id, playerName string, factory *tetris.PieceFactory) *GameSession {
	return &GameSession{
		ID:         id,
		PlayerName: playerName,
		Board:      tetris.NewBoard(),
		Status:     StatusIdle,
		factory:    factory,
	}
}

// Start はゲームを開始します。ゲームオーバー後に呼ぶとリスタートになり、
// ボード・スコア・ピースを含む前回のゲームの状態はすべてリセットされます。
func (s *GameSession) Start() {
	if s.Status == StatusOver {
		s.Status = StatusIdle
	}
	s.Board = tetris.NewBoard()
	s.Score = 0
	s.LinesCleared = 0
	s.CurrentPiece = s.factory.Next()
	s.NextPiece = s.factory.Next()
	s.StartedAt = time.Now()
	s.EndedAt = time.Time{}
	s.Games++
	s.Status = StatusRunning
}

// IsRunning はピースを操作できる状態かを返します。
func (s *GameSession) IsRunning() bool {
	return s.Status == StatusRunning && s.CurrentPiece != nil
}

// spawnNext は次のピースを現在のピースに昇格させ、新しい次のピースを生成します。
func (s *GameSession) spawnNext() {
	s.CurrentPiece = s.NextPiece
	s.NextPiece = s.factory.Next()
}

// finish はゲームオーバーに遷移させます。最後のピースは表示用に残します。
func (s *GameSession) finish() {
	s.Status = StatusOver
	s.EndedAt = time.Now()
}

// Snapshot はレンダラーに渡すためのゲーム状態のコピーです。
type Snapshot struct {
	ID           string        `json:"id"`
	PlayerName   string        `json:"player_name"`
	Board        tetris.Board  `json:"board"`
	CurrentPiece *tetris.Piece `json:"current_piece"`
	NextPiece    *tetris.Piece `json:"next_piece"`
	Score        int           `json:"score"`
	LinesCleared int           `json:"lines_cleared"`
	Status       Status        `json:"status"`
	StartedAt    time.Time     `json:"started_at,omitempty"`
	EndedAt      time.Time     `json:"ended_at,omitempty"`
}

// Snapshot は現在の状態のディープコピーを返します。
func (s *GameSession) Snapshot() Snapshot {
	snap := Snapshot{
		ID:           s.ID,
		PlayerName:   s.PlayerName,
		Board:        s.Board, // 配列なので値コピー
		Score:        s.Score,
		LinesCleared: s.LinesCleared,
		Status:       s.Status,
		StartedAt:    s.StartedAt,
		EndedAt:      s.EndedAt,
	}
	if s.CurrentPiece != nil {
		snap.CurrentPiece = s.CurrentPiece.Clone()
	}
	if s.NextPiece != nil {
		snap.NextPiece = s.NextPiece.Clone()
	}
	return snap
}
