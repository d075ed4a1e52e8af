package models

import (
	"time"
)

// HighScore はhigh_scoresテーブルのレコードに対応する構造体です。
type HighScore struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// HighScoreResponse はランキング表示用のAPIレスポンス構造体です。
type HighScoreResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	Rank      int       `json:"rank"` // ランキング順位
}

// ScoreRequest はスコア保存リクエスト用の構造体です。
type ScoreRequest struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}
