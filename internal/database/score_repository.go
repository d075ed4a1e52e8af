package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/models"
)

// ScoreRepository はハイスコア関連のデータベース操作を定義するインターフェースです。
type ScoreRepository interface {
	// CreateScore は新しいハイスコアレコードを作成します
	CreateScore(ctx context.Context, name string, score int) (*models.HighScore, error)

	// GetTopScores は上位N件のスコアを取得します（ランキング用）。limit が0以下の場合はすべて返します
	GetTopScores(ctx context.Context, limit int) ([]models.HighScoreResponse, error)
}

// scoreRepositoryImpl はPostgreSQL上のScoreRepositoryの実装です。
type scoreRepositoryImpl struct {
	db *sql.DB
}

// NewScoreRepository はPostgreSQLを使うScoreRepositoryの新しいインスタンスを作成します。
func NewScoreRepository(db *sql.DB) ScoreRepository {
	return &scoreRepositoryImpl{db: db}
}

// CreateScore は新しいハイスコアレコードを作成します。
// 同じ名前・同じスコアの重複送信もそのまま保存します。
func (r *scoreRepositoryImpl) CreateScore(ctx context.Context, name string, score int) (*models.HighScore, error) {
	now := time.Now().UTC()
	var id int64

	err := r.db.QueryRowContext(ctx,
		"INSERT INTO high_scores (name, score, created_at) VALUES ($1, $2, $3) RETURNING id",
		name, score, now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("ハイスコアレコードの作成に失敗しました: %w", err)
	}

	return &models.HighScore{
		ID:        id,
		Name:      name,
		Score:     score,
		CreatedAt: now,
	}, nil
}

// GetTopScores は上位N件のスコアを取得します。limit が0以下の場合は LIMIT を付けずにすべて返します。
// 同点の場合は先に登録されたものが上位になります。
func (r *scoreRepositoryImpl) GetTopScores(ctx context.Context, limit int) ([]models.HighScoreResponse, error) {
	query := `
		SELECT
			id, name, score, created_at,
			ROW_NUMBER() OVER (ORDER BY score DESC, created_at ASC, id ASC) AS rank
		FROM high_scores
		ORDER BY score DESC, created_at ASC, id ASC`

	var args []interface{}
	if limit > 0 {
		query += "\n\t\tLIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ハイスコアの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	results := []models.HighScoreResponse{}
	for rows.Next() {
		var result models.HighScoreResponse
		if err := rows.Scan(&result.ID, &result.Name, &result.Score, &result.CreatedAt, &result.Rank); err != nil {
			return nil, fmt.Errorf("ハイスコアデータのスキャンに失敗しました: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ハイスコア取得中にエラーが発生しました: %w", err)
	}

	return results, nil
}
