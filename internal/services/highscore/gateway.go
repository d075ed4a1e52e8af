// Package highscore は名前付きハイスコアの送信・取得を行うゲートウェイを提供します。
package highscore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/models"
)

// MaxNameLength はハイスコアに登録できる名前の最大文字数です。
const MaxNameLength = 32

var (
	ErrInvalidName  = errors.New("name must be 1 to 32 characters")
	ErrInvalidScore = errors.New("score must not be negative")
)

// Gateway はゲームエンジンがゲームオーバー時に通知するハイスコアの保存先です。
// 重複送信はそのまま保存されます（冪等キーは持ちません）。
// ListScores は保存済みのすべてのスコアを順位順に返すので、送信に成功したスコアは次の ListScores に必ず含まれます。
type Gateway interface {
	SubmitScore(ctx context.Context, name string, score int) error
	ListScores(ctx context.Context) ([]models.HighScoreResponse, error)
}

// ValidateScore は送信前の名前とスコアを検証し、正規化した名前を返します。
func ValidateScore(name string, score int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrInvalidName
	}
	if score < 0 {
		return "", ErrInvalidScore
	}
	return name, nil
}

// RepositoryGateway はScoreRepositoryに直接保存するサーバー側のゲートウェイです。
type RepositoryGateway struct {
	repo database.ScoreRepository
}

// NewRepositoryGateway は新しいRepositoryGatewayを作成します。
func NewRepositoryGateway(repo database.ScoreRepository) *RepositoryGateway {
	return &RepositoryGateway{repo: repo}
}

func (g *RepositoryGateway) SubmitScore(ctx context.Context, name string, score int) error {
	_, err := g.Submit(ctx, name, score)
	return err
}

// Submit はスコアを保存し、作成されたレコードを返します。
func (g *RepositoryGateway) Submit(ctx context.Context, name string, score int) (*models.HighScore, error) {
	name, err := ValidateScore(name, score)
	if err != nil {
		return nil, err
	}
	hs, err := g.repo.CreateScore(ctx, name, score)
	if err != nil {
		return nil, fmt.Errorf("スコア保存に失敗しました: %w", err)
	}
	return hs, nil
}

func (g *RepositoryGateway) ListScores(ctx context.Context) ([]models.HighScoreResponse, error) {
	return g.ListTop(ctx, 0)
}

// ListTop は上位limit件のスコアを返します。limit が0以下の場合はすべて返します。
func (g *RepositoryGateway) ListTop(ctx context.Context, limit int) ([]models.HighScoreResponse, error) {
	scores, err := g.repo.GetTopScores(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("ハイスコア取得に失敗しました: %w", err)
	}
	return scores, nil
}
