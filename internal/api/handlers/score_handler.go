package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/models"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/services/highscore"
)

// MaxScoreListLimit は1回のランキング取得で返す最大件数です。
const MaxScoreListLimit = 100

// ScoreService はハイスコアの保存と取得を行うサービスです（highscore.RepositoryGateway が満たします）。
type ScoreService interface {
	Submit(ctx context.Context, name string, score int) (*models.HighScore, error)
	ListTop(ctx context.Context, limit int) ([]models.HighScoreResponse, error)
}

// ScoreHandler はハイスコア関連のハンドラーを管理する構造体です。
type ScoreHandler struct {
	scores       ScoreService
	defaultLimit int
	logger       *zap.Logger
}

// NewScoreHandler は新しいScoreHandlerインスタンスを作成します。
func NewScoreHandler(scores ScoreService, defaultLimit int, logger *zap.Logger) *ScoreHandler {
	if defaultLimit <= 0 || defaultLimit > MaxScoreListLimit {
		defaultLimit = 50
	}
	return &ScoreHandler{scores: scores, defaultLimit: defaultLimit, logger: logger.Named("score_handler")}
}

// GetTopScores は上位ランキングを取得するハンドラーです。
// GET /api/scores?limit=50
// limit=all の場合は件数を制限せずにすべてのスコアを返します（HTTPGateway.ListScores が使用）。
func (h *ScoreHandler) GetTopScores(w http.ResponseWriter, r *http.Request) {
	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr == "all" {
		limit = 0
	} else if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= MaxScoreListLimit {
			limit = parsed
		}
	}

	scores, err := h.scores.ListTop(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list scores", zap.Error(err))
		WriteErrorResponse(w, http.StatusInternalServerError, "ハイスコアの取得に失敗しました")
		return
	}
	if scores == nil {
		scores = []models.HighScoreResponse{}
	}

	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"scores":  scores,
	})
}

// PostScore はスコアを保存するハンドラーです。
// POST /api/scores
func (h *ScoreHandler) PostScore(w http.ResponseWriter, r *http.Request) {
	var req models.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "無効なリクエストボディです")
		return
	}

	score, err := h.scores.Submit(r.Context(), req.Name, req.Score)
	switch {
	case errors.Is(err, highscore.ErrInvalidName), errors.Is(err, highscore.ErrInvalidScore):
		WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to save score", zap.String("name", req.Name), zap.Error(err))
		WriteErrorResponse(w, http.StatusInternalServerError, "スコア保存に失敗しました")
		return
	}

	WriteJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"score":   score,
	})
}
