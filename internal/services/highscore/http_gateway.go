package highscore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/models"
)

// HTTPGateway はゲームサーバーのREST API (/api/scores) を呼び出すクライアント側のゲートウェイです。
// 再送は行いません。失敗は呼び出し元に返します。
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// StatusError はAPIが2xx以外を返したときのエラーです。
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("high score api returned %d: %s", e.StatusCode, e.Message)
}

// NewHTTPGateway は新しいHTTPGatewayを作成します。client が nil の場合は10秒タイムアウトのクライアントを使います。
func NewHTTPGateway(baseURL string, client *http.Client) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPGateway{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (g *HTTPGateway) SubmitScore(ctx context.Context, name string, score int) error {
	body, err := json.Marshal(models.ScoreRequest{Name: name, Score: score})
	if err != nil {
		return fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/scores", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, nil)
}

// ListScores はサーバーに保存されたすべてのスコアを順位順に取得します。
func (g *HTTPGateway) ListScores(ctx context.Context) ([]models.HighScoreResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/scores?limit=all", nil)
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	var out struct {
		Scores []models.HighScoreResponse `json:"scores"`
	}
	if err := g.do(req, &out); err != nil {
		return nil, err
	}
	return out.Scores, nil
}

func (g *HTTPGateway) do(req *http.Request, out interface{}) error {
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("high score api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("レスポンスのデコードに失敗しました: %w", err)
	}
	return nil
}
