// Package api はHTTP APIのルーティングを組み立てます。
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/api/handlers"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/services/tetris"
)

// Deps はルーターが必要とする依存関係です。
type Deps struct {
	SessionManager *tetris.SessionManager
	Scores         handlers.ScoreService
	Tokens         *middleware.SessionTokens
	DB             handlers.Pinger // nil の場合はメモリストア
	AllowedOrigins []string
	ScoreLimit     int
	Logger         *zap.Logger
}

// NewRouter はAPIのルーティングを設定した http.Handler を返します。
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	publicHandler := handlers.NewPublicHandler(d.DB, d.SessionManager.SessionCount, logger)
	scoreHandler := handlers.NewScoreHandler(d.Scores, d.ScoreLimit, logger)
	gameHandler := handlers.NewGameHandler(d.SessionManager, d.Tokens, d.AllowedOrigins, logger)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	// 認証不要な公開エンドポイント
	api.HandleFunc("/health", publicHandler.Health).Methods(http.MethodGet)
	api.HandleFunc("/scores", scoreHandler.GetTopScores).Methods(http.MethodGet)
	api.HandleFunc("/scores", scoreHandler.PostScore).Methods(http.MethodPost)
	api.HandleFunc("/games", gameHandler.CreateGame).Methods(http.MethodPost)
	api.HandleFunc("/games/{gameID}", gameHandler.GetGame).Methods(http.MethodGet)
	// WebSocketは接続後の最初のメッセージで認証する
	api.HandleFunc("/games/{gameID}/ws", gameHandler.HandleWebSocketConnection).Methods(http.MethodGet)

	// セッショントークンが必要な操作
	protected := api.PathPrefix("/games/{gameID}").Subrouter()
	protected.Use(d.Tokens.Middleware)
	protected.HandleFunc("/start", gameHandler.StartGame).Methods(http.MethodPost)
	protected.HandleFunc("/input", gameHandler.ApplyInput).Methods(http.MethodPost)
	api.Handle("/games/{gameID}", d.Tokens.Middleware(http.HandlerFunc(gameHandler.EndGame))).Methods(http.MethodDelete)

	return middleware.CORSHandler(d.AllowedOrigins)(r)
}
