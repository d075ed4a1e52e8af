package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/services/highscore"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/services/tetris"
)

// wsAuthTimeout はWebSocket接続後の認証メッセージを待つ時間です。
const wsAuthTimeout = 10 * time.Second

// GameHandler はゲームセッション関連のHTTPリクエスト（作成、開始、入力、WebSocket接続）を処理します。
type GameHandler struct {
	sessionManager *tetris.SessionManager
	tokens         *middleware.SessionTokens
	upgrader       websocket.Upgrader
	logger         *zap.Logger
}

// NewGameHandler は新しい GameHandler インスタンスを作成します。
//
// Parameters:
//   sm             : セッションマネージャーへのポインタ
//   tokens         : セッショントークンの発行・検証
//   allowedOrigins : WebSocket接続を許可するオリジン（"*" ですべて許可）
//   logger         : ロガー
func NewGameHandler(sm *tetris.SessionManager, tokens *middleware.SessionTokens, allowedOrigins []string, logger *zap.Logger) *GameHandler {
	h := &GameHandler{
		sessionManager: sm,
		tokens:         tokens,
		logger:         logger.Named("game_handler"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // ブラウザ以外のクライアント
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// WriteErrorResponse はエラーレスポンスをJSON形式で書き込みます。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	WriteJSONResponse(w, statusCode, map[string]string{"error": message})
}

// WriteJSONResponse はJSONレスポンスを書き込みます。
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeSessionError はセッション操作のエラーをステータスコードに変換して書き込みます。
func (h *GameHandler) writeSessionError(w http.ResponseWriter, gameID string, err error) {
	switch {
	case errors.Is(err, tetris.ErrSessionNotFound), errors.Is(err, tetris.ErrLoopClosed):
		WriteErrorResponse(w, http.StatusNotFound, "指定されたゲームは見つかりませんでした")
	case errors.Is(err, tetris.ErrUnknownAction):
		WriteErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tetris.ErrManagerClosed):
		WriteErrorResponse(w, http.StatusServiceUnavailable, "サーバーを停止中です")
	default:
		h.logger.Error("session operation failed", zap.String("game_id", gameID), zap.Error(err))
		WriteErrorResponse(w, http.StatusInternalServerError, "ゲームの操作に失敗しました")
	}
}

// CreateGame は新しいゲームセッションを作成し、そのセッションを操作するためのトークンを返します。
// POST /api/games {"name": "..."}
// name を省略した場合、ゲームオーバー時のスコアは送信されません。
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "リクエストボディのパースに失敗しました")
			return
		}
	}

	name := strings.TrimSpace(req.Name)
	if name != "" {
		var err error
		if name, err = highscore.ValidateScore(name, 0); err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	gameID, err := h.sessionManager.CreateSession(name)
	if err != nil {
		h.writeSessionError(w, "", err)
		return
	}
	token, err := h.tokens.Issue(gameID)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.String("game_id", gameID), zap.Error(err))
		h.sessionManager.EndSession(gameID)
		WriteErrorResponse(w, http.StatusInternalServerError, "ゲームの作成に失敗しました")
		return
	}

	WriteJSONResponse(w, http.StatusCreated, map[string]string{"game_id": gameID, "token": token})
}

// GetGame はゲームの現在の状態を返します。
// GET /api/games/{gameID}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameID"]
	snap, err := h.sessionManager.GetSnapshot(gameID)
	if err != nil {
		h.writeSessionError(w, gameID, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, snap)
}

// StartGame はゲームを開始（またはリスタート）します。
// POST /api/games/{gameID}/start
func (h *GameHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameID"]
	snap, err := h.sessionManager.StartSession(gameID)
	if err != nil {
		h.writeSessionError(w, gameID, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, snap)
}

// ApplyInput はプレイヤーの入力を適用します。
// POST /api/games/{gameID}/input {"action": "move_left"}
func (h *GameHandler) ApplyInput(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameID"]

	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "リクエストボディのパースに失敗しました")
		return
	}

	changed, snap, err := h.sessionManager.ApplyInput(gameID, tetris.Action(req.Action))
	if err != nil {
		h.writeSessionError(w, gameID, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"changed": changed,
		"state":   snap,
	})
}

// EndGame はゲームセッションを終了して削除します。
// DELETE /api/games/{gameID}
func (h *GameHandler) EndGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameID"]
	if err := h.sessionManager.EndSession(gameID); err != nil {
		h.writeSessionError(w, gameID, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "ゲームを終了しました", "game_id": gameID})
}

// HandleWebSocketConnection はHTTP接続をWebSocketプロトコルにアップグレードし、
// 最初のメッセージ {"type":"auth","token":"..."} で認証した後、接続をセッションマネージャーに引き渡します。
// GET /api/games/{gameID}/ws
func (h *GameHandler) HandleWebSocketConnection(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameID"]
	if _, err := h.sessionManager.GetSnapshot(gameID); err != nil {
		h.writeSessionError(w, gameID, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade to websocket", zap.String("game_id", gameID), zap.Error(err))
		return
	}
	// ここでは閉じない。登録後は SessionManager が管理する。

	conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	var authMsg struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	if err := conn.ReadJSON(&authMsg); err != nil {
		h.logger.Debug("failed to read auth message", zap.String("game_id", gameID), zap.Error(err))
		conn.Close()
		return
	}
	if authMsg.Type != "auth" {
		conn.WriteJSON(map[string]string{"type": "error", "error": "Expected auth message"})
		conn.Close()
		return
	}
	tokenGameID, err := h.tokens.Verify(authMsg.Token)
	if err != nil || tokenGameID != gameID {
		conn.WriteJSON(map[string]string{"type": "error", "error": "Invalid token"})
		conn.Close()
		return
	}
	conn.SetReadDeadline(time.Time{})
	conn.WriteJSON(map[string]string{"type": "auth_success"})

	if err := h.sessionManager.RegisterClient(gameID, conn); err != nil {
		h.logger.Warn("failed to register client", zap.String("game_id", gameID), zap.Error(err))
		conn.Close()
	}
}
