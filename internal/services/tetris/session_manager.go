package tetris

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/models/tetris"
)

var (
	// ErrSessionNotFound は指定したIDのセッションが存在しない場合のエラーです。
	ErrSessionNotFound = errors.New("game session not found")
	// ErrUnknownAction は未知の入力操作を受け取った場合のエラーです。
	ErrUnknownAction = errors.New("unknown action")
	// ErrManagerClosed は Shutdown 済みの SessionManager を操作した場合のエラーです。
	ErrManagerClosed = errors.New("session manager is shut down")
)

const (
	clientSendBuffer = 256
	readLimit        = 1024
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	writeWait        = 10 * time.Second
)

// Client はWebSocket接続を持つ単一のクライアントを表します。
type Client struct {
	SessionID string          // このクライアントが観戦・操作しているセッションのID
	Conn      *websocket.Conn // クライアントとの実際のWebSocketコネクション
	Send      chan []byte     // クライアントへメッセージを送信するためのバッファ付きチャネル
	closed    bool            // チャネルが閉じられたかどうかのフラグ
	mu        sync.Mutex      // closedフラグ保護用
	logger    *zap.Logger
}

// SafeSend は安全にチャネルにメッセージを送信します（closedチェック付き）
func (c *Client) SafeSend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.Send <- message:
		return true
	default:
		return false // チャネルがフル
	}
}

// SafeClose は安全にチャネルを閉じます
func (c *Client) SafeClose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.Send)
		c.closed = true
	}
}

// ServerMessage はWebSocketでクライアントに送るメッセージです。
type ServerMessage struct {
	Type  string    `json:"type"` // state / score_submitted / session_ended
	State *Snapshot `json:"state,omitempty"`
	Game  int       `json:"game,omitempty"`
	Score *int      `json:"score,omitempty"`
	Error string    `json:"error,omitempty"`
}

// ClientMessage はクライアントから受け取るメッセージです。
// {"action": "move_left"} は入力、{"type": "start"} は開始・リスタートを表します。
type ClientMessage struct {
	Type   string `json:"type,omitempty"`
	Action string `json:"action,omitempty"`
}

type broadcastEvent struct {
	sessionID string
	payload   []byte
	final     bool // 送信後にセッションのクライアントをすべて切断する
}

// ManagerConfig は SessionManager の設定です。
type ManagerConfig struct {
	TickInterval time.Duration
	Submitter    ScoreSubmitter // ゲームオーバー時のスコア送信先（サーバー側の highscore.Gateway）
	Logger       *zap.Logger
}

// SessionManager はサーバー上のゲームセッション（GameLoop）と、それを表示する
// WebSocketクライアントを管理します。クライアントの登録・解除とブロードキャストは
// Run のゴルーチンだけが行います。
type SessionManager struct {
	sessions map[string]*GameLoop // sessionID -> GameLoop
	mu       sync.RWMutex         // sessions マップの保護用

	clients    map[string]map[*Client]struct{} // sessionID -> 接続中のクライアント（Run のゴルーチン専用）
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastEvent
	quit       chan struct{}
	done       chan struct{}
	closeOnce  sync.Once

	cfg    ManagerConfig
	logger *zap.Logger
}

// NewSessionManager は新しい SessionManager を作成し、メインイベントループをバックグラウンドで開始します。
func NewSessionManager(cfg ManagerConfig) *SessionManager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	sm := &SessionManager{
		sessions:   make(map[string]*GameLoop),
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastEvent, 512),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		cfg:        cfg,
		logger:     cfg.Logger.Named("session_manager"),
	}
	go sm.Run()
	return sm
}

// Run は SessionManager のメインイベントループです。
func (sm *SessionManager) Run() {
	defer close(sm.done)

	for {
		select {
		case client := <-sm.register:
			set, ok := sm.clients[client.SessionID]
			if !ok {
				set = make(map[*Client]struct{})
				sm.clients[client.SessionID] = set
			}
			set[client] = struct{}{}
			sm.logger.Debug("client registered", zap.String("session_id", client.SessionID), zap.Int("clients", len(set)))

		case client := <-sm.unregister:
			sm.removeClient(client)

		case event := <-sm.broadcast:
			for client := range sm.clients[event.sessionID] {
				if !client.SafeSend(event.payload) {
					sm.logger.Warn("failed to send to client, dropping", zap.String("session_id", event.sessionID))
					sm.removeClient(client)
				}
			}
			if event.final {
				for client := range sm.clients[event.sessionID] {
					sm.removeClient(client)
				}
			}

		case <-sm.quit:
			for _, set := range sm.clients {
				for client := range set {
					client.SafeClose()
				}
			}
			sm.clients = make(map[string]map[*Client]struct{})
			sm.logger.Info("main loop stopped")
			return
		}
	}
}

func (sm *SessionManager) removeClient(client *Client) {
	set, ok := sm.clients[client.SessionID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	client.SafeClose()
	delete(set, client)
	if len(set) == 0 {
		delete(sm.clients, client.SessionID)
	}
	sm.logger.Debug("client unregistered", zap.String("session_id", client.SessionID))
}

// publish はメッセージをセッションのクライアントに配信するようキューに入れます。
// GameLoop のゴルーチンから呼ばれるため、ブロックしません。
func (sm *SessionManager) publish(sessionID string, msg ServerMessage, final bool) {
	payload, err := json.Marshal(msg)
	if err != nil {
		sm.logger.Error("failed to marshal message", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	select {
	case sm.broadcast <- broadcastEvent{sessionID: sessionID, payload: payload, final: final}:
	case <-sm.quit:
	default:
		sm.logger.Warn("broadcast channel full, skipping update", zap.String("session_id", sessionID))
	}
}

// CreateSession は新しいゲームセッションを idle 状態で作成します。
//
// Parameters:
//   playerName : ゲームオーバー時にハイスコアとして登録する名前
// Returns:
//   string: 作成されたセッションのID
//   error : エラーが発生した場合
func (sm *SessionManager) CreateSession(playerName string) (string, error) {
	select {
	case <-sm.quit:
		return "", ErrManagerClosed
	default:
	}

	id := uuid.NewString()
	session := NewGameSession(id, playerName, tetris.NewSeededPieceFactory(time.Now().UnixNano()))
	loop := NewGameLoop(session, LoopConfig{
		TickInterval: sm.cfg.TickInterval,
		Submitter:    sm.cfg.Submitter,
		Logger:       sm.cfg.Logger,
		Renderer: RendererFunc(func(s Snapshot) {
			sm.publish(id, ServerMessage{Type: "state", State: &s}, false)
		}),
		OnSubmitted: func(r SubmitResult) {
			msg := ServerMessage{Type: "score_submitted", Game: r.Game, Score: &r.Score}
			if r.Err != nil {
				msg.Error = r.Err.Error()
			}
			sm.publish(id, msg, false)
		},
	})

	sm.mu.Lock()
	sm.sessions[id] = loop
	sm.mu.Unlock()

	sm.logger.Info("session created", zap.String("session_id", id), zap.String("player_name", playerName))
	return id, nil
}

func (sm *SessionManager) loop(id string) (*GameLoop, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	loop, ok := sm.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return loop, nil
}

// StartSession はゲームを開始します。ゲームオーバー後や実行中に呼ぶとリスタートになります。
func (sm *SessionManager) StartSession(id string) (Snapshot, error) {
	loop, err := sm.loop(id)
	if err != nil {
		return Snapshot{}, err
	}
	return loop.Start()
}

// ApplyInput はプレイヤーの入力をセッションに適用します。
// Returns:
//   bool    : ゲーム状態が変わった場合はtrue
//   Snapshot: 適用後の状態
func (sm *SessionManager) ApplyInput(id string, action Action) (bool, Snapshot, error) {
	if _, ok := ParseAction(string(action)); !ok {
		return false, Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	loop, err := sm.loop(id)
	if err != nil {
		return false, Snapshot{}, err
	}
	return loop.Input(action)
}

// GetSnapshot はセッションの現在の状態を返します。
func (sm *SessionManager) GetSnapshot(id string) (Snapshot, error) {
	loop, err := sm.loop(id)
	if err != nil {
		return Snapshot{}, err
	}
	return loop.Snapshot()
}

// EndSession はセッションのループを停止して削除し、接続中のクライアントに終了を通知して切断します。
// 送信中のハイスコアは中断しません。
func (sm *SessionManager) EndSession(id string) error {
	sm.mu.Lock()
	loop, ok := sm.sessions[id]
	delete(sm.sessions, id)
	sm.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	loop.Close()
	sm.publish(id, ServerMessage{Type: "session_ended"}, true)
	sm.logger.Info("session ended", zap.String("session_id", id))
	return nil
}

// SessionCount は現在のセッション数を返します。
func (sm *SessionManager) SessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// RegisterClient は認証済みのWebSocket接続をセッションに登録し、読み書きのゴルーチンを開始します。
// 登録直後に現在の状態を1度送信します。
//
// Parameters:
//   sessionID : クライアントが接続するセッションのID
//   conn      : WebSocketコネクション
// Returns:
//   error: セッションが存在しない場合は ErrSessionNotFound
func (sm *SessionManager) RegisterClient(sessionID string, conn *websocket.Conn) error {
	loop, err := sm.loop(sessionID)
	if err != nil {
		return err
	}

	client := &Client{
		SessionID: sessionID,
		Conn:      conn,
		Send:      make(chan []byte, clientSendBuffer),
		logger:    sm.logger.With(zap.String("session_id", sessionID)),
	}

	select {
	case sm.register <- client:
	case <-sm.quit:
		return ErrManagerClosed
	}

	go sm.readPump(client)
	go client.writePump()

	if snap, err := loop.Snapshot(); err == nil {
		sm.publish(sessionID, ServerMessage{Type: "state", State: &snap}, false)
	}
	return nil
}

// readPump はクライアントからのWebSocketメッセージを読み込み、セッションに適用します。
func (sm *SessionManager) readPump(client *Client) {
	defer func() {
		select {
		case sm.unregister <- client:
		case <-sm.done:
		}
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(readLimit)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				client.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		if err := sm.handleClientMessage(client.SessionID, msg); err != nil {
			client.logger.Debug("ignored client message", zap.Error(err))
			if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrLoopClosed) {
				return
			}
		}
	}
}

func (sm *SessionManager) handleClientMessage(sessionID string, msg ClientMessage) error {
	switch {
	case msg.Type == "start":
		_, err := sm.StartSession(sessionID)
		return err
	case msg.Action != "":
		_, _, err := sm.ApplyInput(sessionID, Action(msg.Action))
		return err
	default:
		return fmt.Errorf("unsupported message type %q", msg.Type)
	}
}

// writePump は Client の Send チャネルからのメッセージをWebSocketコネクションに書き込みます。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// マネージャーがチャネルを閉じた
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("websocket write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Shutdown はすべてのセッションを停止し、接続中のクライアントを切断します。
// 実行中のハイスコア送信が終わるまで待ちます。複数回呼んでも安全です。
func (sm *SessionManager) Shutdown() {
	sm.closeOnce.Do(func() {
		sm.logger.Info("shutting down")

		sm.mu.Lock()
		loops := make([]*GameLoop, 0, len(sm.sessions))
		for id, loop := range sm.sessions {
			loops = append(loops, loop)
			delete(sm.sessions, id)
		}
		sm.mu.Unlock()

		for _, loop := range loops {
			loop.Close()
		}
		close(sm.quit)
		<-sm.done
		for _, loop := range loops {
			loop.WaitSubmissions()
		}
		sm.logger.Info("shutdown complete", zap.Int("sessions", len(loops)))
	})
}
