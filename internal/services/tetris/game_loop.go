package tetris

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/models/tetris"
)

var (
	// ErrLoopClosed は Close 済みの GameLoop を操作した場合のエラーです。
	ErrLoopClosed = errors.New("game loop closed")
	// ErrNoPlayerName はプレイヤー名がないためスコアを送信しなかったことを表します。
	ErrNoPlayerName = errors.New("no player name, score not submitted")
	// ErrNoGateway はスコアの送信先が設定されていないことを表します。
	ErrNoGateway = errors.New("no high score gateway configured")
)

// DefaultSubmitTimeout はハイスコア送信1回あたりのタイムアウトです。
const DefaultSubmitTimeout = 10 * time.Second

// Renderer はゲーム状態を描画する外部の協調者です。
// Render は GameLoop のゴルーチンから呼ばれるので、GameLoop のメソッドを同期的に呼んではいけません。
type Renderer interface {
	Render(Snapshot)
}

// RendererFunc は関数を Renderer として使うためのアダプターです。
type RendererFunc func(Snapshot)

func (f RendererFunc) Render(s Snapshot) { f(s) }

// ScoreSubmitter はゲームオーバー時にスコアを受け取る送信先です（highscore.Gateway が満たします）。
type ScoreSubmitter interface {
	SubmitScore(ctx context.Context, name string, score int) error
}

// SubmitResult はゲームオーバー時のスコア送信の結果です。
type SubmitResult struct {
	SessionID string
	Game      int // セッション内で何回目のゲームか
	Name      string
	Score     int
	Err       error
}

// LoopConfig は GameLoop の設定です。
type LoopConfig struct {
	TickInterval  time.Duration // 自動落下の間隔（0 の場合は tetris.TickInterval）
	Renderer      Renderer
	Submitter     ScoreSubmitter
	SubmitTimeout time.Duration
	OnSubmitted   func(SubmitResult) // 送信完了時に送信用ゴルーチンから呼ばれます
	Logger        *zap.Logger
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdInput
	cmdTick
	cmdSnapshot
)

type command struct {
	kind   commandKind
	action Action
	reply  chan commandResult
}

type commandResult struct {
	changed  bool
	snapshot Snapshot
}

// GameLoop は1つの GameSession を所有するアクターです。
// 重力のティック・プレイヤー入力・開始コマンドはすべて1つのゴルーチンで順番に処理されるため、
// ゲーム状態の変更が並行して走ることはありません。
type GameLoop struct {
	session *GameSession
	cfg     LoopConfig
	logger  *zap.Logger

	commands    chan command
	quit        chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
	submissions chan SubmitResult
	pending     sync.WaitGroup
}

// NewGameLoop は GameLoop を作成し、メインループをバックグラウンドで開始します。
// ループは idle 状態で始まり、Start が呼ばれるまでティックしません。
func NewGameLoop(session *GameSession, cfg LoopConfig) *GameLoop {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = tetris.TickInterval
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = DefaultSubmitTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	l := &GameLoop{
		session:     session,
		cfg:         cfg,
		logger:      cfg.Logger.Named("game_loop").With(zap.String("session_id", session.ID)),
		commands:    make(chan command),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		submissions: make(chan SubmitResult, 16),
	}
	go l.run()
	return l
}

// run は GameLoop のメインイベントループです。
func (l *GameLoop) run() {
	defer close(l.done)

	var ticker *time.Ticker
	var tickC <-chan time.Time
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
			tickC = nil
		}
	}
	defer stopTicker()

	for {
		select {
		case <-tickC:
			l.tick()
		case cmd := <-l.commands:
			if cmd.kind == cmdStart {
				// リスタート時はティックの位相もリセットする
				stopTicker()
			}
			cmd.reply <- l.handle(cmd)
		case <-l.quit:
			return
		}

		// running の間だけティックする
		switch {
		case l.session.Status == StatusRunning && ticker == nil:
			ticker = time.NewTicker(l.cfg.TickInterval)
			tickC = ticker.C
		case l.session.Status != StatusRunning:
			stopTicker()
		}
	}
}

func (l *GameLoop) handle(cmd command) commandResult {
	switch cmd.kind {
	case cmdStart:
		l.session.Start()
		l.logger.Info("game started", zap.Int("game", l.session.Games))
		l.render()
		return commandResult{changed: true, snapshot: l.session.Snapshot()}
	case cmdInput:
		if !l.session.IsRunning() {
			return commandResult{snapshot: l.session.Snapshot()}
		}
		changed := ApplyPlayerInput(l.session, cmd.action)
		l.render()
		if l.session.Status == StatusOver {
			l.gameOver()
		}
		return commandResult{changed: changed, snapshot: l.session.Snapshot()}
	case cmdTick:
		changed := l.tick()
		return commandResult{changed: changed, snapshot: l.session.Snapshot()}
	default:
		return commandResult{snapshot: l.session.Snapshot()}
	}
}

// tick は重力による1マス落下を行い、描画します。
func (l *GameLoop) tick() bool {
	if !l.session.IsRunning() {
		return false
	}
	_, over := l.session.MoveDown()
	l.render()
	if over {
		l.gameOver()
	}
	return true
}

func (l *GameLoop) render() {
	if l.cfg.Renderer != nil {
		l.cfg.Renderer.Render(l.session.Snapshot())
	}
}

// gameOver は running → over の遷移時に1度だけ呼ばれ、スコア送信を非同期タスクとして開始します。
// 送信の成否はゲーム状態に影響しません。
func (l *GameLoop) gameOver() {
	result := SubmitResult{
		SessionID: l.session.ID,
		Game:      l.session.Games,
		Name:      l.session.PlayerName,
		Score:     l.session.Score,
	}
	l.logger.Info("game over",
		zap.Int("game", result.Game),
		zap.Int("score", result.Score),
		zap.Int("lines_cleared", l.session.LinesCleared),
	)

	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		result.Err = l.submit(result.Name, result.Score)
		if result.Err != nil {
			l.logger.Warn("high score submission failed", zap.Int("game", result.Game), zap.Error(result.Err))
		} else {
			l.logger.Info("high score submitted", zap.Int("game", result.Game), zap.String("name", result.Name))
		}
		if l.cfg.OnSubmitted != nil {
			l.cfg.OnSubmitted(result)
		}
		select {
		case l.submissions <- result:
		default:
			l.logger.Warn("submission result dropped, channel full")
		}
	}()
}

func (l *GameLoop) submit(name string, score int) error {
	if l.cfg.Submitter == nil {
		return ErrNoGateway
	}
	if name == "" {
		return ErrNoPlayerName
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.SubmitTimeout)
	defer cancel()
	return l.cfg.Submitter.SubmitScore(ctx, name, score)
}

func (l *GameLoop) send(kind commandKind, action Action) (commandResult, error) {
	cmd := command{kind: kind, action: action, reply: make(chan commandResult, 1)}
	select {
	case l.commands <- cmd:
	case <-l.done:
		return commandResult{}, ErrLoopClosed
	}
	return <-cmd.reply, nil
}

// Start はゲームを開始（ゲームオーバー後や実行中ならリスタート）します。
func (l *GameLoop) Start() (Snapshot, error) {
	res, err := l.send(cmdStart, "")
	return res.snapshot, err
}

// Input はプレイヤーの入力を適用します。状態が変わった場合は true を返します。
func (l *GameLoop) Input(action Action) (bool, Snapshot, error) {
	res, err := l.send(cmdInput, action)
	return res.changed, res.snapshot, err
}

// Tick はタイマーを待たずに重力のティックを1回実行します。
func (l *GameLoop) Tick() (Snapshot, error) {
	res, err := l.send(cmdTick, "")
	return res.snapshot, err
}

// Snapshot は現在のゲーム状態のコピーを返します。
func (l *GameLoop) Snapshot() (Snapshot, error) {
	res, err := l.send(cmdSnapshot, "")
	return res.snapshot, err
}

// Submissions はスコア送信結果を受け取るチャネルを返します。
func (l *GameLoop) Submissions() <-chan SubmitResult {
	return l.submissions
}

// WaitSubmissions は実行中のスコア送信がすべて終わるまで待ちます。
func (l *GameLoop) WaitSubmissions() {
	l.pending.Wait()
}

// Close はメインループを停止します。複数回呼んでも安全です。
// 実行中のスコア送信は中断しません。
func (l *GameLoop) Close() {
	l.closeOnce.Do(func() {
		close(l.quit)
	})
	<-l.done
}
