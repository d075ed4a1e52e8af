// blockfall は端末で遊ぶ1人用のテトリスです。
// -server を指定するとゲームオーバー時のスコアを API サーバーに送信し、
// 指定しない場合はこのプロセス内のメモリにランキングを保存します。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/logging"
	modeltetris "github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/models/tetris"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/services/highscore"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/services/tetris"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/terminal"
)

func main() {
	server := flag.String("server", "", "ハイスコアを送信する API サーバーの URL（例: http://localhost:8080）")
	name := flag.String("name", os.Getenv("USER"), "ハイスコアに登録する名前（空の場合は送信しない）")
	seed := flag.Int64("seed", 0, "ピース生成の乱数シード（0 の場合は現在時刻）")
	tick := flag.Duration("tick", modeltetris.TickInterval, "自動落下の間隔")
	logFile := flag.String("log", "", "ログの出力先ファイル（空の場合は出力しない）")
	flag.Parse()

	logger := zap.NewNop()
	if *logFile != "" {
		var err error
		if logger, err = logging.NewFile(*logFile); err != nil {
			log.Fatalf("ロガーの初期化に失敗しました: %v", err)
		}
	}
	defer logger.Sync()

	var gateway highscore.Gateway
	if *server != "" {
		gateway = highscore.NewHTTPGateway(*server, nil)
	} else {
		gateway = highscore.NewRepositoryGateway(database.NewMemoryScoreRepository())
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	if err := run(*name, *seed, *tick, gateway, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(name string, seed int64, tick time.Duration, gateway highscore.Gateway, logger *zap.Logger) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	defer screen.Fini()
	screen.HideCursor()

	view := terminal.NewView(screen)
	session := tetris.NewGameSession("local", name, modeltetris.NewSeededPieceFactory(seed))
	loop := tetris.NewGameLoop(session, tetris.LoopConfig{
		TickInterval: tick,
		Renderer:     view,
		Submitter:    gateway,
		Logger:       logger,
	})
	defer loop.Close()

	go showResults(loop, view, gateway, logger)
	view.Draw()

	for {
		switch ev := screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			screen.Sync()
			view.Draw()
		case *tcell.EventKey:
			command, action := terminal.KeyCommand(ev)
			switch command {
			case terminal.CommandQuit:
				loop.Close()
				// 送信中のスコアは待つ
				loop.WaitSubmissions()
				return nil
			case terminal.CommandStart:
				view.SetMessage("")
				if _, err := loop.Start(); err != nil {
					return err
				}
			case terminal.CommandAction:
				if _, _, err := loop.Input(action); err != nil {
					return err
				}
			}
		}
	}
}

// showResults はスコア送信の結果を表示し、最新のランキングを取得して表示します。
func showResults(loop *tetris.GameLoop, view *terminal.View, gateway highscore.Gateway, logger *zap.Logger) {
	for result := range loop.Submissions() {
		switch {
		case errors.Is(result.Err, tetris.ErrNoPlayerName):
			view.SetMessage("名前が未設定のためスコアは送信されませんでした")
		case result.Err != nil:
			view.SetMessage(fmt.Sprintf("スコアの送信に失敗しました: %v", result.Err))
		default:
			view.SetMessage(fmt.Sprintf("%s のスコア %d を登録しました", result.Name, result.Score))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		scores, err := gateway.ListScores(ctx)
		cancel()
		if err != nil {
			logger.Warn("failed to fetch high scores", zap.Error(err))
			continue
		}
		view.SetScores(scores)
	}
}
