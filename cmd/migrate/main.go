// migrate はデータベースへの接続を確認し、ハイスコア用のスキーマを作成します。
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("エラー: 設定の読み込みに失敗しました: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("エラー: DATABASE_URL 環境変数が設定されていません。")
	}

	logger, err := logging.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("エラー: ロガーの初期化に失敗しました: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewDatabaseService(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if version, err := db.ServerVersion(ctx); err != nil {
		logger.Warn("failed to query server version", zap.Error(err))
	} else {
		fmt.Printf("データベースバージョン: %s\n", version)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Error("migration failed", zap.Error(err))
		db.Close()
		os.Exit(1)
	}
	fmt.Println("成功: high_scores テーブルを作成しました（既に存在する場合は変更なし）。")
}
