package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/api"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/api/handlers"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/logging"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/services/highscore"
	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/services/tetris"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	logger, err := logging.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗しました: %v", err)
	}
	defer logger.Sync()

	if cfg.EnvFileErr != nil {
		logger.Warn("error loading .env file (this is fine in production)", zap.Error(cfg.EnvFileErr))
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DATABASE_URL が無い場合はメモリ上にスコアを保存する
	var (
		scoreRepo database.ScoreRepository
		pinger    handlers.Pinger
	)
	if cfg.DatabaseURL != "" {
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		dbService, err := database.NewDatabaseService(dbCtx, cfg.DatabaseURL, logger)
		if err == nil {
			err = dbService.EnsureSchema(dbCtx)
		}
		cancel()
		if err != nil {
			return err
		}
		defer dbService.Close()
		scoreRepo = database.NewScoreRepository(dbService.DB)
		pinger = dbService.DB
	} else {
		logger.Warn("DATABASE_URL is not set, high scores are kept in memory")
		scoreRepo = database.NewMemoryScoreRepository()
	}

	gateway := highscore.NewRepositoryGateway(scoreRepo)
	sessionManager := tetris.NewSessionManager(tetris.ManagerConfig{
		TickInterval: cfg.TickInterval,
		Submitter:    gateway,
		Logger:       logger,
	})
	defer sessionManager.Shutdown()

	tokens, err := middleware.NewSessionTokens(cfg.SessionTokenSecret, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(api.Deps{
			SessionManager: sessionManager,
			Scores:         gateway,
			Tokens:         tokens,
			DB:             pinger,
			AllowedOrigins: cfg.CORSAllowedOrigins,
			ScoreLimit:     cfg.ScoreListLimit,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.Duration("tick_interval", cfg.TickInterval),
			zap.Strings("cors_allowed_origins", cfg.CORSAllowedOrigins),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
