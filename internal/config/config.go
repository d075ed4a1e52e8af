package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/models/tetris"
)

// Config はサーバーの設定です。環境変数から読み込みます。
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string // 空の場合はメモリ上のスコアストアを使用
	SessionTokenSecret string // 空の場合は起動ごとにランダムな値を生成
	TickInterval       time.Duration
	CORSAllowedOrigins []string
	ScoreListLimit     int

	// EnvFileErr は .env の読み込みに失敗した場合のエラーです（本番環境では無視してよい）。
	EnvFileErr error
}

// IsProduction は本番環境かどうかを返します。
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load は APP_ENV が production 以外なら .env を読み込んだ上で、環境変数から設定を作成します。
func Load() (*Config, error) {
	cfg := &Config{AppEnv: os.Getenv("APP_ENV")}
	if !cfg.IsProduction() {
		cfg.EnvFileErr = godotenv.Load()
	}
	return cfg, cfg.fromEnv()
}

func (c *Config) fromEnv() error {
	c.Port = getenv("PORT", "8080")
	c.DatabaseURL = os.Getenv("DATABASE_URL")
	c.SessionTokenSecret = os.Getenv("SESSION_TOKEN_SECRET")

	interval, err := time.ParseDuration(getenv("TICK_INTERVAL", tetris.TickInterval.String()))
	if err != nil {
		return fmt.Errorf("invalid TICK_INTERVAL: %w", err)
	}
	if interval <= 0 {
		return fmt.Errorf("invalid TICK_INTERVAL: must be positive, got %s", interval)
	}
	c.TickInterval = interval

	c.CORSAllowedOrigins = nil
	for _, origin := range strings.Split(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			c.CORSAllowedOrigins = append(c.CORSAllowedOrigins, origin)
		}
	}

	limit, err := strconv.Atoi(getenv("SCORE_LIST_LIMIT", "50"))
	if err != nil || limit <= 0 {
		return fmt.Errorf("invalid SCORE_LIST_LIMIT: %q", os.Getenv("SCORE_LIST_LIMIT"))
	}
	c.ScoreListLimit = limit
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
