package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/lib/pq" // PostgreSQLドライバー
	"go.uber.org/zap"
)

// schemaStatements はハイスコア保存に必要なテーブルとインデックスです。
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS high_scores (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT        NOT NULL,
		score      INTEGER     NOT NULL CHECK (score >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS high_scores_ranking_idx ON high_scores (score DESC, created_at ASC)`,
}

// DatabaseService provides methods for interacting with the database.
type DatabaseService struct {
	DB     *sql.DB
	logger *zap.Logger
}

// NewDatabaseService creates a new instance of DatabaseService and establishes a database connection.
func NewDatabaseService(ctx context.Context, databaseURL string, logger *zap.Logger) (*DatabaseService, error) {
	logger = logger.Named("database")
	logger.Info("connecting to database", zap.String("url", redactDatabaseURL(databaseURL)))

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("データベースへの接続オブジェクト作成に失敗しました: %w", err)
	}

	// データベース接続の確認 (Ping)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("データベースのPingに失敗しました。接続情報やネットワークを確認してください: %w", err)
	}

	logger.Info("database connection established")
	return &DatabaseService{DB: db, logger: logger}, nil
}

// EnsureSchema はhigh_scoresテーブルが無ければ作成します。
func (s *DatabaseService) EnsureSchema(ctx context.Context) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("スキーマの作成に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	s.logger.Info("schema ensured")
	return nil
}

// ServerVersion はPostgreSQLのバージョン文字列を返します。
func (s *DatabaseService) ServerVersion(ctx context.Context) (string, error) {
	var version string
	if err := s.DB.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", fmt.Errorf("SELECT version() の実行に失敗しました: %w", err)
	}
	return version, nil
}

// Close はデータベース接続を閉じます。
func (s *DatabaseService) Close() error {
	return s.DB.Close()
}

// redactDatabaseURL はログ出力用にパスワードを伏せた接続先を返します。
// URL形式でない（key=value 形式の）接続文字列は内容を出力しません。
func redactDatabaseURL(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "(redacted)"
	}
	return u.Redacted()
}
