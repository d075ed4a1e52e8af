package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SessionTokenTTL はセッショントークンの有効期間です。
const SessionTokenTTL = 24 * time.Hour

var (
	ErrMissingToken = errors.New("session token is required")
	ErrInvalidToken = errors.New("invalid session token")
)

// GameIDKey はコンテキストに認証済みのゲームIDを格納するためのキーです。
type GameIDKey struct{}

// GetGameIDFromContext retrieves the authenticated game ID from the context.
func GetGameIDFromContext(ctx context.Context) (string, bool) {
	gameID, ok := ctx.Value(GameIDKey{}).(string)
	return gameID, ok
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// SessionTokens はゲームセッションを操作する権限を表すトークン（HS256 JWT）を発行・検証します。
// トークンの sub クレームがゲームIDです。
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewSessionTokens は SessionTokens を作成します。secret が空の場合はランダムな値を生成し、
// 警告を出力します（再起動すると発行済みのトークンは無効になります）。
func NewSessionTokens(secret string, logger *zap.Logger) (*SessionTokens, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("session_tokens")
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate session token secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		logger.Warn("SESSION_TOKEN_SECRET is not set, using a random secret for this process")
	}
	return &SessionTokens{
		secret: []byte(secret),
		ttl:    SessionTokenTTL,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Issue はゲームIDに対するトークンを発行します。
func (t *SessionTokens) Issue(gameID string) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   gameID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、対象のゲームIDを返します。"Bearer " プレフィックスは取り除きます。
func (t *SessionTokens) Verify(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return "", ErrMissingToken
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		// アルゴリズムがHMACであることを確認
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Middleware はリクエストのセッショントークンを検証するミドルウェアです。
// トークンがない・不正な場合は 401、別のゲームのトークンの場合は 403 を返します。
// 対象のゲームIDはルートの {gameID} から取得します。
func (t *SessionTokens) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSONError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeJSONError(w, http.StatusUnauthorized, "Invalid Authorization header format. Must be 'Bearer <token>'")
			return
		}

		gameID, err := t.Verify(authHeader)
		if err != nil {
			t.logger.Debug("session token rejected", zap.String("path", r.URL.Path), zap.Error(err))
			writeJSONError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		if target := mux.Vars(r)["gameID"]; target != "" && target != gameID {
			writeJSONError(w, http.StatusForbidden, "Token is not valid for this game")
			return
		}

		ctx := context.WithValue(r.Context(), GameIDKey{}, gameID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
