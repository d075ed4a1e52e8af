package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProtectedRouter(t *testing.T, tokens *SessionTokens) *mux.Router {
	t.Helper()
	r := mux.NewRouter()
	protected := r.PathPrefix("/api/games/{gameID}").Subrouter()
	protected.Use(tokens.Middleware)
	protected.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		gameID, ok := GetGameIDFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(gameID))
	}).Methods(http.MethodPost)
	return r
}

func TestSessionTokens_IssueAndVerify(t *testing.T) {
	tokens, err := NewSessionTokens("secret", zap.NewNop())
	require.NoError(t, err)

	token, err := tokens.Issue("game-1")
	require.NoError(t, err)

	gameID, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "game-1", gameID)

	gameID, err = tokens.Verify("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "game-1", gameID)
}

func TestSessionTokens_Rejects(t *testing.T) {
	tokens, err := NewSessionTokens("secret", zap.NewNop())
	require.NoError(t, err)
	other, err := NewSessionTokens("another-secret", zap.NewNop())
	require.NoError(t, err)

	_, err = tokens.Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)

	forged, err := other.Issue("game-1")
	require.NoError(t, err)
	_, err = tokens.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// 期限切れ
	tokens.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expired, err := tokens.Issue("game-1")
	require.NoError(t, err)
	tokens.now = time.Now
	_, err = tokens.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// HMAC 以外のアルゴリズム
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "game-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tokens.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionTokens_RandomSecretWhenUnset(t *testing.T) {
	a, err := NewSessionTokens("", nil)
	require.NoError(t, err)
	b, err := NewSessionTokens("", nil)
	require.NoError(t, err)

	token, err := a.Issue("game-1")
	require.NoError(t, err)
	_, err = b.Verify(token)
	assert.Error(t, err)
}

func TestSessionTokens_Middleware(t *testing.T) {
	tokens, err := NewSessionTokens("secret", zap.NewNop())
	require.NoError(t, err)
	router := newProtectedRouter(t, tokens)

	token, err := tokens.Issue("game-1")
	require.NoError(t, err)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
	}{
		{"valid token", "/api/games/game-1/start", "Bearer " + token, http.StatusOK},
		{"missing header", "/api/games/game-1/start", "", http.StatusUnauthorized},
		{"wrong scheme", "/api/games/game-1/start", "Token " + token, http.StatusUnauthorized},
		{"garbage token", "/api/games/game-1/start", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"other game", "/api/games/game-2/start", "Bearer " + token, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "game-1", rec.Body.String())
			}
		})
	}
}

func TestCORSHandler(t *testing.T) {
	h := CORSHandler([]string{"http://localhost:3000"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/scores", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/scores", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
