package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger はデータベースの疎通確認を行います（*sql.DB が満たします）。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PublicHandler handles public API endpoints
type PublicHandler struct {
	db       Pinger // nil の場合はメモリストア
	sessions func() int
	logger   *zap.Logger
}

// NewPublicHandler creates a new instance of PublicHandler
func NewPublicHandler(db Pinger, sessions func() int, logger *zap.Logger) *PublicHandler {
	return &PublicHandler{db: db, sessions: sessions, logger: logger.Named("public_handler")}
}

// Health はサーバーの状態を返します。
// GET /api/health
func (h *PublicHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok", "store": "memory"}
	if h.sessions != nil {
		resp["sessions"] = h.sessions()
	}

	if h.db != nil {
		resp["store"] = "postgres"
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Warn("database ping failed", zap.Error(err))
			resp["status"] = "degraded"
			WriteJSONResponse(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	WriteJSONResponse(w, http.StatusOK, resp)
}
