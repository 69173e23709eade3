package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/hitoshi/artspace/internal/middleware"
	"github.com/hitoshi/artspace/internal/realtime"
)

// RealtimeHandler はWebSocket接続の確立を処理する。
// 接続後のメッセージ処理と行変更イベントの配信はrealtime.Hubが担当する。
type RealtimeHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewRealtimeHandler はRealtimeHandlerを生成する。
// allowedOriginが空の場合はOriginチェックを行わない(開発環境向け)。
func NewRealtimeHandler(hub *realtime.Hub, allowedOrigin string, logger *slog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
		logger: logger,
	}
}

// Serve はHTTP接続をWebSocketにアップグレードしてHubに登録する。
// GET /ws
func (h *RealtimeHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgradeはエラー時に自身でレスポンスを書き込む
		h.logger.Warn("websocket upgrade failed", "error", err, "user_id", userID)
		return
	}

	h.hub.Register(userID, ws)
}
