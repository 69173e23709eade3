package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

const (
	// notifyChannel は行変更通知のPostgreSQLチャネル名。
	notifyChannel = "row_changes"

	minReconnectInterval = time.Second
	maxReconnectInterval = 30 * time.Second
	// pingInterval は通知が途絶えた際の接続確認間隔。
	pingInterval = 90 * time.Second
)

// SnapshotInvalidator は行変更を受けてプロフィールキャッシュを
// 無効化するインターフェース。
type SnapshotInvalidator interface {
	Invalidate(userID string)
}

// Listener はpg_notifyの行変更通知を受信してハブへ流す。
// ユーザー・アーティスト行の変更はスナップショットキャッシュも無効化する。
type Listener struct {
	pqListener *pq.Listener
	hub        *Hub
	snapshots  SnapshotInvalidator
	logger     *slog.Logger
}

// NewListener はListenerを生成する。接続イベントはログに記録する。
func NewListener(databaseURL string, hub *Hub, snapshots SnapshotInvalidator, logger *slog.Logger) *Listener {
	pqListener := pq.NewListener(databaseURL, minReconnectInterval, maxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				logger.Warn("postgres listener event", "event", int(ev), "error", err)
			}
		})

	return &Listener{
		pqListener: pqListener,
		hub:        hub,
		snapshots:  snapshots,
		logger:     logger,
	}
}

// Run は通知チャネルの購読を開始し、ctxがキャンセルされるまで受信を続ける。
func (l *Listener) Run(ctx context.Context) error {
	if err := l.pqListener.Listen(notifyChannel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", notifyChannel, err)
	}
	defer l.pqListener.Close()

	l.logger.Info("realtime listener started", "channel", notifyChannel)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("realtime listener stopped")
			return nil
		case notification := <-l.pqListener.Notify:
			// 再接続直後はnilが届く。取りこぼした変更の再同期は
			// クライアント側の再取得に委ねる。
			if notification == nil {
				l.logger.Warn("postgres listener reconnected, events may have been missed")
				continue
			}
			l.handle(notification.Extra)
		case <-ticker.C:
			if err := l.pqListener.Ping(); err != nil {
				l.logger.Warn("postgres listener ping failed", "error", err)
			}
		}
	}
}

// handle は通知ペイロードをパースしてハブへ配信する。
func (l *Listener) handle(payload string) {
	var event ChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		l.logger.Error("failed to parse change notification", "error", err, "payload", payload)
		return
	}

	l.logger.Debug("change event received", "table", event.Table, "op", event.Op, "id", event.ID)

	// スナップショットに載る行の変更はキャッシュを無効化する。
	// 予約はスナップショットに含まれないので対象外。
	switch event.Table {
	case "users", "artist_profiles":
		l.snapshots.Invalidate(event.ID)
	}

	l.hub.Dispatch(event)
}
