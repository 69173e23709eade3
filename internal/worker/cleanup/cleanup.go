// Package cleanup は認証関連データの自動削除ジョブを提供する。
// 期限切れセッションと、期限切れまたは消費済みのサインアップインテントを
// 日次バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は期限切れ認証データの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db     Executor
	logger *slog.Logger

	// IntentRetention は消費済みインテントを監査目的で残す期間（デフォルト: 24h）。
	IntentRetention time.Duration
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:              db,
		logger:          logger,
		IntentRetention: 24 * time.Hour,
	}
}

// Run は期限切れセッションと不要になったサインアップインテントを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	sessionsDeleted, err := j.exec(ctx,
		`DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		j.logger.Error("session cleanup failed", "error", err)
		return fmt.Errorf("failed to clean up sessions: %w", err)
	}

	intentsDeleted, err := j.exec(ctx,
		`DELETE FROM signup_intents
		 WHERE expires_at < now()
		    OR (consumed_at IS NOT NULL AND consumed_at < now() - $1::interval)`,
		fmt.Sprintf("%d seconds", int(j.IntentRetention.Seconds())))
	if err != nil {
		j.logger.Error("signup intent cleanup failed", "error", err)
		return fmt.Errorf("failed to clean up signup intents: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("cleanup job completed",
		slog.Int64("sessions_deleted", sessionsDeleted),
		slog.Int64("intents_deleted", intentsDeleted),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

func (j *CleanupJob) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := j.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
