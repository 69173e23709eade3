package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/artspace/internal/model"
)

// PostgresSignupIntentRepo はPostgreSQLを使用したサインアップintentリポジトリ。
type PostgresSignupIntentRepo struct {
	db *sql.DB
}

// NewPostgresSignupIntentRepo はPostgresSignupIntentRepoを生成する。
func NewPostgresSignupIntentRepo(db *sql.DB) *PostgresSignupIntentRepo {
	return &PostgresSignupIntentRepo{db: db}
}

// Create はintentを作成する。
func (r *PostgresSignupIntentRepo) Create(ctx context.Context, intent *model.SignupIntent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO signup_intents (id, role, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		intent.ID, intent.Role, intent.ExpiresAt, intent.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create signup intent: %w", err)
	}
	return nil
}

// Consume は未消費かつ期限内のintentを原子的に消費済みにして返す。
// 消費できない（存在しない・期限切れ・消費済み）場合はnilを返す。
// 条件付きUPDATE ... RETURNINGにより、並行Consumeでも成功は高々1回になる。
func (r *PostgresSignupIntentRepo) Consume(ctx context.Context, id string, now time.Time) (*model.SignupIntent, error) {
	intent := &model.SignupIntent{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE signup_intents
		 SET consumed_at = $2
		 WHERE id = $1 AND consumed_at IS NULL AND expires_at > $2
		 RETURNING id, role, expires_at, consumed_at, created_at`,
		id, now,
	).Scan(&intent.ID, &intent.Role, &intent.ExpiresAt, &intent.ConsumedAt, &intent.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume signup intent: %w", err)
	}

	return intent, nil
}

// compile-time interface check
var _ SignupIntentRepository = (*PostgresSignupIntentRepo)(nil)
