package roleflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/artspace/internal/model"
	"github.com/hitoshi/artspace/internal/repository"
)

// SnapshotInvalidator はロール書き込み後にプロフィールキャッシュを
// 無効化するインターフェース。
type SnapshotInvalidator interface {
	Invalidate(userID string)
}

// Executor はサインアップintentのロールをユーザーへ適用する。
// intentの消費は原子的で、同一intentからのロール適用は高々1回しか起きない。
type Executor struct {
	users     repository.UserRepository
	artists   repository.ArtistRepository
	intents   repository.SignupIntentRepository
	snapshots SnapshotInvalidator
	logger    *slog.Logger
	now       func() time.Time
}

// NewExecutor はExecutorを生成する。
func NewExecutor(
	users repository.UserRepository,
	artists repository.ArtistRepository,
	intents repository.SignupIntentRepository,
	snapshots SnapshotInvalidator,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		users:     users,
		artists:   artists,
		intents:   intents,
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
	}
}

// ApplyPendingRole はintentを消費してユーザーのロールを確定する。
// intentが期限切れ・消費済み・ロール未指定の場合はロール未設定のまま成功を返す。
// ロールの書き込みに失敗した場合はエラーを返し、ユーザーはロール未設定のまま残る。
func (e *Executor) ApplyPendingRole(ctx context.Context, userID, intentID string) (model.UserType, error) {
	intent, err := e.intents.Consume(ctx, intentID, e.now())
	if err != nil {
		return model.UserTypeUnset, fmt.Errorf("failed to consume signup intent: %w", err)
	}
	if intent == nil {
		// 消費できないintentはロール選択画面へ委ねる
		e.logger.Info("signup intent not consumable", "intent_id", intentID, "user_id", userID)
		return model.UserTypeUnset, nil
	}
	if !intent.Role.IsValid() {
		return model.UserTypeUnset, nil
	}

	if err := e.users.UpdateUserType(ctx, userID, intent.Role); err != nil {
		return model.UserTypeUnset, fmt.Errorf("failed to update user type: %w", err)
	}

	if intent.Role == model.UserTypeArtist {
		if err := e.ensureArtistProfile(ctx, userID); err != nil {
			return model.UserTypeUnset, err
		}
	}

	// ロール確定前のスナップショットが残っていると古いロールで解決されてしまう
	e.snapshots.Invalidate(userID)

	e.logger.Info("pending role applied", "user_id", userID, "role", intent.Role)

	return intent.Role, nil
}

// ensureArtistProfile はアーティスト詳細行が無ければ空の行を作成する。
func (e *Executor) ensureArtistProfile(ctx context.Context, userID string) error {
	existing, err := e.artists.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find artist profile: %w", err)
	}
	if existing != nil {
		return nil
	}

	nowTime := e.now()
	profile := &model.ArtistProfile{
		ID:        userID,
		CreatedAt: nowTime,
		UpdatedAt: nowTime,
	}
	if err := e.artists.Upsert(ctx, profile); err != nil {
		return fmt.Errorf("failed to create artist profile: %w", err)
	}
	return nil
}
