package roleflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/artspace/internal/sessionstore"
)

// SnapshotSource は解決対象ユーザーのスナップショット取得インターフェース。
// sessionstore.Storeの部分集合として定義する。
type SnapshotSource interface {
	Get(ctx context.Context, userID string) (*sessionstore.Snapshot, error)
}

// ResolutionRecorder はロール解決結果のメトリクス記録インターフェース。
type ResolutionRecorder interface {
	RecordRoleResolution(state string)
}

// Resolution はユーザー1人分のロール解決結果。
// ShouldRedirectは観測状態が前回から変化した解決時のみtrueになり、
// クライアント側のリダイレクトループを防ぐ。
type Resolution struct {
	Decision
	ShouldRedirect bool
}

// Resolver はスナップショットの観測からロール解決までをまとめて行う。
type Resolver struct {
	snapshots SnapshotSource
	paths     Paths
	guard     *RedirectGuard
	recorder  ResolutionRecorder
	logger    *slog.Logger
}

// NewResolver はResolverを生成する。
func NewResolver(snapshots SnapshotSource, paths Paths, recorder ResolutionRecorder, logger *slog.Logger) *Resolver {
	return &Resolver{
		snapshots: snapshots,
		paths:     paths,
		guard:     NewRedirectGuard(),
		recorder:  recorder,
		logger:    logger,
	}
}

// ResolveUser は指定ユーザーの現在状態を観測し、遷移先を決定する。
// ユーザーが見つからない場合は未認証として解決する。
func (r *Resolver) ResolveUser(ctx context.Context, userID string) (Resolution, error) {
	obs := Observation{}
	if userID != "" {
		snap, err := r.snapshots.Get(ctx, userID)
		if err != nil {
			return Resolution{}, fmt.Errorf("failed to observe user: %w", err)
		}
		if snap != nil {
			obs.User = snap.User
			obs.ArtistProfile = snap.ArtistProfile
		}
	}

	decision := Resolve(obs, r.paths)
	r.recorder.RecordRoleResolution(decision.State.String())

	res := Resolution{Decision: decision}
	if obs.User != nil {
		res.ShouldRedirect = r.guard.Allow(obs.User.ID, decision.State)
	}

	r.logger.Debug("role resolved",
		"user_id", userID,
		"state", decision.State.String(),
		"redirect_path", decision.RedirectPath,
		"should_redirect", res.ShouldRedirect,
	)

	return res, nil
}

// ReleaseGuard はサインアウト時にユーザーのリダイレクトガードを解除する。
// 次回ログイン時のリダイレクトが再び許可される。
func (r *Resolver) ReleaseGuard(userID string) {
	r.guard.Release(userID)
}
