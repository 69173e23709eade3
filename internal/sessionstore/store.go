// Package sessionstore はログイン中ユーザーのプロフィールスナップショットを
// キャッシュする。変更イベントで無効化され、取得中に無効化が走った場合は
// 取得結果を破棄して古いデータの上書きを防ぐ。
package sessionstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/artspace/internal/model"
	"github.com/hitoshi/artspace/internal/repository"
)

// Snapshot はユーザーとアーティスト詳細の一貫した読み取り結果。
// ArtistProfileはユーザーがアーティストでない場合nil。
type Snapshot struct {
	User          *model.User
	ArtistProfile *model.ArtistProfile
}

// Store はユーザーごとのスナップショットキャッシュ。
// 世代カウンタで取得とキャッシュ書き込みの間の無効化を検出する。
type Store struct {
	users   repository.UserRepository
	artists repository.ArtistRepository
	logger  *slog.Logger

	mu    sync.Mutex
	gen   map[string]uint64
	cache map[string]*Snapshot
}

// NewStore はStoreを生成する。
func NewStore(users repository.UserRepository, artists repository.ArtistRepository, logger *slog.Logger) *Store {
	return &Store{
		users:   users,
		artists: artists,
		logger:  logger,
		gen:     make(map[string]uint64),
		cache:   make(map[string]*Snapshot),
	}
}

// Get は指定ユーザーのスナップショットを返す。キャッシュがあればそれを返し、
// なければリポジトリから取得してキャッシュする。取得中にInvalidateが走った
// 場合は取得結果をキャッシュせずそのまま返す(古い世代でキャッシュを汚さない)。
// ユーザーが存在しない場合は(nil, nil)を返す。
func (s *Store) Get(ctx context.Context, userID string) (*Snapshot, error) {
	s.mu.Lock()
	if snap, ok := s.cache[userID]; ok {
		s.mu.Unlock()
		return snap, nil
	}
	startGen := s.gen[userID]
	s.mu.Unlock()

	snap, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen[userID] != startGen {
		// 取得中に無効化された。結果は返すがキャッシュには載せない。
		s.logger.Debug("stale snapshot fetch discarded", "user_id", userID)
		return snap, nil
	}
	s.cache[userID] = snap
	return snap, nil
}

// fetch はリポジトリからスナップショットを構築する。
func (s *Store) fetch(ctx context.Context, userID string) (*Snapshot, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	snap := &Snapshot{User: user}
	if user.UserType == model.UserTypeArtist {
		profile, err := s.artists.FindByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch artist profile: %w", err)
		}
		snap.ArtistProfile = profile
	}
	return snap, nil
}

// Invalidate は指定ユーザーのキャッシュを破棄し、世代を進める。
// プロフィール・ロール変更の書き込み後に呼ぶ。
func (s *Store) Invalidate(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen[userID]++
	delete(s.cache, userID)
}

// Clear はサインアウト時に指定ユーザーのキャッシュを破棄する。
// 世代は削除せずに進める。削除するとゼロ値に戻り、取得中の古い結果が
// 世代チェックをすり抜けてキャッシュされてしまう。
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen[userID]++
	delete(s.cache, userID)
}
