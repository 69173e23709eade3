// Package roleflow はログイン後のユーザー状態から遷移先を決定する状態機械を提供する。
package roleflow

import (
	"sync"

	"github.com/hitoshi/artspace/internal/model"
)

// State はロール解決の状態を表す。
type State int

const (
	// StateUnauthenticated は未ログイン状態。
	StateUnauthenticated State = iota
	// StatePendingRole はログイン済みだがロール未選択の状態。
	StatePendingRole
	// StateIncompleteArtist はアーティストだが詳細プロフィール未完成の状態。
	StateIncompleteArtist
	// StateReady はロール確定かつ必要なプロフィールが揃った状態。
	StateReady
)

// String は状態名を返す。
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StatePendingRole:
		return "pending_role"
	case StateIncompleteArtist:
		return "incomplete_artist"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Observation はロール解決の入力となるユーザーの観測結果。
// ArtistProfileはユーザーがアーティストでない場合nil。
type Observation struct {
	User          *model.User
	ArtistProfile *model.ArtistProfile
}

// Paths は各状態に対応する遷移先パスの設定。
type Paths struct {
	AuthEntry      string
	RoleSelect     string
	CompleteArtist string
	ArtistLanding  string
	ClientLanding  string
}

// Decision はロール解決の結果。
type Decision struct {
	State        State
	RedirectPath string
}

// Resolve は観測結果から状態と遷移先を純粋に導出する。
// アーティストのプロフィール完成判定は保存済みフラグではなく
// 実フィールドから毎回再導出する。
func Resolve(obs Observation, paths Paths) Decision {
	if obs.User == nil {
		return Decision{State: StateUnauthenticated, RedirectPath: paths.AuthEntry}
	}

	switch obs.User.UserType {
	case model.UserTypeClient:
		return Decision{State: StateReady, RedirectPath: paths.ClientLanding}
	case model.UserTypeArtist:
		if obs.ArtistProfile == nil || !obs.ArtistProfile.IsComplete() {
			return Decision{State: StateIncompleteArtist, RedirectPath: paths.CompleteArtist}
		}
		return Decision{State: StateReady, RedirectPath: paths.ArtistLanding}
	default:
		return Decision{State: StatePendingRole, RedirectPath: paths.RoleSelect}
	}
}

// RedirectGuard はユーザーごとに観測状態1つにつきリダイレクトを一度だけ
// 許可するガード。同一状態での再解決によるリダイレクトループを防ぎつつ、
// ロール選択やプロフィール完成で状態が進んだ場合は次のリダイレクトを許可する。
// サインアウト時にReleaseで解除する。
type RedirectGuard struct {
	mu   sync.Mutex
	last map[string]State
}

// NewRedirectGuard はRedirectGuardを生成する。
func NewRedirectGuard() *RedirectGuard {
	return &RedirectGuard{last: make(map[string]State)}
}

// Allow は指定ユーザーの観測状態が前回の許可時から変化していればtrueを返す。
// 同一状態の再解決はfalseを返す。
func (g *RedirectGuard) Allow(userID string, state State) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if prev, ok := g.last[userID]; ok && prev == state {
		return false
	}
	g.last[userID] = state
	return true
}

// Release は指定ユーザーのガードを解除する。サインアウト時に呼ぶ。
func (g *RedirectGuard) Release(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.last, userID)
}
