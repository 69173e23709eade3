// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/artspace/internal/model"
)

// UserRepository はユーザー（プロフィール）データの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザー（プロフィール行込み）を作成する。
	// メールアドレス重複時は一意制約違反のエラーを返す。
	Create(ctx context.Context, user *model.User) error

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	// OAuth初回サインイン時に使用する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile はfull_name、avatar_urlを更新する。
	UpdateProfile(ctx context.Context, id, fullName, avatarURL string) error

	// UpdateUserType はuser_typeを更新する。
	UpdateUserType(ctx context.Context, id string, userType model.UserType) error

	// UpdateProfileComplete はis_profile_completeフラグを更新する。
	UpdateProfileComplete(ctx context.Context, id string, complete bool) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、sessions、artist_profiles、bookingsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)

	// Create はidentityを作成する。既存ユーザーへのIdP連携追加に使用する。
	Create(ctx context.Context, identity *model.Identity) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// SignupIntentRepository はサインアップintentの永続化インターフェース。
// OAuthリダイレクト往復をまたぐ役割指定の受け渡しに使用する。
type SignupIntentRepository interface {
	// Create はintentを作成する。
	Create(ctx context.Context, intent *model.SignupIntent) error

	// Consume は未消費かつ期限内のintentを原子的に消費済みにして返す。
	// 消費できない（存在しない・期限切れ・消費済み）場合はnilを返す。
	// 同一intentへの並行Consumeは高々1回だけ成功する。
	Consume(ctx context.Context, id string, now time.Time) (*model.SignupIntent, error)
}

// ArtistRepository はアーティスト詳細プロフィールの永続化インターフェース。
type ArtistRepository interface {
	// FindByID は指定IDのアーティスト詳細を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ArtistProfile, error)

	// Upsert はアーティスト詳細をid競合キーでUPSERTする。
	Upsert(ctx context.Context, profile *model.ArtistProfile) error

	// ListWithProfiles は全アーティストのディレクトリ表示用結合行を返す。
	// user_type = artistのプロフィールとartist_profiles、art_formsをJOINする。
	ListWithProfiles(ctx context.Context) ([]model.ArtistListing, error)
}

// ArtFormRepository はアートカテゴリカタログの読み取りインターフェース。
type ArtFormRepository interface {
	// List は全アートカテゴリを返す。
	List(ctx context.Context) ([]model.ArtForm, error)
}

// BookingRepository は予約データの永続化インターフェース。
type BookingRepository interface {
	// Create は予約を作成する。
	Create(ctx context.Context, booking *model.Booking) error

	// FindByID は指定IDの予約を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Booking, error)

	// ListByCustomerID はクライアントの予約一覧を作成日時降順で返す。
	ListByCustomerID(ctx context.Context, customerID string) ([]*model.Booking, error)

	// ListByArtistID はアーティスト宛の予約一覧を作成日時降順で返す。
	ListByArtistID(ctx context.Context, artistID string) ([]*model.Booking, error)

	// UpdateStatus は予約のステータスを更新する。
	UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
