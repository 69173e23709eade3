// Package model はドメインモデルを定義する。
package model

import "time"

// UserType はユーザーの役割（アーティスト/クライアント）を表す。
type UserType string

const (
	// UserTypeArtist はサービス提供者（アーティスト）を表す。
	UserTypeArtist UserType = "artist"
	// UserTypeClient はサービス利用者（クライアント）を表す。
	UserTypeClient UserType = "client"
	// UserTypeUnset は役割が未選択であることを表す。
	UserTypeUnset UserType = ""
)

// IsValid はユーザー役割として有効な値かどうかを返す。未選択は無効とみなす。
func (t UserType) IsValid() bool {
	return t == UserTypeArtist || t == UserTypeClient
}

// User はサービス利用ユーザーとそのプロフィールを表す。
// アカウント作成と同一トランザクションでプロフィール行が作成される。
// PasswordHashはOAuthのみで登録したユーザーの場合は空。
type User struct {
	ID                string
	Email             string
	FullName          string
	AvatarURL         string
	UserType          UserType
	IsProfileComplete bool
	PasswordHash      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// 将来的に複数のIdP（Google, Apple等）に対応可能な構造。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SignupIntent はOAuthリダイレクト往復をまたいで保持されるサインアップ意図を表す。
// ブラウザローカルストレージによる受け渡しの置き換えで、
// 有効期限と消費フラグを持つ短命な永続レコードとして扱う。
// 一度消費されたintentは再利用できない。
type SignupIntent struct {
	ID         string
	Role       UserType
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// Consumed はintentが既に消費済みかどうかを返す。
func (i *SignupIntent) Consumed() bool {
	return i.ConsumedAt != nil
}

// Expired は指定時刻においてintentが期限切れかどうかを返す。
func (i *SignupIntent) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
