// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, booking, profile, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeMissingField       = "MISSING_FIELD"
	ErrCodeInvalidRole        = "INVALID_ROLE"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeArtistNotFound     = "ARTIST_NOT_FOUND"
	ErrCodeBookingNotFound    = "BOOKING_NOT_FOUND"
	ErrCodeInvalidTransition  = "INVALID_STATUS_TRANSITION"
	ErrCodeIntentExpired      = "SIGNUP_INTENT_EXPIRED"
	ErrCodeInvalidImageURL    = "INVALID_IMAGE_URL"
	ErrCodeForbidden          = "FORBIDDEN"
)

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メールアドレスの存在有無を区別しない単一のメッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "サインインするか、別のメールアドレスをご利用ください。",
	}
}

// NewMissingFieldError は必須フィールド未入力エラーを生成する。
// ネットワーク・DBアクセスの前段で検出されるバリデーションエラー。
func NewMissingFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingField,
		Message:  fmt.Sprintf("必須項目が入力されていません: %s", field),
		Category: "validation",
		Action:   "必須項目をすべて入力してください。",
	}
}

// NewInvalidRoleError は不正なユーザー役割エラーを生成する。
func NewInvalidRoleError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("無効なユーザー種別です: %s", role),
		Category: "validation",
		Action:   "artist または client のいずれかを指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewArtistNotFoundError はアーティストが見つからない場合のエラーを生成する。
func NewArtistNotFoundError(artistID string) *APIError {
	return &APIError{
		Code:     ErrCodeArtistNotFound,
		Message:  fmt.Sprintf("指定されたアーティストが見つかりません: %s", artistID),
		Category: "profile",
		Action:   "アーティストIDを確認してください。",
	}
}

// NewBookingNotFoundError は予約が見つからない場合のエラーを生成する。
func NewBookingNotFoundError(bookingID string) *APIError {
	return &APIError{
		Code:     ErrCodeBookingNotFound,
		Message:  fmt.Sprintf("指定された予約が見つかりません: %s", bookingID),
		Category: "booking",
		Action:   "予約IDを確認してください。",
	}
}

// NewInvalidTransitionError は許可されていない予約ステータス遷移のエラーを生成する。
func NewInvalidTransitionError(from, to BookingStatus) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTransition,
		Message:  fmt.Sprintf("予約ステータスを %s から %s へ変更することはできません。", from, to),
		Category: "booking",
		Action:   "現在の予約ステータスを確認してください。",
	}
}

// NewIntentExpiredError はサインアップintentの期限切れ・消費済みエラーを生成する。
func NewIntentExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeIntentExpired,
		Message:  "サインアップセッションの有効期限が切れています。",
		Category: "auth",
		Action:   "もう一度サインアップをやり直してください。",
	}
}

// NewInvalidImageURLError はポートフォリオ画像URLが不正な場合のエラーを生成する。
func NewInvalidImageURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImageURL,
		Message:  fmt.Sprintf("無効な画像URLです: %s", reason),
		Category: "validation",
		Action:   "https:// で始まる公開URLを指定してください。",
	}
}

// NewForbiddenError は他ユーザーのリソースへの操作を拒否するエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "自分のアカウントに紐づくリソースのみ操作できます。",
	}
}
