// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザー入力の自由記述テキスト（アーティストの
// 自己紹介、予約の備考）をサニタイズし、XSS攻撃などのセキュリティリスクから
// 閲覧者を保護する。bluemondayライブラリを使用した許可リストベースの
// ポリシーで、最小限の整形タグのみを通過させる。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は自由記述テキストのサニタイズ機能のインターフェースを定義する。
// プロフィール更新・予約作成時の保存前に使用される。
type ContentSanitizerService interface {
	// Sanitize は入力テキストをサニタイズして安全な文字列を返す。
	// 整形タグ（p, br, strong, em）のみを通過させ、
	// script, iframe, style, img タグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, strong, em
//   - それ以外のタグ（script, iframe, style, img, a等）は許可リストに
//     含めないことで自動的に除去される
//   - on*イベント属性はbluemondayのデフォルトで許可されないため除去される
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	// 自己紹介・備考はほぼプレーンテキストの想定。リンクや画像の埋め込みは
	// 許可せず、段落と強調のみ残す。
	p.AllowElements("p", "br", "strong", "em")

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize は入力テキストをサニタイズして安全な文字列を返す。
// サニタイズ後の前後空白は除去する。
func (s *contentSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

// compile-time interface check
var _ ContentSanitizerService = (*contentSanitizer)(nil)
