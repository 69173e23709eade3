// Package directory はアーティストディレクトリの一覧と絞り込みを提供する。
package directory

import (
	"strings"

	"github.com/hitoshi/artspace/internal/model"
)

// Criteria はディレクトリ絞り込み条件。空のフィールドは条件なしとして扱う。
type Criteria struct {
	// Query は名前・専門分野・活動地域への部分一致(大文字小文字を区別しない)。
	Query string
	// Category はアートカテゴリ名への完全一致(大文字小文字を区別しない)。
	Category string
	// Location は活動地域への部分一致(大文字小文字を区別しない)。
	Location string
}

// Filter は一覧にすべての条件をAND適用した結果を返す。
// 入力スライスは変更せず、元の順序を保つ。
func Filter(listings []model.ArtistListing, c Criteria) []model.ArtistListing {
	query := strings.ToLower(strings.TrimSpace(c.Query))
	category := strings.ToLower(strings.TrimSpace(c.Category))
	location := strings.ToLower(strings.TrimSpace(c.Location))

	result := make([]model.ArtistListing, 0, len(listings))
	for _, l := range listings {
		if !matchesQuery(l, query) {
			continue
		}
		if !matchesCategory(l, category) {
			continue
		}
		if !matchesLocation(l, location) {
			continue
		}
		result = append(result, l)
	}
	return result
}

// matchesQuery は名前・専門分野・活動地域のいずれかが検索語を含むかどうかを返す。
func matchesQuery(l model.ArtistListing, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(l.FullName), query) ||
		strings.Contains(strings.ToLower(l.Specialty), query) ||
		strings.Contains(strings.ToLower(l.Location), query)
}

// matchesCategory はカテゴリが一致するかどうかを返す。"all"は条件なしとして扱う。
func matchesCategory(l model.ArtistListing, category string) bool {
	if category == "" || category == "all" {
		return true
	}
	return strings.ToLower(l.Category) == category
}

// matchesLocation は活動地域が検索語を含むかどうかを返す。"all"は条件なしとして扱う。
func matchesLocation(l model.ArtistListing, location string) bool {
	if location == "" || location == "all" {
		return true
	}
	return strings.Contains(strings.ToLower(l.Location), location)
}
