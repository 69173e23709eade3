// Package model はドメインモデルを定義する。
package model

import "time"

// ArtForm はアートのカテゴリ（mehendi, makeup等）を表す。
// マイグレーションで初期データが投入されるカタログテーブル。
type ArtForm struct {
	ID   string
	Name string
}

// ArtistProfile はアーティストの詳細プロフィールを表す。
// profilesテーブルと同一IDの1対1拡張で、user_type = artistの場合にのみ存在する。
type ArtistProfile struct {
	ID              string
	Specialty       string
	Location        string
	Phone           string
	Bio             string
	PortfolioImages []string
	Rating          float64
	TotalReviews    int
	StartingPrice   string
	ArtFormID       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsComplete はアーティストプロフィールが完成しているかどうかを返す。
// specialty、location、phoneがすべて非空であることが条件。
// 保存済みのis_profile_completeフラグは信用せず、常にここで再導出する。
func (p *ArtistProfile) IsComplete() bool {
	return p.Specialty != "" && p.Location != "" && p.Phone != ""
}

// ArtistListing はディレクトリ表示用にプロフィールとアーティスト詳細を結合した行を表す。
type ArtistListing struct {
	ID            string
	FullName      string
	AvatarURL     string
	Specialty     string
	Location      string
	Bio           string
	Category      string
	Rating        float64
	TotalReviews  int
	StartingPrice string
}
