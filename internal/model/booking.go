// Package model はドメインモデルを定義する。
package model

import "time"

// BookingStatus は予約のステータスを表す。
type BookingStatus string

const (
	// BookingStatusPending は作成直後の未確定状態。
	BookingStatusPending BookingStatus = "pending"
	// BookingStatusConfirmed はアーティストが承諾した状態。
	BookingStatusConfirmed BookingStatus = "confirmed"
	// BookingStatusCompleted は施術完了状態。
	BookingStatusCompleted BookingStatus = "completed"
	// BookingStatusCancelled はキャンセル済み状態。
	BookingStatusCancelled BookingStatus = "cancelled"
)

// CanTransitionTo は現在のステータスからnextへの遷移が許可されているかを返す。
// 許可される遷移:
//
//	pending   → confirmed | cancelled
//	confirmed → completed | cancelled
//
// completed、cancelledは終端状態で、以降の遷移は許可されない。
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return next == BookingStatusConfirmed || next == BookingStatusCancelled
	case BookingStatusConfirmed:
		return next == BookingStatusCompleted || next == BookingStatusCancelled
	default:
		return false
	}
}

// Booking はクライアントからアーティストへのサービス予約リクエストを表す。
// クライアント操作で1回だけ作成され、ステータス遷移はアーティスト側が行う。
type Booking struct {
	ID              string
	CustomerID      string
	ArtistID        string
	ServiceName     string
	AppointmentDate string // YYYY-MM-DD
	AppointmentTime string // HH:MM
	Location        string
	Notes           string
	Status          BookingStatus
	TotalAmount     *float64
	CreatedAt       time.Time
}
