package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/artspace/internal/booking"
	"github.com/hitoshi/artspace/internal/middleware"
	"github.com/hitoshi/artspace/internal/model"
)

// BookingServiceInterface は予約ハンドラーが必要とするサービスインターフェース。
type BookingServiceInterface interface {
	Create(ctx context.Context, customerID string, input booking.CreateInput) (*model.Booking, error)
	ListForCustomer(ctx context.Context, customerID string) ([]*model.Booking, error)
	ListForArtist(ctx context.Context, artistID string) ([]*model.Booking, error)
	UpdateStatus(ctx context.Context, actorID, bookingID string, next model.BookingStatus) (*model.Booking, error)
}

// BookingHandler は予約管理のHTTPハンドラー。
type BookingHandler struct {
	service BookingServiceInterface
}

// NewBookingHandler はBookingHandlerを生成する。
func NewBookingHandler(service BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: service}
}

// createBookingRequest は予約作成リクエストのボディ。
type createBookingRequest struct {
	ArtistID        string   `json:"artist_id"`
	ServiceName     string   `json:"service_name"`
	AppointmentDate string   `json:"appointment_date"`
	AppointmentTime string   `json:"appointment_time"`
	Location        string   `json:"location"`
	Notes           string   `json:"notes"`
	TotalAmount     *float64 `json:"total_amount"`
}

// updateBookingStatusRequest は予約ステータス更新リクエストのボディ。
type updateBookingStatusRequest struct {
	Status string `json:"status"`
}

// bookingResponse は予約のAPIレスポンス。
type bookingResponse struct {
	ID              string   `json:"id"`
	CustomerID      string   `json:"customer_id"`
	ArtistID        string   `json:"artist_id"`
	ServiceName     string   `json:"service_name"`
	AppointmentDate string   `json:"appointment_date"`
	AppointmentTime string   `json:"appointment_time"`
	Location        string   `json:"location"`
	Notes           string   `json:"notes,omitempty"`
	Status          string   `json:"status"`
	TotalAmount     *float64 `json:"total_amount,omitempty"`
	CreatedAt       string   `json:"created_at"`
}

// CreateBooking は予約作成を処理する。
// POST /api/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	customerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	created, err := h.service.Create(r.Context(), customerID, booking.CreateInput{
		ArtistID:        req.ArtistID,
		ServiceName:     req.ServiceName,
		AppointmentDate: req.AppointmentDate,
		AppointmentTime: req.AppointmentTime,
		Location:        req.Location,
		Notes:           req.Notes,
		TotalAmount:     req.TotalAmount,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toBookingResponse(created))
}

// ListMyBookings はクライアント自身の予約一覧を返す。
// GET /api/bookings
func (h *BookingHandler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	customerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	bookings, err := h.service.ListForCustomer(r.Context(), customerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeBookingList(w, bookings)
}

// ListArtistBookings はアーティスト宛の予約一覧を返す。
// GET /api/artist/bookings
func (h *BookingHandler) ListArtistBookings(w http.ResponseWriter, r *http.Request) {
	artistID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	bookings, err := h.service.ListForArtist(r.Context(), artistID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeBookingList(w, bookings)
}

// UpdateBookingStatus は予約ステータスを遷移させる。
// PATCH /api/bookings/:id/status
func (h *BookingHandler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	bookingID := chi.URLParam(r, "id")

	var req updateBookingStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.UpdateStatus(r.Context(), actorID, bookingID, model.BookingStatus(req.Status))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toBookingResponse(updated))
}

// writeBookingList は予約一覧のJSONレスポンスを書き込む。
func writeBookingList(w http.ResponseWriter, bookings []*model.Booking) {
	resp := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, toBookingResponse(b))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// toBookingResponse はmodel.BookingからAPIレスポンスに変換する。
func toBookingResponse(b *model.Booking) bookingResponse {
	return bookingResponse{
		ID:              b.ID,
		CustomerID:      b.CustomerID,
		ArtistID:        b.ArtistID,
		ServiceName:     b.ServiceName,
		AppointmentDate: b.AppointmentDate,
		AppointmentTime: b.AppointmentTime,
		Location:        b.Location,
		Notes:           b.Notes,
		Status:          string(b.Status),
		TotalAmount:     b.TotalAmount,
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
	}
}
