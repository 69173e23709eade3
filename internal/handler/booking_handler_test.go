package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/artspace/internal/booking"
	"github.com/hitoshi/artspace/internal/middleware"
	"github.com/hitoshi/artspace/internal/model"
)

// --- モック定義 ---

type mockBookingService struct {
	createFn          func(ctx context.Context, customerID string, input booking.CreateInput) (*model.Booking, error)
	listForCustomerFn func(ctx context.Context, customerID string) ([]*model.Booking, error)
	listForArtistFn   func(ctx context.Context, artistID string) ([]*model.Booking, error)
	updateStatusFn    func(ctx context.Context, actorID, bookingID string, next model.BookingStatus) (*model.Booking, error)
}

func (m *mockBookingService) Create(ctx context.Context, customerID string, input booking.CreateInput) (*model.Booking, error) {
	if m.createFn != nil {
		return m.createFn(ctx, customerID, input)
	}
	return nil, nil
}

func (m *mockBookingService) ListForCustomer(ctx context.Context, customerID string) ([]*model.Booking, error) {
	if m.listForCustomerFn != nil {
		return m.listForCustomerFn(ctx, customerID)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingService) ListForArtist(ctx context.Context, artistID string) ([]*model.Booking, error) {
	if m.listForArtistFn != nil {
		return m.listForArtistFn(ctx, artistID)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingService) UpdateStatus(ctx context.Context, actorID, bookingID string, next model.BookingStatus) (*model.Booking, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, actorID, bookingID, next)
	}
	return nil, nil
}

var _ BookingServiceInterface = (*mockBookingService)(nil)

func authedRequest(method, target, body, userID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
}

func sampleBooking() *model.Booking {
	return &model.Booking{
		ID:              "b1",
		CustomerID:      "customer-1",
		ArtistID:        "artist-1",
		ServiceName:     "Bridal Mehendi",
		AppointmentDate: "2026-09-15",
		AppointmentTime: "14:00",
		Location:        "Studio location",
		Status:          model.BookingStatusPending,
		CreatedAt:       time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
	}
}

// --- CreateBooking ---

func TestCreateBooking_Returns201(t *testing.T) {
	service := &mockBookingService{
		createFn: func(_ context.Context, customerID string, input booking.CreateInput) (*model.Booking, error) {
			if customerID != "customer-1" {
				t.Errorf("customerID = %q, want customer-1", customerID)
			}
			if input.ArtistID != "artist-1" || input.ServiceName != "Bridal Mehendi" {
				t.Errorf("unexpected input: %+v", input)
			}
			return sampleBooking(), nil
		},
	}
	h := NewBookingHandler(service)

	body := `{"artist_id":"artist-1","service_name":"Bridal Mehendi","appointment_date":"2026-09-15","appointment_time":"14:00"}`
	req := authedRequest(http.MethodPost, "/api/bookings", body, "customer-1")
	w := httptest.NewRecorder()

	h.CreateBooking(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got["id"] != "b1" {
		t.Errorf("id = %v, want b1", got["id"])
	}
	if got["status"] != "pending" {
		t.Errorf("status = %v, want pending", got["status"])
	}
	if got["created_at"] != "2026-08-29T10:00:00Z" {
		t.Errorf("created_at = %v", got["created_at"])
	}
}

func TestCreateBooking_WithoutAuthReturns401(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{})

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.CreateBooking(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestCreateBooking_ArtistNotFoundReturns404(t *testing.T) {
	service := &mockBookingService{
		createFn: func(_ context.Context, _ string, _ booking.CreateInput) (*model.Booking, error) {
			return nil, model.NewArtistNotFoundError("nope")
		},
	}
	h := NewBookingHandler(service)

	body := `{"artist_id":"nope","service_name":"x","appointment_date":"2026-09-15","appointment_time":"14:00"}`
	req := authedRequest(http.MethodPost, "/api/bookings", body, "customer-1")
	w := httptest.NewRecorder()

	h.CreateBooking(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestCreateBooking_InvalidJSONReturns400(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{})

	req := authedRequest(http.MethodPost, "/api/bookings", "{broken", "customer-1")
	w := httptest.NewRecorder()

	h.CreateBooking(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- 一覧 ---

func TestListMyBookings_ReturnsOwnBookings(t *testing.T) {
	service := &mockBookingService{
		listForCustomerFn: func(_ context.Context, customerID string) ([]*model.Booking, error) {
			if customerID != "customer-1" {
				t.Errorf("customerID = %q, want customer-1", customerID)
			}
			return []*model.Booking{sampleBooking()}, nil
		},
	}
	h := NewBookingHandler(service)

	req := authedRequest(http.MethodGet, "/api/bookings", "", "customer-1")
	w := httptest.NewRecorder()

	h.ListMyBookings(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var got []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 1 || got[0]["id"] != "b1" {
		t.Errorf("response = %v, want one booking b1", got)
	}
}

func TestListMyBookings_EmptyListIsJSONArray(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{})

	req := authedRequest(http.MethodGet, "/api/bookings", "", "customer-1")
	w := httptest.NewRecorder()

	h.ListMyBookings(w, req)

	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("empty list should encode as [], got %s", body)
	}
}

func TestListArtistBookings_UsesActorAsArtist(t *testing.T) {
	var calledWith string
	service := &mockBookingService{
		listForArtistFn: func(_ context.Context, artistID string) ([]*model.Booking, error) {
			calledWith = artistID
			return []*model.Booking{}, nil
		},
	}
	h := NewBookingHandler(service)

	req := authedRequest(http.MethodGet, "/api/artist/bookings", "", "artist-1")
	w := httptest.NewRecorder()

	h.ListArtistBookings(w, req)

	if calledWith != "artist-1" {
		t.Errorf("artistID = %q, want artist-1", calledWith)
	}
}

// --- UpdateBookingStatus ---

func TestUpdateBookingStatus_PassesURLParamAndStatus(t *testing.T) {
	service := &mockBookingService{
		updateStatusFn: func(_ context.Context, actorID, bookingID string, next model.BookingStatus) (*model.Booking, error) {
			if actorID != "artist-1" {
				t.Errorf("actorID = %q, want artist-1", actorID)
			}
			if bookingID != "b1" {
				t.Errorf("bookingID = %q, want b1", bookingID)
			}
			if next != model.BookingStatusConfirmed {
				t.Errorf("next = %q, want confirmed", next)
			}
			b := sampleBooking()
			b.Status = model.BookingStatusConfirmed
			return b, nil
		},
	}
	h := NewBookingHandler(service)

	r := chi.NewRouter()
	r.Patch("/api/bookings/{id}/status", h.UpdateBookingStatus)

	req := authedRequest(http.MethodPatch, "/api/bookings/b1/status", `{"status":"confirmed"}`, "artist-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got["status"] != "confirmed" {
		t.Errorf("status = %v, want confirmed", got["status"])
	}
}

func TestUpdateBookingStatus_InvalidTransitionReturns409(t *testing.T) {
	service := &mockBookingService{
		updateStatusFn: func(_ context.Context, _, _ string, _ model.BookingStatus) (*model.Booking, error) {
			return nil, model.NewInvalidTransitionError(model.BookingStatusCompleted, model.BookingStatusPending)
		},
	}
	h := NewBookingHandler(service)

	r := chi.NewRouter()
	r.Patch("/api/bookings/{id}/status", h.UpdateBookingStatus)

	req := authedRequest(http.MethodPatch, "/api/bookings/b1/status", `{"status":"pending"}`, "artist-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestUpdateBookingStatus_NonOwnerReturns403(t *testing.T) {
	service := &mockBookingService{
		updateStatusFn: func(_ context.Context, _, _ string, _ model.BookingStatus) (*model.Booking, error) {
			return nil, model.NewForbiddenError()
		},
	}
	h := NewBookingHandler(service)

	r := chi.NewRouter()
	r.Patch("/api/bookings/{id}/status", h.UpdateBookingStatus)

	req := authedRequest(http.MethodPatch, "/api/bookings/b1/status", `{"status":"confirmed"}`, "someone-else")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}
