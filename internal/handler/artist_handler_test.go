package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/artspace/internal/directory"
	"github.com/hitoshi/artspace/internal/model"
)

// --- モック定義 ---

type mockDirectoryService struct {
	listArtistsFn  func(ctx context.Context, c directory.Criteria) ([]model.ArtistListing, error)
	getArtistFn    func(ctx context.Context, artistID string) (*directory.ArtistDetail, error)
	listArtFormsFn func(ctx context.Context) ([]model.ArtForm, error)
}

func (m *mockDirectoryService) ListArtists(ctx context.Context, c directory.Criteria) ([]model.ArtistListing, error) {
	if m.listArtistsFn != nil {
		return m.listArtistsFn(ctx, c)
	}
	return nil, nil
}

func (m *mockDirectoryService) GetArtist(ctx context.Context, artistID string) (*directory.ArtistDetail, error) {
	if m.getArtistFn != nil {
		return m.getArtistFn(ctx, artistID)
	}
	return nil, model.NewArtistNotFoundError(artistID)
}

func (m *mockDirectoryService) ListArtForms(ctx context.Context) ([]model.ArtForm, error) {
	if m.listArtFormsFn != nil {
		return m.listArtFormsFn(ctx)
	}
	return nil, nil
}

var _ DirectoryServiceInterface = (*mockDirectoryService)(nil)

// --- ListArtists ---

func TestListArtists_PassesFilterCriteria(t *testing.T) {
	var gotCriteria directory.Criteria
	service := &mockDirectoryService{
		listArtistsFn: func(_ context.Context, c directory.Criteria) ([]model.ArtistListing, error) {
			gotCriteria = c
			return []model.ArtistListing{
				{ID: "a1", FullName: "Priya Sharma", Specialty: "Bridal Mehendi", Location: "Mumbai", Category: "mehendi", Rating: 4.8, TotalReviews: 12},
			}, nil
		},
	}
	h := NewArtistHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/artists?q=mehendi&category=mehendi&location=mumbai", nil)
	w := httptest.NewRecorder()

	h.ListArtists(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotCriteria.Query != "mehendi" || gotCriteria.Category != "mehendi" || gotCriteria.Location != "mumbai" {
		t.Errorf("criteria = %+v", gotCriteria)
	}

	var got []artistListingResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].FullName != "Priya Sharma" || got[0].Rating != 4.8 {
		t.Errorf("listing = %+v", got[0])
	}
}

func TestListArtists_EmptyResultEncodesArray(t *testing.T) {
	h := NewArtistHandler(&mockDirectoryService{})

	req := httptest.NewRequest(http.MethodGet, "/api/artists", nil)
	w := httptest.NewRecorder()

	h.ListArtists(w, req)

	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("empty result should encode as [], got %q", body)
	}
}

// --- GetArtist ---

func TestGetArtist_ReturnsDetail(t *testing.T) {
	service := &mockDirectoryService{
		getArtistFn: func(_ context.Context, artistID string) (*directory.ArtistDetail, error) {
			return &directory.ArtistDetail{
				Profile: &model.ArtistProfile{
					ID:        artistID,
					Specialty: "Bridal Mehendi",
					Location:  "Mumbai",
					Phone:     "9876543210",
				},
				FullName:  "Priya Sharma",
				AvatarURL: "https://cdn.example.com/p.jpg",
			}, nil
		},
	}
	h := NewArtistHandler(service)

	r := chi.NewRouter()
	r.Get("/api/artists/{id}", h.GetArtist)

	req := httptest.NewRequest(http.MethodGet, "/api/artists/a1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var got artistDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.FullName != "Priya Sharma" {
		t.Errorf("full_name = %q", got.FullName)
	}
	if got.ID != "a1" || got.Specialty != "Bridal Mehendi" {
		t.Errorf("profile fields = %+v", got)
	}
}

func TestGetArtist_UnknownReturns404(t *testing.T) {
	h := NewArtistHandler(&mockDirectoryService{})

	r := chi.NewRouter()
	r.Get("/api/artists/{id}", h.GetArtist)

	req := httptest.NewRequest(http.MethodGet, "/api/artists/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if !strings.Contains(w.Body.String(), "ARTIST_NOT_FOUND") {
		t.Errorf("body should carry the error code: %s", w.Body.String())
	}
}

// --- ListArtForms ---

func TestListArtForms_ReturnsCatalog(t *testing.T) {
	service := &mockDirectoryService{
		listArtFormsFn: func(_ context.Context) ([]model.ArtForm, error) {
			return []model.ArtForm{
				{ID: "f1", Name: "mehendi"},
				{ID: "f2", Name: "makeup"},
			}, nil
		},
	}
	h := NewArtistHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/art-forms", nil)
	w := httptest.NewRecorder()

	h.ListArtForms(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var got []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 2 || got[0].Name != "mehendi" {
		t.Errorf("art forms = %+v", got)
	}
}
