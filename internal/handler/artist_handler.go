package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/artspace/internal/directory"
	"github.com/hitoshi/artspace/internal/model"
)

// DirectoryServiceInterface はディレクトリハンドラーが必要とするサービスインターフェース。
type DirectoryServiceInterface interface {
	ListArtists(ctx context.Context, c directory.Criteria) ([]model.ArtistListing, error)
	GetArtist(ctx context.Context, artistID string) (*directory.ArtistDetail, error)
	ListArtForms(ctx context.Context) ([]model.ArtForm, error)
}

// ArtistHandler はアーティストディレクトリのHTTPハンドラー。
// 認証なしで閲覧できる公開エンドポイント。
type ArtistHandler struct {
	service DirectoryServiceInterface
}

// NewArtistHandler はArtistHandlerを生成する。
func NewArtistHandler(service DirectoryServiceInterface) *ArtistHandler {
	return &ArtistHandler{service: service}
}

// artistListingResponse はディレクトリ一覧1件のAPIレスポンス。
type artistListingResponse struct {
	ID            string  `json:"id"`
	FullName      string  `json:"full_name"`
	AvatarURL     string  `json:"avatar_url,omitempty"`
	Specialty     string  `json:"specialty"`
	Location      string  `json:"location"`
	Bio           string  `json:"bio,omitempty"`
	Category      string  `json:"category,omitempty"`
	Rating        float64 `json:"rating"`
	TotalReviews  int     `json:"total_reviews"`
	StartingPrice string  `json:"starting_price,omitempty"`
}

// artistDetailResponse はアーティスト詳細ページのAPIレスポンス。
type artistDetailResponse struct {
	artistProfileResponse
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// artFormResponse はアートカテゴリのAPIレスポンス。
type artFormResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListArtists は条件に一致するアーティスト一覧を返す。
// GET /api/artists?q=&category=&location=
func (h *ArtistHandler) ListArtists(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	criteria := directory.Criteria{
		Query:    query.Get("q"),
		Category: query.Get("category"),
		Location: query.Get("location"),
	}

	listings, err := h.service.ListArtists(r.Context(), criteria)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]artistListingResponse, 0, len(listings))
	for _, l := range listings {
		resp = append(resp, artistListingResponse{
			ID:            l.ID,
			FullName:      l.FullName,
			AvatarURL:     l.AvatarURL,
			Specialty:     l.Specialty,
			Location:      l.Location,
			Bio:           l.Bio,
			Category:      l.Category,
			Rating:        l.Rating,
			TotalReviews:  l.TotalReviews,
			StartingPrice: l.StartingPrice,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetArtist はアーティスト詳細を返す。
// GET /api/artists/:id
func (h *ArtistHandler) GetArtist(w http.ResponseWriter, r *http.Request) {
	artistID := chi.URLParam(r, "id")

	detail, err := h.service.GetArtist(r.Context(), artistID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(artistDetailResponse{
		artistProfileResponse: toArtistProfileResponse(detail.Profile),
		FullName:              detail.FullName,
		AvatarURL:             detail.AvatarURL,
	})
}

// ListArtForms は全アートカテゴリを返す。
// GET /api/art-forms
func (h *ArtistHandler) ListArtForms(w http.ResponseWriter, r *http.Request) {
	forms, err := h.service.ListArtForms(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]artFormResponse, 0, len(forms))
	for _, f := range forms {
		resp = append(resp, artFormResponse{ID: f.ID, Name: f.Name})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
