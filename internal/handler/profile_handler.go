package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/artspace/internal/middleware"
	"github.com/hitoshi/artspace/internal/model"
	"github.com/hitoshi/artspace/internal/profile"
	"github.com/hitoshi/artspace/internal/sessionstore"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*sessionstore.Snapshot, error)
	UpdateProfile(ctx context.Context, userID, fullName, avatarURL string) error
	SelectRole(ctx context.Context, userID string, role model.UserType) error
	CompleteArtistProfile(ctx context.Context, userID string, input profile.ArtistProfileInput) (*model.ArtistProfile, error)
}

// ProfileHandler はプロフィール管理のHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
type updateProfileRequest struct {
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

// selectRoleRequest はロール選択リクエストのボディ。
type selectRoleRequest struct {
	UserType string `json:"user_type"`
}

// artistProfileRequest はアーティスト詳細プロフィール更新リクエストのボディ。
type artistProfileRequest struct {
	Specialty       string   `json:"specialty"`
	Location        string   `json:"location"`
	Phone           string   `json:"phone"`
	Bio             string   `json:"bio"`
	PortfolioImages []string `json:"portfolio_images"`
	StartingPrice   string   `json:"starting_price"`
	ArtFormID       string   `json:"art_form_id"`
}

// artistProfileResponse はアーティスト詳細プロフィールのAPIレスポンス。
type artistProfileResponse struct {
	ID              string   `json:"id"`
	Specialty       string   `json:"specialty"`
	Location        string   `json:"location"`
	Phone           string   `json:"phone"`
	Bio             string   `json:"bio"`
	PortfolioImages []string `json:"portfolio_images"`
	Rating          float64  `json:"rating"`
	TotalReviews    int      `json:"total_reviews"`
	StartingPrice   string   `json:"starting_price"`
	ArtFormID       string   `json:"art_form_id,omitempty"`
	IsComplete      bool     `json:"is_complete"`
}

// profileResponse はプロフィールスナップショットのAPIレスポンス。
type profileResponse struct {
	User   userResponse           `json:"user"`
	Artist *artistProfileResponse `json:"artist,omitempty"`
}

// GetProfile は現在のユーザーのプロフィールを返す。
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	snap, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := profileResponse{User: toUserResponse(snap.User)}
	if snap.ArtistProfile != nil {
		artist := toArtistProfileResponse(snap.ArtistProfile)
		resp.Artist = &artist
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// UpdateProfile は表示名とアバターURLを更新する。
// PUT /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.UpdateProfile(r.Context(), userID, req.FullName, req.AvatarURL); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SelectRole はロール未選択ユーザーのロールを確定する。
// POST /api/profile/role
func (h *ProfileHandler) SelectRole(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req selectRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.SelectRole(r.Context(), userID, model.UserType(req.UserType)); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CompleteArtistProfile はアーティスト詳細プロフィールを更新する。
// PUT /api/profile/artist
func (h *ProfileHandler) CompleteArtistProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req artistProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	artistProfile, err := h.service.CompleteArtistProfile(r.Context(), userID, profile.ArtistProfileInput{
		Specialty:       req.Specialty,
		Location:        req.Location,
		Phone:           req.Phone,
		Bio:             req.Bio,
		PortfolioImages: req.PortfolioImages,
		StartingPrice:   req.StartingPrice,
		ArtFormID:       req.ArtFormID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toArtistProfileResponse(artistProfile))
}

// toArtistProfileResponse はmodel.ArtistProfileからAPIレスポンスに変換する。
func toArtistProfileResponse(p *model.ArtistProfile) artistProfileResponse {
	return artistProfileResponse{
		ID:              p.ID,
		Specialty:       p.Specialty,
		Location:        p.Location,
		Phone:           p.Phone,
		Bio:             p.Bio,
		PortfolioImages: p.PortfolioImages,
		Rating:          p.Rating,
		TotalReviews:    p.TotalReviews,
		StartingPrice:   p.StartingPrice,
		ArtFormID:       p.ArtFormID,
		IsComplete:      p.IsComplete(),
	}
}
