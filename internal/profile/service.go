// Package profile はプロフィールの取得・更新とロール選択を提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/artspace/internal/model"
	"github.com/hitoshi/artspace/internal/repository"
	"github.com/hitoshi/artspace/internal/security"
	"github.com/hitoshi/artspace/internal/sessionstore"
)

// SnapshotStore はプロフィールスナップショットの取得とキャッシュ無効化の
// インターフェース。
type SnapshotStore interface {
	Get(ctx context.Context, userID string) (*sessionstore.Snapshot, error)
	Invalidate(userID string)
}

// ArtistProfileInput はアーティスト詳細プロフィールの更新入力。
type ArtistProfileInput struct {
	Specialty       string
	Location        string
	Phone           string
	Bio             string
	PortfolioImages []string
	StartingPrice   string
	ArtFormID       string
}

// Service はプロフィール操作を提供する。
type Service struct {
	users      repository.UserRepository
	artists    repository.ArtistRepository
	snapshots  SnapshotStore
	sanitizer  security.ContentSanitizerService
	imageGuard security.ImageURLGuardService
	logger     *slog.Logger
	now        func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	artists repository.ArtistRepository,
	snapshots SnapshotStore,
	sanitizer security.ContentSanitizerService,
	imageGuard security.ImageURLGuardService,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:      users,
		artists:    artists,
		snapshots:  snapshots,
		sanitizer:  sanitizer,
		imageGuard: imageGuard,
		logger:     logger,
		now:        time.Now,
	}
}

// GetProfile は指定ユーザーのプロフィールスナップショットを返す。
// ユーザーが存在しない場合はUSER_NOT_FOUNDエラーを返す。
func (s *Service) GetProfile(ctx context.Context, userID string) (*sessionstore.Snapshot, error) {
	snap, err := s.snapshots.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile snapshot: %w", err)
	}
	if snap == nil {
		return nil, model.NewUserNotFoundError()
	}
	return snap, nil
}

// UpdateProfile は表示名とアバターURLを更新する。
// アバターURLは内部ネットワークを指すURLを拒否する。
func (s *Service) UpdateProfile(ctx context.Context, userID, fullName, avatarURL string) error {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return model.NewMissingFieldError("full_name")
	}
	if avatarURL != "" {
		if err := s.imageGuard.ValidateURL(avatarURL); err != nil {
			return model.NewInvalidImageURLError(err.Error())
		}
	}

	if err := s.users.UpdateProfile(ctx, userID, fullName, avatarURL); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	s.snapshots.Invalidate(userID)
	s.logger.Info("profile updated", "user_id", userID)

	return nil
}

// SelectRole はロール未選択ユーザーのロールを確定する。
// アーティストを選択した場合は空のアーティスト詳細行を用意する。
func (s *Service) SelectRole(ctx context.Context, userID string, role model.UserType) error {
	if !role.IsValid() {
		return model.NewInvalidRoleError(string(role))
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.users.UpdateUserType(ctx, userID, role); err != nil {
		return fmt.Errorf("failed to update user type: %w", err)
	}

	if role == model.UserTypeArtist {
		if err := s.ensureArtistProfile(ctx, userID); err != nil {
			return err
		}
	}

	s.snapshots.Invalidate(userID)
	s.logger.Info("role selected", "user_id", userID, "role", role)

	return nil
}

// CompleteArtistProfile はアーティスト詳細プロフィールを更新する。
// specialty、location、phoneは必須。自己紹介はサニタイズし、
// ポートフォリオ画像URLはすべて検証してから保存する。
// 保存後の完成フラグは保存フィールドから再導出した値を書き込む。
func (s *Service) CompleteArtistProfile(ctx context.Context, userID string, input ArtistProfileInput) (*model.ArtistProfile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	if user.UserType != model.UserTypeArtist {
		return nil, model.NewForbiddenError()
	}

	specialty := strings.TrimSpace(input.Specialty)
	location := strings.TrimSpace(input.Location)
	phone := strings.TrimSpace(input.Phone)
	if specialty == "" {
		return nil, model.NewMissingFieldError("specialty")
	}
	if location == "" {
		return nil, model.NewMissingFieldError("location")
	}
	if phone == "" {
		return nil, model.NewMissingFieldError("phone")
	}

	for _, imageURL := range input.PortfolioImages {
		if err := s.imageGuard.ValidateURL(imageURL); err != nil {
			return nil, model.NewInvalidImageURLError(err.Error())
		}
	}

	existing, err := s.artists.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find artist profile: %w", err)
	}

	nowTime := s.now()
	artistProfile := &model.ArtistProfile{
		ID:              userID,
		Specialty:       specialty,
		Location:        location,
		Phone:           phone,
		Bio:             s.sanitizer.Sanitize(input.Bio),
		PortfolioImages: input.PortfolioImages,
		StartingPrice:   strings.TrimSpace(input.StartingPrice),
		ArtFormID:       input.ArtFormID,
		UpdatedAt:       nowTime,
	}
	if existing != nil {
		artistProfile.CreatedAt = existing.CreatedAt
	} else {
		artistProfile.CreatedAt = nowTime
	}

	if err := s.artists.Upsert(ctx, artistProfile); err != nil {
		return nil, fmt.Errorf("failed to upsert artist profile: %w", err)
	}

	if err := s.users.UpdateProfileComplete(ctx, userID, artistProfile.IsComplete()); err != nil {
		return nil, fmt.Errorf("failed to update profile complete flag: %w", err)
	}

	s.snapshots.Invalidate(userID)
	s.logger.Info("artist profile completed", "user_id", userID, "complete", artistProfile.IsComplete())

	return artistProfile, nil
}

// ensureArtistProfile はアーティスト詳細行が無ければ空の行を作成する。
func (s *Service) ensureArtistProfile(ctx context.Context, userID string) error {
	existing, err := s.artists.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find artist profile: %w", err)
	}
	if existing != nil {
		return nil
	}

	nowTime := s.now()
	artistProfile := &model.ArtistProfile{
		ID:        userID,
		CreatedAt: nowTime,
		UpdatedAt: nowTime,
	}
	if err := s.artists.Upsert(ctx, artistProfile); err != nil {
		return fmt.Errorf("failed to create artist profile: %w", err)
	}
	return nil
}
