package directory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/artspace/internal/model"
	"github.com/hitoshi/artspace/internal/repository"
)

// ArtistDetail はアーティスト詳細ページ用にユーザー情報と詳細プロフィールを
// 合わせた結果。
type ArtistDetail struct {
	Profile   *model.ArtistProfile
	FullName  string
	AvatarURL string
}

// Service はアーティストディレクトリの参照機能を提供する。
type Service struct {
	users    repository.UserRepository
	artists  repository.ArtistRepository
	artForms repository.ArtFormRepository
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	artists repository.ArtistRepository,
	artForms repository.ArtFormRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:    users,
		artists:  artists,
		artForms: artForms,
		logger:   logger,
	}
}

// ListArtists は条件に一致するアーティスト一覧を返す。
// 一覧の取得と絞り込みを分離しており、絞り込み自体は純粋関数のFilterが行う。
func (s *Service) ListArtists(ctx context.Context, c Criteria) ([]model.ArtistListing, error) {
	listings, err := s.artists.ListWithProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}
	return Filter(listings, c), nil
}

// GetArtist は指定IDのアーティスト詳細を返す。
// ユーザーが存在しない、アーティストでない、または詳細プロフィールが
// 未作成の場合はARTIST_NOT_FOUNDエラーを返す。
func (s *Service) GetArtist(ctx context.Context, artistID string) (*ArtistDetail, error) {
	user, err := s.users.FindByID(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to find artist user: %w", err)
	}
	if user == nil || user.UserType != model.UserTypeArtist {
		return nil, model.NewArtistNotFoundError(artistID)
	}

	artistProfile, err := s.artists.FindByID(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to find artist profile: %w", err)
	}
	if artistProfile == nil {
		return nil, model.NewArtistNotFoundError(artistID)
	}

	return &ArtistDetail{
		Profile:   artistProfile,
		FullName:  user.FullName,
		AvatarURL: user.AvatarURL,
	}, nil
}

// ListArtForms は全アートカテゴリを返す。
func (s *Service) ListArtForms(ctx context.Context) ([]model.ArtForm, error) {
	forms, err := s.artForms.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list art forms: %w", err)
	}
	return forms, nil
}
