package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/artspace/internal/model"
)

// PostgresArtistRepo はPostgreSQLを使用したアーティスト詳細リポジトリ。
type PostgresArtistRepo struct {
	db *sql.DB
}

// NewPostgresArtistRepo はPostgresArtistRepoを生成する。
func NewPostgresArtistRepo(db *sql.DB) *PostgresArtistRepo {
	return &PostgresArtistRepo{db: db}
}

// FindByID は指定IDのアーティスト詳細を取得する。見つからない場合はnilを返す。
func (r *PostgresArtistRepo) FindByID(ctx context.Context, id string) (*model.ArtistProfile, error) {
	profile := &model.ArtistProfile{}
	var artFormID sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, specialty, location, phone, bio, portfolio_images,
		        rating, total_reviews, starting_price, art_form_id, created_at, updated_at
		 FROM artist_profiles WHERE id = $1`,
		id,
	).Scan(
		&profile.ID, &profile.Specialty, &profile.Location, &profile.Phone, &profile.Bio,
		pq.Array(&profile.PortfolioImages),
		&profile.Rating, &profile.TotalReviews, &profile.StartingPrice,
		&artFormID, &profile.CreatedAt, &profile.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find artist profile: %w", err)
	}

	profile.ArtFormID = artFormID.String
	return profile, nil
}

// Upsert はアーティスト詳細をid競合キーでUPSERTする。
// rating、total_reviewsはアーティスト側の操作では変更しない。
func (r *PostgresArtistRepo) Upsert(ctx context.Context, profile *model.ArtistProfile) error {
	var artFormID sql.NullString
	if profile.ArtFormID != "" {
		artFormID = sql.NullString{String: profile.ArtFormID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO artist_profiles
		     (id, specialty, location, phone, bio, portfolio_images, starting_price, art_form_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		 ON CONFLICT (id) DO UPDATE SET
		     specialty        = EXCLUDED.specialty,
		     location         = EXCLUDED.location,
		     phone            = EXCLUDED.phone,
		     bio              = EXCLUDED.bio,
		     portfolio_images = EXCLUDED.portfolio_images,
		     starting_price   = EXCLUDED.starting_price,
		     art_form_id      = EXCLUDED.art_form_id,
		     updated_at       = now()`,
		profile.ID, profile.Specialty, profile.Location, profile.Phone, profile.Bio,
		pq.Array(profile.PortfolioImages), profile.StartingPrice, artFormID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert artist profile: %w", err)
	}
	return nil
}

// ListWithProfiles は全アーティストのディレクトリ表示用結合行を返す。
func (r *PostgresArtistRepo) ListWithProfiles(ctx context.Context) ([]model.ArtistListing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, u.full_name, u.avatar_url, a.specialty, a.location, a.bio,
		        COALESCE(a.art_form_id, ''), a.rating, a.total_reviews, a.starting_price
		 FROM artist_profiles a
		 JOIN users u ON u.id = a.id
		 WHERE u.user_type = 'artist'
		 ORDER BY a.rating DESC, u.full_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}
	defer rows.Close()

	var listings []model.ArtistListing
	for rows.Next() {
		var l model.ArtistListing
		if err := rows.Scan(
			&l.ID, &l.FullName, &l.AvatarURL, &l.Specialty, &l.Location, &l.Bio,
			&l.Category, &l.Rating, &l.TotalReviews, &l.StartingPrice,
		); err != nil {
			return nil, fmt.Errorf("failed to scan artist listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate artist listings: %w", err)
	}

	return listings, nil
}

// compile-time interface check
var _ ArtistRepository = (*PostgresArtistRepo)(nil)
