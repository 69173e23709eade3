package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/artspace/internal/model"
)

// PostgresArtFormRepo はPostgreSQLを使用したアートカテゴリリポジトリ。
type PostgresArtFormRepo struct {
	db *sql.DB
}

// NewPostgresArtFormRepo はPostgresArtFormRepoを生成する。
func NewPostgresArtFormRepo(db *sql.DB) *PostgresArtFormRepo {
	return &PostgresArtFormRepo{db: db}
}

// List は全アートカテゴリを名前順で返す。
func (r *PostgresArtFormRepo) List(ctx context.Context) ([]model.ArtForm, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM art_forms ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list art forms: %w", err)
	}
	defer rows.Close()

	var forms []model.ArtForm
	for rows.Next() {
		var f model.ArtForm
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, fmt.Errorf("failed to scan art form: %w", err)
		}
		forms = append(forms, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate art forms: %w", err)
	}

	return forms, nil
}

// compile-time interface check
var _ ArtFormRepository = (*PostgresArtFormRepo)(nil)
