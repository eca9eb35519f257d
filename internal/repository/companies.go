package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmoiron/sqlx"
)

type CompaniesRepository interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*model.Company, error)
	Insert(ctx context.Context, tx *sqlx.Tx, c model.Company) error
	ListActive(ctx context.Context) ([]model.Company, error)
}

type CompaniesRepositoryImpl struct{ store }

func NewCompaniesRepository(db *sqlx.DB) *CompaniesRepositoryImpl {
	return &CompaniesRepositoryImpl{store{db: db}}
}

var _ CompaniesRepository = (*CompaniesRepositoryImpl)(nil)

const companyCols = `id, name, slug, api_key, is_active, created_at`

// GetByAPIKey returns (nil, nil) when no company owns the key.
func (r *CompaniesRepositoryImpl) GetByAPIKey(ctx context.Context, apiKey string) (*model.Company, error) {
	var c model.Company
	err := r.db.GetContext(ctx, &c, `SELECT `+companyCols+` FROM companies WHERE api_key = ? LIMIT 1`, apiKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CompaniesRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, c model.Company) error {
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO companies (id, name, slug, api_key, is_active, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, c.ID, c.Name, c.Slug, c.APIKey, c.IsActive, c.CreatedAt)
		return err
	})
}

func (r *CompaniesRepositoryImpl) ListActive(ctx context.Context) ([]model.Company, error) {
	var rows []model.Company
	err := r.db.SelectContext(ctx, &rows, `SELECT `+companyCols+` FROM companies WHERE is_active = ? ORDER BY id`, true)
	return rows, err
}
