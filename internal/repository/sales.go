package repository

import (
	"context"

	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmoiron/sqlx"
)

type SalesRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, s model.Sale) error
	ListByCustomer(ctx context.Context, tenantID, customerID string, limit int) ([]model.Sale, error)
}

type SalesRepositoryImpl struct{ store }

func NewSalesRepository(db *sqlx.DB) *SalesRepositoryImpl {
	return &SalesRepositoryImpl{store{db: db}}
}

var _ SalesRepository = (*SalesRepositoryImpl)(nil)

func (r *SalesRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, s model.Sale) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sales (id, tenant_id, customer_id, amount, points_earned, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.TenantID, s.CustomerID, s.Amount, s.PointsEarned, s.Description, s.CreatedAt)
	return err
}

func (r *SalesRepositoryImpl) ListByCustomer(ctx context.Context, tenantID, customerID string, limit int) ([]model.Sale, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	var rows []model.Sale
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, tenant_id, customer_id, amount, points_earned, description, created_at
		FROM sales
		WHERE tenant_id = ? AND customer_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, tenantID, customerID, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
