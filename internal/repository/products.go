package repository

import (
	"context"

	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmoiron/sqlx"
)

type ProductsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, p model.Product) error
	Get(ctx context.Context, tx *sqlx.Tx, tenantID, id string) (*model.Product, error)
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, tenantID, id string) (*model.Product, error)
	Update(ctx context.Context, tx *sqlx.Tx, p model.Product) error
	Delete(ctx context.Context, tx *sqlx.Tx, tenantID, id string) error
	List(ctx context.Context, tenantID string, onlyAvailable bool) ([]model.Product, error)
}

type ProductsRepositoryImpl struct{ store }

func NewProductsRepository(db *sqlx.DB) *ProductsRepositoryImpl {
	return &ProductsRepositoryImpl{store{db: db}}
}

var _ ProductsRepository = (*ProductsRepositoryImpl)(nil)

const productCols = `id, tenant_id, name, description, points_required, available, created_at, updated_at`

func (r *ProductsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, p model.Product) error {
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO products (id, tenant_id, name, description, points_required, available, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, p.TenantID, p.Name, p.Description, p.PointsRequired, p.Available, p.CreatedAt, p.UpdatedAt)
		return err
	})
}

func (r *ProductsRepositoryImpl) Get(ctx context.Context, tx *sqlx.Tx, tenantID, id string) (*model.Product, error) {
	var p model.Product
	err := sqlx.GetContext(ctx, r.queryer(tx), &p, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	if err := scope(err, p.TenantID, tenantID, model.ErrNotFound); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductsRepositoryImpl) GetForUpdate(ctx context.Context, tx *sqlx.Tx, tenantID, id string) (*model.Product, error) {
	var p model.Product
	err := tx.GetContext(ctx, &p, `SELECT `+productCols+` FROM products WHERE id = ?`+forUpdate(tx), id)
	if err := scope(err, p.TenantID, tenantID, model.ErrNotFound); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update rewrites the mutable catalog fields. Existing requests keep their
// points_used snapshot.
func (r *ProductsRepositoryImpl) Update(ctx context.Context, tx *sqlx.Tx, p model.Product) error {
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		ok, err := affected(tx.ExecContext(ctx, `
			UPDATE products
			SET name = ?, description = ?, points_required = ?, available = ?, updated_at = ?
			WHERE id = ? AND tenant_id = ?
		`, p.Name, p.Description, p.PointsRequired, p.Available, p.UpdatedAt, p.ID, p.TenantID))
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrConflict
		}
		return nil
	})
}

func (r *ProductsRepositoryImpl) Delete(ctx context.Context, tx *sqlx.Tx, tenantID, id string) error {
	ok, err := affected(tx.ExecContext(ctx, `DELETE FROM products WHERE id = ? AND tenant_id = ?`, id, tenantID))
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrConflict
	}
	return nil
}

func (r *ProductsRepositoryImpl) List(ctx context.Context, tenantID string, onlyAvailable bool) ([]model.Product, error) {
	q := `SELECT ` + productCols + ` FROM products WHERE tenant_id = ?`
	args := []any{tenantID}
	if onlyAvailable {
		q += " AND available = ?"
		args = append(args, true)
	}
	q += " ORDER BY points_required, id"

	var rows []model.Product
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
