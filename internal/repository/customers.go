package repository

import (
	"context"
	"time"

	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmoiron/sqlx"
)

type CustomersRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, c model.Customer) error
	Get(ctx context.Context, tx *sqlx.Tx, tenantID, id string) (*model.Customer, error)
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, tenantID, id string) (*model.Customer, error)
	ApplyPoints(ctx context.Context, tx *sqlx.Tx, tenantID, id string, delta int64, at time.Time) error
	List(ctx context.Context, tenantID string, limit, offset int) ([]model.Customer, error)
}

type CustomersRepositoryImpl struct{ store }

func NewCustomersRepository(db *sqlx.DB) *CustomersRepositoryImpl {
	return &CustomersRepositoryImpl{store{db: db}}
}

var _ CustomersRepository = (*CustomersRepositoryImpl)(nil)

const customerCols = `id, tenant_id, name, tax_id, email, phone, points, created_at, updated_at`

// Insert enrolls a customer; a second customer with the same tax id in the
// tenant yields ErrDuplicateCustomer.
func (r *CustomersRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, c model.Customer) error {
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO customers (id, tenant_id, name, tax_id, email, phone, points, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		`, c.ID, c.TenantID, c.Name, c.TaxID, c.Email, c.Phone, c.CreatedAt, c.UpdatedAt)
		if isDuplicate(err) {
			return model.ErrDuplicateCustomer
		}
		return err
	})
}

func (r *CustomersRepositoryImpl) Get(ctx context.Context, tx *sqlx.Tx, tenantID, id string) (*model.Customer, error) {
	var c model.Customer
	err := sqlx.GetContext(ctx, r.queryer(tx), &c, `SELECT `+customerCols+` FROM customers WHERE id = ?`, id)
	if err := scope(err, c.TenantID, tenantID, model.ErrUnknownCustomer); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetForUpdate locks the customer row for the rest of tx.
func (r *CustomersRepositoryImpl) GetForUpdate(ctx context.Context, tx *sqlx.Tx, tenantID, id string) (*model.Customer, error) {
	var c model.Customer
	err := tx.GetContext(ctx, &c, `SELECT `+customerCols+` FROM customers WHERE id = ?`+forUpdate(tx), id)
	if err := scope(err, c.TenantID, tenantID, model.ErrUnknownCustomer); err != nil {
		return nil, err
	}
	return &c, nil
}

// ApplyPoints moves the cached balance by delta. The update only matches while
// the result stays non-negative, so a lost race surfaces as ErrInsufficientPoints.
func (r *CustomersRepositoryImpl) ApplyPoints(ctx context.Context, tx *sqlx.Tx, tenantID, id string, delta int64, at time.Time) error {
	ok, err := affected(tx.ExecContext(ctx, `
		UPDATE customers
		SET points = points + ?, updated_at = ?
		WHERE id = ? AND tenant_id = ? AND points + ? >= 0
	`, delta, at, id, tenantID, delta))
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrInsufficientPoints
	}
	return nil
}

func (r *CustomersRepositoryImpl) List(ctx context.Context, tenantID string, limit, offset int) ([]model.Customer, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var rows []model.Customer
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+customerCols+` FROM customers
		WHERE tenant_id = ?
		ORDER BY id
		LIMIT ? OFFSET ?
	`, tenantID, limit, offset)
	return rows, err
}
