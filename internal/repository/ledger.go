package repository

import (
	"context"

	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmoiron/sqlx"
)

// LedgerRepository is append-only: there is no update or delete.
type LedgerRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, e model.LedgerEntry) error
	ListByCustomer(ctx context.Context, tx *sqlx.Tx, tenantID, customerID string, kind model.EntryKind, after string, limit int) ([]model.LedgerEntry, error)
	SumByCustomer(ctx context.Context, tx *sqlx.Tx, tenantID, customerID string) (int64, error)
}

type LedgerRepositoryImpl struct{ store }

func NewLedgerRepository(db *sqlx.DB) *LedgerRepositoryImpl {
	return &LedgerRepositoryImpl{store{db: db}}
}

var _ LedgerRepository = (*LedgerRepositoryImpl)(nil)

const ledgerCols = `id, tenant_id, customer_id, amount, kind, description, reference_id, created_by, created_at`

func (r *LedgerRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, e model.LedgerEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO points_ledger (id, tenant_id, customer_id, amount, kind, description, reference_id, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.TenantID, e.CustomerID, e.Amount, e.Kind.String(), e.Description, e.ReferenceID, e.CreatedBy, e.CreatedAt)
	return err
}

// ListByCustomer pages entries in creation order. after is the last ID of the
// previous page ("" for the first page); an empty kind matches every kind.
func (r *LedgerRepositoryImpl) ListByCustomer(ctx context.Context, tx *sqlx.Tx, tenantID, customerID string, kind model.EntryKind, after string, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q := `SELECT ` + ledgerCols + ` FROM points_ledger WHERE tenant_id = ? AND customer_id = ? AND id > ?`
	args := []any{tenantID, customerID, after}
	if kind != "" {
		q += ` AND kind = ?`
		args = append(args, kind.String())
	}
	q += ` ORDER BY id LIMIT ?`
	args = append(args, limit)

	var rows []model.LedgerEntry
	if err := sqlx.SelectContext(ctx, r.queryer(tx), &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LedgerRepositoryImpl) SumByCustomer(ctx context.Context, tx *sqlx.Tx, tenantID, customerID string) (int64, error) {
	var sum int64
	err := sqlx.GetContext(ctx, r.queryer(tx), &sum, `
		SELECT COALESCE(SUM(amount), 0) FROM points_ledger
		WHERE tenant_id = ? AND customer_id = ?
	`, tenantID, customerID)
	return sum, err
}
