package repository

import (
	"context"
	"time"

	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmoiron/sqlx"
)

// StatusChange carries the columns written alongside a status transition.
type StatusChange struct {
	From            model.RequestStatus
	To              model.RequestStatus
	ProcessedAt     *time.Time
	ProcessedBy     *string
	ExpiresAt       *time.Time
	RejectionReason *string
	UpdatedAt       time.Time
}

type RequestFilter struct {
	CustomerID string
	ProductID  string
	Status     model.RequestStatus
	Limit      int
	Offset     int
}

type RequestsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, req model.LoyaltyRequest) error
	Get(ctx context.Context, tx *sqlx.Tx, tenantID, id string) (*model.LoyaltyRequest, error)
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, tenantID, id string) (*model.LoyaltyRequest, error)
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, tenantID, id string, ch StatusChange) (bool, error)
	Delete(ctx context.Context, tx *sqlx.Tx, tenantID, id string, status model.RequestStatus) (bool, error)
	List(ctx context.Context, tenantID string, f RequestFilter) ([]model.LoyaltyRequest, error)
	ListByProductForUpdate(ctx context.Context, tx *sqlx.Tx, tenantID, productID string) ([]model.LoyaltyRequest, error)
	ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]model.LoyaltyRequest, error)
}

type RequestsRepositoryImpl struct{ store }

func NewRequestsRepository(db *sqlx.DB) *RequestsRepositoryImpl {
	return &RequestsRepositoryImpl{store{db: db}}
}

var _ RequestsRepository = (*RequestsRepositoryImpl)(nil)

const requestCols = `id, tenant_id, customer_id, product_id, points_used, balance_before, status,
	rejection_reason, requested_at, processed_at, processed_by, expires_at, updated_at`

func (r *RequestsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, req model.LoyaltyRequest) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO loyalty_requests
		    (id, tenant_id, customer_id, product_id, points_used, balance_before, status, requested_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, req.ID, req.TenantID, req.CustomerID, req.ProductID, req.PointsUsed, req.BalanceBefore,
		req.Status.String(), req.RequestedAt, req.UpdatedAt)
	return err
}

func (r *RequestsRepositoryImpl) Get(ctx context.Context, tx *sqlx.Tx, tenantID, id string) (*model.LoyaltyRequest, error) {
	var req model.LoyaltyRequest
	err := sqlx.GetContext(ctx, r.queryer(tx), &req, `SELECT `+requestCols+` FROM loyalty_requests WHERE id = ?`, id)
	if err := scope(err, req.TenantID, tenantID, model.ErrNotFound); err != nil {
		return nil, err
	}
	return &req, nil
}

// GetForUpdate locks the request row for the rest of tx.
func (r *RequestsRepositoryImpl) GetForUpdate(ctx context.Context, tx *sqlx.Tx, tenantID, id string) (*model.LoyaltyRequest, error) {
	var req model.LoyaltyRequest
	err := tx.GetContext(ctx, &req, `SELECT `+requestCols+` FROM loyalty_requests WHERE id = ?`+forUpdate(tx), id)
	if err := scope(err, req.TenantID, tenantID, model.ErrNotFound); err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateStatus applies ch only while the row is still in ch.From. ok=false
// means another writer moved it first.
func (r *RequestsRepositoryImpl) UpdateStatus(ctx context.Context, tx *sqlx.Tx, tenantID, id string, ch StatusChange) (bool, error) {
	return affected(tx.ExecContext(ctx, `
		UPDATE loyalty_requests
		SET status = ?,
		    processed_at = COALESCE(?, processed_at),
		    processed_by = COALESCE(?, processed_by),
		    expires_at = COALESCE(?, expires_at),
		    rejection_reason = COALESCE(?, rejection_reason),
		    updated_at = ?
		WHERE id = ? AND tenant_id = ? AND status = ?
	`, ch.To.String(), ch.ProcessedAt, ch.ProcessedBy, ch.ExpiresAt, ch.RejectionReason, ch.UpdatedAt,
		id, tenantID, ch.From.String()))
}

// Delete removes the row only while it is still in status.
func (r *RequestsRepositoryImpl) Delete(ctx context.Context, tx *sqlx.Tx, tenantID, id string, status model.RequestStatus) (bool, error) {
	return affected(tx.ExecContext(ctx,
		`DELETE FROM loyalty_requests WHERE id = ? AND tenant_id = ? AND status = ?`,
		id, tenantID, status.String()))
}

func (r *RequestsRepositoryImpl) List(ctx context.Context, tenantID string, f RequestFilter) ([]model.LoyaltyRequest, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := `SELECT ` + requestCols + ` FROM loyalty_requests WHERE tenant_id = ?`
	args := []any{tenantID}

	if f.CustomerID != "" {
		q += " AND customer_id = ?"
		args = append(args, f.CustomerID)
	}
	if f.ProductID != "" {
		q += " AND product_id = ?"
		args = append(args, f.ProductID)
	}
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status.String())
	}

	q += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	var rows []model.LoyaltyRequest
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *RequestsRepositoryImpl) ListByProductForUpdate(ctx context.Context, tx *sqlx.Tx, tenantID, productID string) ([]model.LoyaltyRequest, error) {
	var rows []model.LoyaltyRequest
	err := tx.SelectContext(ctx, &rows, `
		SELECT `+requestCols+` FROM loyalty_requests
		WHERE tenant_id = ? AND product_id = ?
		ORDER BY id`+forUpdate(tx), tenantID, productID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListDueForExpiry scans approved requests whose pickup window closed at or
// before now, across all tenants, oldest deadline first.
func (r *RequestsRepositoryImpl) ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]model.LoyaltyRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []model.LoyaltyRequest
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+requestCols+` FROM loyalty_requests
		WHERE status = ? AND expires_at IS NOT NULL AND expires_at <= ?
		ORDER BY expires_at, id
		LIMIT ?
	`, model.RequestApproved.String(), now, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
