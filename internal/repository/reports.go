package repository

import (
	"context"
	"time"

	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmoiron/sqlx"
)

// ReportsRepository serves per-product redemption statistics for a tenant.
// Requests are bucketed by their creation time in [from, to).
type ReportsRepository interface {
	RedemptionStats(ctx context.Context, tenantID string, from, to time.Time) ([]model.ProductStats, error)
}

// chReportsRepository reads the event stream that ClickHouse ingests from the
// loyalty.events Kafka topic.
type chReportsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHReportsRepository(ch *sqlx.DB) ReportsRepository {
	return &chReportsRepository{ch: ch}
}

func (r *chReportsRepository) RedemptionStats(ctx context.Context, tenantID string, from, to time.Time) ([]model.ProductStats, error) {
	const q = `
		SELECT
		    product_id,
		    toInt64(count())                                    AS requested,
		    toInt64(countIf(last = 'request.created'))          AS pending,
		    toInt64(countIf(last = 'request.approved'))         AS approved,
		    toInt64(countIf(last = 'request.rejected'))         AS rejected,
		    toInt64(countIf(last = 'request.completed'))        AS completed,
		    toInt64(sumIf(points, last = 'request.completed'))  AS points_redeemed
		FROM (
		    SELECT
		        request_id,
		        any(product_id)   AS product_id,
		        argMax(kind, at)  AS last,
		        max(points)       AS points,
		        min(at)           AS first_at
		    FROM loyalty.request_events
		    WHERE tenant_id = ?
		    GROUP BY request_id
		)
		WHERE first_at >= ? AND first_at < ? AND last != 'request.deleted'
		GROUP BY product_id
		ORDER BY requested DESC, product_id
	`
	var rows []model.ProductStats
	if err := r.ch.SelectContext(ctx, &rows, q, tenantID, from, to); err != nil {
		return nil, err
	}
	return rows, nil
}

// sqlReportsRepository aggregates straight from the transactional store. Used
// when no ClickHouse DSN is configured.
type sqlReportsRepository struct{ store }

func NewSQLReportsRepository(db *sqlx.DB) ReportsRepository {
	return &sqlReportsRepository{store{db: db}}
}

func (r *sqlReportsRepository) RedemptionStats(ctx context.Context, tenantID string, from, to time.Time) ([]model.ProductStats, error) {
	const q = `
		SELECT
		    product_id,
		    COUNT(*) AS requested,
		    SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END) AS pending,
		    SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END) AS approved,
		    SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END) AS rejected,
		    SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) AS completed,
		    SUM(CASE WHEN status = 'completed' THEN points_used ELSE 0 END) AS points_redeemed
		FROM loyalty_requests
		WHERE tenant_id = ? AND requested_at >= ? AND requested_at < ?
		GROUP BY product_id
		ORDER BY requested DESC, product_id
	`
	var rows []model.ProductStats
	if err := r.db.SelectContext(ctx, &rows, q, tenantID, from, to); err != nil {
		return nil, err
	}
	return rows, nil
}
