package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmoiron/sqlx"
)

// OutboxRepository defines persistence methods for the outbox table.
type OutboxRepository interface {
	// Insert writes a single outbox event. If tx is nil, it will open/commit
	// an internal transaction; otherwise it uses the given tx.
	Insert(ctx context.Context, tx *sqlx.Tx, aggregate, aggregateID, tenantID, topic string, payload []byte, at time.Time) error
	InsertEnvelope(ctx context.Context, tx *sqlx.Tx, topic string, env model.Envelope) error
	FetchUnpublished(ctx context.Context, limit, maxAttempts int) ([]model.OutboxEvent, error)
	MarkPublished(ctx context.Context, ids []int64, at time.Time) error
	MarkFailed(ctx context.Context, ids []int64) error
}

// OutboxRepositoryImpl is a sqlx-backed implementation.
type OutboxRepositoryImpl struct{ store }

// NewOutboxRepository constructs an OutboxRepositoryImpl.
func NewOutboxRepository(db *sqlx.DB) *OutboxRepositoryImpl {
	return &OutboxRepositoryImpl{store{db: db}}
}

var _ OutboxRepository = (*OutboxRepositoryImpl)(nil)

// Insert adds an event row to outbox. The relay worker publishes it to Kafka
// under the `topic` column.
func (r *OutboxRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, aggregate, aggregateID, tenantID, topic string, payload []byte, at time.Time) error {
	const q = `
		INSERT INTO outbox (aggregate, aggregate_id, tenant_id, topic, payload, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, aggregate, aggregateID, tenantID, topic, payload, at)

		return err
	})
}

// InsertEnvelope marshals env and files it under its request (or customer) aggregate.
func (r *OutboxRepositoryImpl) InsertEnvelope(ctx context.Context, tx *sqlx.Tx, topic string, env model.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	aggregate, aggregateID := "request", env.RequestID
	if aggregateID == "" {
		aggregate, aggregateID = "customer", env.CustomerID
	}
	return r.Insert(ctx, tx, aggregate, aggregateID, env.TenantID, topic, payload, env.At)
}

func (r *OutboxRepositoryImpl) FetchUnpublished(ctx context.Context, limit, maxAttempts int) ([]model.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `
		SELECT id, aggregate, aggregate_id, tenant_id, topic, payload, attempts, created_at, published_at
		FROM outbox
		WHERE published_at IS NULL`
	args := []any{}
	if maxAttempts > 0 {
		q += " AND attempts < ?"
		args = append(args, maxAttempts)
	}
	q += " ORDER BY id LIMIT ?"
	args = append(args, limit)

	var rows []model.OutboxEvent
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *OutboxRepositoryImpl) MarkPublished(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE outbox SET published_at = ? WHERE id IN (?)`, at, ids)
	if err != nil {
		return err
	}
	query = r.db.Rebind(query)

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *OutboxRepositoryImpl) MarkFailed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE outbox SET attempts = attempts + 1 WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	query = r.db.Rebind(query)

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}
