package model

import "time"

type OutboxEvent struct {
	ID          int64      `db:"id"`
	Aggregate   string     `db:"aggregate"`    // "request" | "customer"
	AggregateID string     `db:"aggregate_id"` // request or customer ID
	TenantID    string     `db:"tenant_id"`
	Topic       string     `db:"topic"`
	Payload     []byte     `db:"payload"`
	Attempts    int        `db:"attempts"`
	CreatedAt   time.Time  `db:"created_at"`
	PublishedAt *time.Time `db:"published_at"`
}
