package model

import "time"

// Customer is a tenant-scoped loyalty member. Points is the cached balance and
// is only ever changed together with a ledger entry.
type Customer struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	TaxID     string    `db:"tax_id" json:"tax_id"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	Points    int64     `db:"points" json:"points"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
