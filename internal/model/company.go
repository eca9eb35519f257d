package model

import "time"

// Company is a tenant. Provisioning happens elsewhere; this service only reads it.
type Company struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Slug      string    `db:"slug"`
	APIKey    string    `db:"api_key"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}
