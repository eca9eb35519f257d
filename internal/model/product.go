package model

import "time"

type Product struct {
	ID             string    `db:"id" json:"id"`
	TenantID       string    `db:"tenant_id" json:"tenant_id"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	PointsRequired int64     `db:"points_required" json:"points_required"`
	Available      bool      `db:"available" json:"available"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
