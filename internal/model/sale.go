package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Sale struct {
	ID           string          `db:"id" json:"id"`
	TenantID     string          `db:"tenant_id" json:"tenant_id"`
	CustomerID   string          `db:"customer_id" json:"customer_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	PointsEarned int64           `db:"points_earned" json:"points_earned"`
	Description  string          `db:"description" json:"description"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
