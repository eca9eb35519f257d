package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PointsConfig holds the per-tenant conversion ratio used when a sale is
// turned into earned points. Changes apply to future sales only.
type PointsConfig struct {
	TenantID              string          `db:"tenant_id" json:"tenant_id"`
	CurrencyUnitsPerPoint decimal.Decimal `db:"currency_units_per_point" json:"currency_units_per_point"`
	UpdatedAt             time.Time       `db:"updated_at" json:"updated_at"`
}

// PointsFor converts a purchase amount into whole points, discarding the remainder.
func (c PointsConfig) PointsFor(amount decimal.Decimal) int64 {
	if !c.CurrencyUnitsPerPoint.IsPositive() || !amount.IsPositive() {
		return 0
	}
	return amount.Div(c.CurrencyUnitsPerPoint).Floor().IntPart()
}
