package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmoiron/sqlx"
)

type PointsConfigRepository interface {
	Get(ctx context.Context, tx *sqlx.Tx, tenantID string) (*model.PointsConfig, error)
	Upsert(ctx context.Context, tx *sqlx.Tx, cfg model.PointsConfig) error
}

type PointsConfigRepositoryImpl struct{ store }

func NewPointsConfigRepository(db *sqlx.DB) *PointsConfigRepositoryImpl {
	return &PointsConfigRepositoryImpl{store{db: db}}
}

var _ PointsConfigRepository = (*PointsConfigRepositoryImpl)(nil)

// Get returns (nil, nil) when the tenant has never configured a ratio.
func (r *PointsConfigRepositoryImpl) Get(ctx context.Context, tx *sqlx.Tx, tenantID string) (*model.PointsConfig, error) {
	var c model.PointsConfig
	err := sqlx.GetContext(ctx, r.queryer(tx), &c, `
		SELECT tenant_id, currency_units_per_point, updated_at
		FROM points_config WHERE tenant_id = ?
	`, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Upsert is update-then-insert so the same statement set runs on both drivers.
func (r *PointsConfigRepositoryImpl) Upsert(ctx context.Context, tx *sqlx.Tx, cfg model.PointsConfig) error {
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		ok, err := affected(tx.ExecContext(ctx, `
			UPDATE points_config SET currency_units_per_point = ?, updated_at = ?
			WHERE tenant_id = ?
		`, cfg.CurrencyUnitsPerPoint, cfg.UpdatedAt, cfg.TenantID))
		if err != nil || ok {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO points_config (tenant_id, currency_units_per_point, updated_at)
			VALUES (?, ?, ?)
		`, cfg.TenantID, cfg.CurrencyUnitsPerPoint, cfg.UpdatedAt)
		if isDuplicate(err) {
			return model.ErrConflict
		}
		return err
	})
}
