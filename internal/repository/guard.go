package repository

import (
	"database/sql"
	"errors"

	"github.com/jmehdipour/loyalty-backoffice/internal/model"
)

// scope applies the tenant boundary to a by-id lookup. Rows are fetched by
// primary key alone so that a row owned by another tenant can be told apart
// from a missing one.
func scope(err error, rowTenant, tenantID string, missing error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return missing
	}
	if err != nil {
		return err
	}
	if rowTenant != tenantID {
		return model.ErrCrossTenantAccess
	}
	return nil
}

// affected turns a guarded UPDATE/DELETE result into ok=false when no row matched.
func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
