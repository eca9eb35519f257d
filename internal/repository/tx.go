package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// WithTx runs fn inside a new transaction, committing when fn returns nil.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	t, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}

	return t.Commit()
}

// store is embedded by every sqlx-backed repository.
type store struct {
	db *sqlx.DB
}

// withTx runs fn in the provided tx, or starts a new transaction when tx is nil.
func (s store) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	return WithTx(ctx, s.db, fn)
}

// queryer reads through tx when one is open. The sqlite pool has a single
// connection, so reading through db while holding tx would block forever.
func (s store) queryer(tx *sqlx.Tx) sqlx.QueryerContext {
	if tx != nil {
		return tx
	}
	return s.db
}

// forUpdate returns the row-locking suffix for the tx's driver. SQLite has no
// row locks; its single writer already serializes transactions.
func forUpdate(tx *sqlx.Tx) string {
	if tx.DriverName() == "mysql" {
		return " FOR UPDATE"
	}
	return ""
}

// isDuplicate reports a unique-key violation on either driver.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsConflict reports lock contention the database resolved by aborting us:
// InnoDB deadlocks and lock wait timeouts, or a busy sqlite database.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
