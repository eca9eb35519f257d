package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteMemoryDSN is a private in-memory database with foreign keys on and
// times stored in a sortable text layout.
const SQLiteMemoryDSN = ":memory:?_pragma=foreign_keys(1)&_time_format=sqlite"

// NewSQLiteConnection opens an embedded database. The pool is pinned to a
// single connection: in-memory databases live and die with their connection,
// and sqlite allows one writer at a time anyway.
func NewSQLiteConnection(dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		dsn = SQLiteMemoryDSN
	}
	if !strings.Contains(dsn, "_time_format") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_time_format=sqlite"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	return db, nil
}
