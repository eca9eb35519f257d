package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations
var migrations embed.FS

// tables in dependency order; Reset drops them in reverse.
var tables = []string{
	"companies",
	"customers",
	"products",
	"points_ledger",
	"loyalty_requests",
	"points_config",
	"sales",
	"outbox",
}

// Dialect maps a sqlx driver name onto a migrations directory.
func Dialect(driverName string) (string, error) {
	switch driverName {
	case "mysql":
		return "mysql", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("no migrations for driver %q", driverName)
	}
}

// Migrate applies every embedded migration for the connection's dialect.
// Statements are idempotent (IF NOT EXISTS), so re-running is safe.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	dialect, err := Dialect(db.DriverName())
	if err != nil {
		return err
	}

	dir := path.Join("migrations", dialect)
	entries, err := fs.ReadDir(migrations, dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := migrations.ReadFile(path.Join(dir, name))
		if err != nil {
			return err
		}
		for i, stmt := range splitStatements(string(raw)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("%s statement %d: %w", name, i+1, err)
			}
		}
	}
	return nil
}

// Reset drops all tables. Dev only.
func Reset(ctx context.Context, db *sqlx.DB) error {
	dialect, err := Dialect(db.DriverName())
	if err != nil {
		return err
	}

	if dialect == "mysql" {
		if _, err := db.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
			return fmt.Errorf("disable fk checks: %w", err)
		}
		defer func() { _, _ = db.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1") }()
	}

	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+tables[i]); err != nil {
			return fmt.Errorf("drop %s: %w", tables[i], err)
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
