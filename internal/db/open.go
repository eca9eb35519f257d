package db

import (
	"fmt"

	"github.com/jmehdipour/loyalty-backoffice/internal/config"
	"github.com/jmoiron/sqlx"
)

// Open connects to the transactional store selected by database.driver.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	switch cfg.Driver {
	case "", "mysql":
		return NewMySQLConnection(cfg.DSN, MySQLOpts{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
			PingTimeout:     cfg.PingTimeout,
		})
	case "sqlite":
		return NewSQLiteConnection(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
