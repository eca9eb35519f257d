package db

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmehdipour/loyalty-backoffice/internal/config"
	"github.com/jmoiron/sqlx"
)

//go:embed migrations/clickhouse/*.sql
var chMigrations embed.FS

type ClickHouseOpts struct {
	DSN             string // e.g. clickhouse://default:@localhost:9000/loyalty?dial_timeout=5s&compress=true
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration // default 3s
}

// OpenClickHouse returns (nil, nil) when no DSN is configured; reports are
// then aggregated from the transactional store.
func OpenClickHouse(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.DSN == "" {
		return nil, nil
	}
	return NewClickHouseConnection(ClickHouseOpts{
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		PingTimeout:     cfg.PingTimeout,
	})
}

func NewClickHouseConnection(opts ClickHouseOpts) (*sqlx.DB, error) {
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 3 * time.Second
	}
	db, err := sqlx.Open("clickhouse", opts.DSN)
	if err != nil {
		return nil, err
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.PingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// MigrateClickHouse creates the request event read model. ClickHouse consumes
// the Kafka topic itself through a Kafka engine table and a materialized view.
func MigrateClickHouse(ctx context.Context, ch *sqlx.DB, kafka config.KafkaConfig) error {
	files, err := chMigrations.ReadDir("migrations/clickhouse")
	if err != nil {
		return err
	}
	vars := strings.NewReplacer(
		"{{brokers}}", strings.Join(kafka.Brokers, ","),
		"{{topic}}", kafka.Topic,
	)
	for _, f := range files {
		raw, err := chMigrations.ReadFile("migrations/clickhouse/" + f.Name())
		if err != nil {
			return err
		}
		for _, stmt := range splitStatements(vars.Replace(string(raw))) {
			if _, err := ch.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("%s: %w", f.Name(), err)
			}
		}
	}
	return nil
}
