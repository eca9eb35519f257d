package cmd

import (
	"fmt"

	"github.com/jmehdipour/loyalty-backoffice/internal/db"
	"github.com/jmehdipour/loyalty-backoffice/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateReset bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables (and the ClickHouse read model when configured)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		sqlDB, err := db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer sqlDB.Close()

		if migrateReset {
			logger.Log.Warn("dropping all tables")
			if err := db.Reset(ctx, sqlDB); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
		}
		if err := db.Migrate(ctx, sqlDB); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Log.Info("migration complete", zap.String("driver", sqlDB.DriverName()))

		chDB, err := db.OpenClickHouse(cfg.ClickHouse)
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		if chDB == nil {
			return nil
		}
		defer chDB.Close()

		if err := db.MigrateClickHouse(ctx, chDB, cfg.Kafka); err != nil {
			return fmt.Errorf("clickhouse migrate: %w", err)
		}
		logger.Log.Info("clickhouse migration complete", zap.String("topic", cfg.Kafka.Topic))
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateReset, "reset", false, "drop all tables first (dev only)")
}
