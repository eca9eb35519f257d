package worker

import (
	"fmt"

	"github.com/jmehdipour/loyalty-backoffice/internal/db"
	"github.com/jmehdipour/loyalty-backoffice/internal/kafka"
	"github.com/jmehdipour/loyalty-backoffice/internal/logger"
	"github.com/jmehdipour/loyalty-backoffice/internal/repository"
	"github.com/jmehdipour/loyalty-backoffice/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Publish committed outbox events to Kafka",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ctx, stop, err := setup(cmd)
		if err != nil {
			return err
		}
		defer stop()

		dbx, err := db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
		}
		defer dbx.Close()

		producer := kafka.NewProducerFromConfig(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		defer producer.Close()

		r := worker.NewRelay(repository.NewOutboxRepository(dbx), producer,
			cfg.Relay.Interval, cfg.Relay.BatchSize, cfg.Relay.MaxAttempts)

		logger.Log.Info("relay started",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.Duration("interval", cfg.Relay.Interval),
			zap.Int("batch_size", cfg.Relay.BatchSize))
		return r.Run(ctx)
	},
}
