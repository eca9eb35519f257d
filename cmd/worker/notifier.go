package worker

import (
	"errors"
	"fmt"

	"github.com/jmehdipour/loyalty-backoffice/internal/db"
	"github.com/jmehdipour/loyalty-backoffice/internal/kafka"
	"github.com/jmehdipour/loyalty-backoffice/internal/notify"
	"github.com/jmehdipour/loyalty-backoffice/internal/worker"
	"github.com/spf13/cobra"
)

var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Fan Kafka change events out to Redis pub/sub for connected sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ctx, stop, err := setup(cmd)
		if err != nil {
			return err
		}
		defer stop()

		rdb, err := db.OpenRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		if rdb == nil {
			return errors.New("notifier needs redis.addr")
		}
		defer func() { _ = rdb.Close() }()

		consumer := kafka.NewConsumer(cfg.Kafka)
		defer consumer.Close()

		return worker.NewNotifier(consumer, notify.NewRedis(rdb, cfg.Redis.ChannelPrefix)).Run(ctx)
	},
}
