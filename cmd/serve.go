package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/loyalty-backoffice/internal/db"
	httpSrv "github.com/jmehdipour/loyalty-backoffice/internal/http"
	"github.com/jmehdipour/loyalty-backoffice/internal/logger"
	"github.com/jmehdipour/loyalty-backoffice/internal/metrics"
	"github.com/jmehdipour/loyalty-backoffice/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server (and the expiry sweeper when sweeper.enabled)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap()
		if err != nil {
			return err
		}

		metrics.MustRegister(prometheus.DefaultRegisterer)

		sqlDB, err := db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
		}
		defer sqlDB.Close()

		// an in-memory sqlite store starts empty every time
		if sqlDB.DriverName() == "sqlite" {
			if err := db.Migrate(context.Background(), sqlDB); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}

		redisClient, err := db.OpenRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		if redisClient != nil {
			defer func() { _ = redisClient.Close() }()
		} else {
			logger.Log.Warn("redis not configured: per-process rate limits, /v1/stream disabled")
		}

		chDB, err := db.OpenClickHouse(cfg.ClickHouse)
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		if chDB != nil {
			defer func() { _ = chDB.Close() }()
		}

		server := httpSrv.NewServer(cfg, sqlDB, chDB, redisClient)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sweepDone := make(chan struct{})
		if cfg.Sweeper.Enabled {
			sw := worker.NewSweeper(server.Services().Redemption, cfg.Sweeper.Interval, cfg.Sweeper.BatchSize)
			go func() {
				defer close(sweepDone)
				_ = sw.Run(ctx)
			}()
		} else {
			close(sweepDone)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		select {
		case <-ctx.Done():
			logger.Log.Info("signal received, shutting down")
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.Error("http server exited", zap.Error(err))
			}
			stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		<-sweepDone

		return nil
	},
}
