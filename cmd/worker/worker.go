package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmehdipour/loyalty-backoffice/internal/config"
	"github.com/jmehdipour/loyalty-backoffice/internal/logger"
	"github.com/jmehdipour/loyalty-backoffice/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// NewWorkerCmd returns the parent "worker" command.
func NewWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run background workers",
	}
	// attach subcommands
	cmd.AddCommand(sweeperCmd)
	cmd.AddCommand(relayCmd)
	cmd.AddCommand(notifierCmd)

	return cmd
}

// setup loads config from the root --config flag, installs the logger and
// registers metrics. The returned context ends on SIGINT/SIGTERM.
func setup(cmd *cobra.Command) (config.Config, context.Context, context.CancelFunc, error) {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Encoding); err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return cfg, ctx, stop, nil
}
