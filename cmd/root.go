package cmd

import (
	"fmt"
	"os"

	"github.com/jmehdipour/loyalty-backoffice/cmd/worker"
	"github.com/jmehdipour/loyalty-backoffice/internal/config"
	"github.com/jmehdipour/loyalty-backoffice/internal/logger"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	rootCmd = &cobra.Command{
		Use:   "loyalty-backoffice",
		Short: "Loyalty back office: points ledger and redemption requests",
	}
)

func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file (optional; LOYALTY_* env vars override)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(worker.NewWorkerCmd())
}

// bootstrap loads configuration and installs the process logger.
func bootstrap() (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Encoding); err != nil {
		return config.Config{}, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}
