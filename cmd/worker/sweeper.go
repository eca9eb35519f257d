package worker

import (
	"fmt"

	"github.com/jmehdipour/loyalty-backoffice/internal/db"
	"github.com/jmehdipour/loyalty-backoffice/internal/service"
	"github.com/jmehdipour/loyalty-backoffice/internal/worker"
	"github.com/spf13/cobra"
)

var sweeperCmd = &cobra.Command{
	Use:   "sweeper",
	Short: "Complete approved requests whose pickup window has closed",
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

		svc := service.NewSet(cfg, dbx)
		return worker.NewSweeper(svc.Redemption, cfg.Sweeper.Interval, cfg.Sweeper.BatchSize).Run(ctx)
	},
}
