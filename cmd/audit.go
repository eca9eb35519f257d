package cmd

import (
	"fmt"

	"github.com/jmehdipour/loyalty-backoffice/internal/db"
	"github.com/jmehdipour/loyalty-backoffice/internal/logger"
	"github.com/jmehdipour/loyalty-backoffice/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const auditPage = 500

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Compare every cached balance with its ledger sum",
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

		svc := service.NewSet(cfg, sqlDB)
		companies, err := svc.Companies.ListActive(ctx)
		if err != nil {
			return fmt.Errorf("list companies: %w", err)
		}

		checked, drifted := 0, 0
		for _, co := range companies {
			for offset := 0; ; offset += auditPage {
				custs, err := svc.Customers.List(ctx, co.ID, auditPage, offset)
				if err != nil {
					return fmt.Errorf("list customers of %s: %w", co.Slug, err)
				}
				for _, c := range custs {
					d, err := svc.Points.Verify(ctx, co.ID, c.ID)
					if err != nil {
						return fmt.Errorf("verify %s: %w", c.ID, err)
					}
					checked++
					if !d.OK() {
						drifted++
						logger.Log.Error("balance drift",
							zap.String("tenant", co.Slug),
							zap.String("customer_id", d.CustomerID),
							zap.Int64("cached", d.Cached),
							zap.Int64("ledger", d.Summed))
					}
				}
				if len(custs) < auditPage {
					break
				}
			}
		}

		logger.Log.Info("audit finished", zap.Int("customers", checked), zap.Int("drifted", drifted))
		if drifted > 0 {
			return fmt.Errorf("%d of %d balances drifted from the ledger", drifted, checked)
		}
		return nil
	},
}
