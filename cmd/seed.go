package cmd

import (
	"context"
	"fmt"

	"github.com/jmehdipour/loyalty-backoffice/internal/db"
	"github.com/jmehdipour/loyalty-backoffice/internal/logger"
	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmehdipour/loyalty-backoffice/internal/service"
	"github.com/jmehdipour/loyalty-backoffice/internal/service/backoffice"
	"github.com/jmehdipour/loyalty-backoffice/internal/util"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo companies, customers, products and sales",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap()
		if err != nil {
			return err
		}

		sqlDB, err := db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer sqlDB.Close()

		if sqlDB.DriverName() == "sqlite" {
			if err := db.Migrate(cmd.Context(), sqlDB); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}

		return seedDemo(cmd.Context(), service.NewSet(cfg, sqlDB))
	},
}

type demoCompany struct {
	name, slug, apiKey string
	active             bool
	ratio              string
}

var demoCompanies = []demoCompany{
	{name: "Acme Stores", slug: "acme", apiKey: "11111111111111111111111111111111", active: true, ratio: "10"},
	{name: "Globex Coffee", slug: "globex", apiKey: "22222222222222222222222222222222", active: true, ratio: "2.5"},
	{name: "Suspended Inc", slug: "suspended", apiKey: "44444444444444444444444444444444", active: false, ratio: "10"},
}

var demoCustomers = []backoffice.CustomerInput{
	{Name: "Ana Souza", TaxID: "123.456.789-00", Email: "ana@example.com", Phone: "+55 11 90000-0001"},
	{Name: "Bruno Lima", TaxID: "987.654.321-00", Email: "bruno@example.com"},
	{Name: "Carla Dias", TaxID: "111.222.333-44", Phone: "+55 21 90000-0003"},
}

var demoProducts = []backoffice.ProductInput{
	{Name: "Coffee mug", Description: "Ceramic, 300ml", PointsRequired: 30},
	{Name: "Tote bag", PointsRequired: 80},
	{Name: "Gift card 50", Description: "Store credit", PointsRequired: 500},
}

// seedDemo is idempotent per company: a company whose API key already exists
// is left untouched.
func seedDemo(ctx context.Context, svc *service.Set) error {
	for _, dc := range demoCompanies {
		existing, err := svc.Companies.GetByAPIKey(ctx, dc.apiKey)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", dc.slug, err)
		}
		if existing != nil {
			logger.Log.Info("seed: company exists, skipping", zap.String("slug", dc.slug))
			continue
		}

		co := model.Company{
			ID:        util.New(),
			Name:      dc.name,
			Slug:      dc.slug,
			APIKey:    dc.apiKey,
			IsActive:  dc.active,
			CreatedAt: util.Now(),
		}
		if err := svc.Companies.Insert(ctx, nil, co); err != nil {
			return fmt.Errorf("insert company %s: %w", dc.slug, err)
		}
		if !dc.active {
			continue
		}

		if _, err := svc.Points.SetConversionRatio(ctx, co.ID, decimal.RequireFromString(dc.ratio)); err != nil {
			return fmt.Errorf("ratio %s: %w", dc.slug, err)
		}
		for _, p := range demoProducts {
			if _, err := svc.Backoffice.CreateProduct(ctx, co.ID, p); err != nil {
				return fmt.Errorf("product %q: %w", p.Name, err)
			}
		}
		for i, in := range demoCustomers {
			c, err := svc.Backoffice.EnrollCustomer(ctx, co.ID, in)
			if err != nil {
				return fmt.Errorf("customer %q: %w", in.Name, err)
			}
			amount := decimal.NewFromInt(int64(250 * (i + 1)))
			if _, err := svc.Points.RecordSale(ctx, co.ID, c.ID, amount, "Welcome purchase", "seed"); err != nil {
				return fmt.Errorf("sale for %q: %w", in.Name, err)
			}
		}
		logger.Log.Info("seed: company created", zap.String("slug", dc.slug), zap.String("api_key", dc.apiKey))
	}
	return nil
}
