// Package service wires the domain services over one transactional store.
package service

import (
	"github.com/jmehdipour/loyalty-backoffice/internal/config"
	"github.com/jmehdipour/loyalty-backoffice/internal/repository"
	"github.com/jmehdipour/loyalty-backoffice/internal/service/backoffice"
	"github.com/jmehdipour/loyalty-backoffice/internal/service/points"
	"github.com/jmehdipour/loyalty-backoffice/internal/service/redemption"
	"github.com/jmoiron/sqlx"
)

// Set holds the services and the repositories the outer layers read directly.
type Set struct {
	Companies *repository.CompaniesRepositoryImpl
	Customers *repository.CustomersRepositoryImpl
	Outbox    *repository.OutboxRepositoryImpl

	Points     *points.Service
	Backoffice *backoffice.Service
	Redemption *redemption.Service
}

func NewSet(cfg config.Config, sqlDB *sqlx.DB) *Set {
	companiesRepo := repository.NewCompaniesRepository(sqlDB)
	customersRepo := repository.NewCustomersRepository(sqlDB)
	productsRepo := repository.NewProductsRepository(sqlDB)
	outboxRepo := repository.NewOutboxRepository(sqlDB)

	ratio, _ := cfg.Points.DefaultRatio() // validated by config.Load
	timeout := cfg.Database.QueryTimeout

	pointsSvc := points.New(sqlDB,
		customersRepo,
		repository.NewLedgerRepository(sqlDB),
		repository.NewSalesRepository(sqlDB),
		repository.NewPointsConfigRepository(sqlDB),
		outboxRepo,
		points.Options{Topic: cfg.Kafka.Topic, DefaultRatio: ratio, Timeout: timeout},
	)

	return &Set{
		Companies:  companiesRepo,
		Customers:  customersRepo,
		Outbox:     outboxRepo,
		Points:     pointsSvc,
		Backoffice: backoffice.New(sqlDB, customersRepo, productsRepo, timeout, nil),
		Redemption: redemption.New(sqlDB,
			customersRepo,
			productsRepo,
			repository.NewRequestsRepository(sqlDB),
			outboxRepo,
			pointsSvc,
			redemption.Options{Topic: cfg.Kafka.Topic, PickupWindow: cfg.Redemption.PickupWindow, Timeout: timeout},
		),
	}
}
