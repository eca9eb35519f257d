package points

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmehdipour/loyalty-backoffice/internal/metrics"
	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmehdipour/loyalty-backoffice/internal/repository"
	"github.com/jmehdipour/loyalty-backoffice/internal/util"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Options tunes the service; zero values fall back to defaults.
type Options struct {
	Topic        string          // outbox topic for balance.changed events
	DefaultRatio decimal.Decimal // currency units per point when a tenant has no config
	Timeout      time.Duration   // per-call bound
	Clock        func() time.Time
}

// Service owns the points ledger and the cached balance derived from it.
// Every balance change goes through AppendTx.
type Service struct {
	db        *sqlx.DB
	customers repository.CustomersRepository
	ledger    repository.LedgerRepository
	sales     repository.SalesRepository
	configs   repository.PointsConfigRepository
	outbox    repository.OutboxRepository

	topic        string
	defaultRatio decimal.Decimal
	timeout      time.Duration
	now          func() time.Time
}

// New constructs the points service.
func New(
	db *sqlx.DB,
	customersRepo repository.CustomersRepository,
	ledgerRepo repository.LedgerRepository,
	salesRepo repository.SalesRepository,
	configsRepo repository.PointsConfigRepository,
	outboxRepo repository.OutboxRepository,
	opts Options,
) *Service {
	if opts.Topic == "" {
		opts.Topic = "loyalty.events"
	}
	if !opts.DefaultRatio.IsPositive() {
		opts.DefaultRatio = decimal.NewFromInt(10)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = util.Now
	}
	return &Service{
		db:           db,
		customers:    customersRepo,
		ledger:       ledgerRepo,
		sales:        salesRepo,
		configs:      configsRepo,
		outbox:       outboxRepo,
		topic:        opts.Topic,
		defaultRatio: opts.DefaultRatio,
		timeout:      opts.Timeout,
		now:          opts.Clock,
	}
}

// Drift compares the cached balance with the ledger sum.
type Drift struct {
	CustomerID string `json:"customer_id"`
	Cached     int64  `json:"cached"`
	Summed     int64  `json:"summed"`
}

func (d Drift) OK() bool { return d.Cached == d.Summed }

// AppendTx records entry and moves the customer's cached balance by the same
// amount inside tx. The customer row is locked first; a balance that would go
// negative fails with ErrInsufficientPoints and leaves nothing written.
// ID and CreatedAt are assigned here.
func (s *Service) AppendTx(ctx context.Context, tx *sqlx.Tx, entry model.LedgerEntry) (model.LedgerEntry, error) {
	if err := entry.Validate(); err != nil {
		return model.LedgerEntry{}, err
	}

	cust, err := s.customers.GetForUpdate(ctx, tx, entry.TenantID, entry.CustomerID)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	if cust.Points+entry.Amount < 0 {
		return model.LedgerEntry{}, model.ErrInsufficientPoints
	}

	at := s.now()
	entry.ID = util.NewAt(at)
	entry.CreatedAt = at

	if err := s.customers.ApplyPoints(ctx, tx, entry.TenantID, entry.CustomerID, entry.Amount, at); err != nil {
		return model.LedgerEntry{}, err
	}
	if err := s.ledger.Insert(ctx, tx, entry); err != nil {
		return model.LedgerEntry{}, fmt.Errorf("insert ledger entry: %w", err)
	}

	env := model.Envelope{
		ID:         entry.ID,
		TenantID:   entry.TenantID,
		Kind:       model.EventBalanceChanged,
		CustomerID: entry.CustomerID,
		Points:     cust.Points + entry.Amount,
		At:         at,
	}
	if err := s.outbox.InsertEnvelope(ctx, tx, s.topic, env); err != nil {
		return model.LedgerEntry{}, fmt.Errorf("outbox: %w", err)
	}
	return entry, nil
}

// Append commits a single ledger entry for a customer of tenantID.
func (s *Service) Append(ctx context.Context, tenantID string, entry model.LedgerEntry) (model.LedgerEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entry.TenantID = tenantID
	var out model.LedgerEntry
	err := repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		out, err = s.AppendTx(ctx, tx, entry)
		return err
	})
	if err != nil {
		return model.LedgerEntry{}, wrap(err)
	}
	metrics.LedgerEntriesTotal.WithLabelValues(out.Kind.String()).Inc()
	return out, nil
}

// BalanceOf reads the cached balance.
func (s *Service) BalanceOf(ctx context.Context, tenantID, customerID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	c, err := s.customers.Get(ctx, nil, tenantID, customerID)
	if err != nil {
		return 0, err
	}
	return c.Points, nil
}

// ListLedger returns at most limit entries after the cursor, oldest first.
// Pass the last returned ID as after to continue; an empty page ends the walk.
func (s *Service) ListLedger(ctx context.Context, tenantID, customerID, after string, limit int) ([]model.LedgerEntry, error) {
	return s.ListLedgerKind(ctx, tenantID, customerID, "", after, limit)
}

// ListLedgerKind is ListLedger restricted to one entry kind.
func (s *Service) ListLedgerKind(ctx context.Context, tenantID, customerID string, kind model.EntryKind, after string, limit int) ([]model.LedgerEntry, error) {
	if kind != "" && !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown entry kind %q", model.ErrInvalidInput, kind)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.customers.Get(ctx, nil, tenantID, customerID); err != nil {
		return nil, err
	}
	return s.ledger.ListByCustomer(ctx, nil, tenantID, customerID, kind, after, limit)
}

// Verify re-sums the ledger and compares it with the cached balance in one
// snapshot.
func (s *Service) Verify(ctx context.Context, tenantID, customerID string) (Drift, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	d := Drift{CustomerID: customerID}
	err := repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		c, err := s.customers.GetForUpdate(ctx, tx, tenantID, customerID)
		if err != nil {
			return err
		}
		d.Cached = c.Points
		d.Summed, err = s.ledger.SumByCustomer(ctx, tx, tenantID, customerID)
		return err
	})
	return d, err
}

// ConversionRatio returns the tenant's currency units per point, or the
// configured default when the tenant never set one.
func (s *Service) ConversionRatio(ctx context.Context, tenantID string) (model.PointsConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.ratio(ctx, nil, tenantID)
}

func (s *Service) ratio(ctx context.Context, tx *sqlx.Tx, tenantID string) (model.PointsConfig, error) {
	cfg, err := s.configs.Get(ctx, tx, tenantID)
	if err != nil {
		return model.PointsConfig{}, err
	}
	if cfg == nil {
		return model.PointsConfig{TenantID: tenantID, CurrencyUnitsPerPoint: s.defaultRatio}, nil
	}
	return *cfg, nil
}

// SetConversionRatio changes the ratio for future sales only.
func (s *Service) SetConversionRatio(ctx context.Context, tenantID string, ratio decimal.Decimal) (model.PointsConfig, error) {
	if !ratio.IsPositive() {
		return model.PointsConfig{}, model.ErrInvalidAmount
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cfg := model.PointsConfig{TenantID: tenantID, CurrencyUnitsPerPoint: ratio, UpdatedAt: s.now()}
	if err := s.configs.Upsert(ctx, nil, cfg); err != nil {
		return model.PointsConfig{}, wrap(err)
	}
	return cfg, nil
}

// RecordSale stores a purchase and credits floor(amount / ratio) earned
// points. A sale too small to earn a point is stored without a ledger entry.
func (s *Service) RecordSale(ctx context.Context, tenantID, customerID string, amount decimal.Decimal, description, actor string) (model.Sale, error) {
	if !amount.IsPositive() {
		return model.Sale{}, model.ErrInvalidAmount
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var sale model.Sale
	var earned *model.LedgerEntry
	err := repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := s.customers.GetForUpdate(ctx, tx, tenantID, customerID); err != nil {
			return err
		}
		cfg, err := s.ratio(ctx, tx, tenantID)
		if err != nil {
			return err
		}

		at := s.now()
		sale = model.Sale{
			ID:           util.NewAt(at),
			TenantID:     tenantID,
			CustomerID:   customerID,
			Amount:       amount,
			PointsEarned: cfg.PointsFor(amount),
			Description:  strings.TrimSpace(description),
			CreatedAt:    at,
		}
		if err := s.sales.Insert(ctx, tx, sale); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		if sale.PointsEarned == 0 {
			return nil
		}

		e, err := s.AppendTx(ctx, tx, model.LedgerEntry{
			TenantID:    tenantID,
			CustomerID:  customerID,
			Amount:      sale.PointsEarned,
			Kind:        model.EntryEarned,
			Description: saleDescription(sale),
			ReferenceID: &sale.ID,
			CreatedBy:   optional(actor),
		})
		if err != nil {
			return err
		}
		earned = &e
		return nil
	})
	if err != nil {
		return model.Sale{}, wrap(err)
	}
	if earned != nil {
		metrics.LedgerEntriesTotal.WithLabelValues(earned.Kind.String()).Inc()
	}
	return sale, nil
}

type AdjustKind string

const (
	AdjustCredit    AdjustKind = "credit"
	AdjustDebit     AdjustKind = "debit"
	AdjustRemoveAll AdjustKind = "remove_all"
)

// Adjust applies a manual correction. amount is ignored for remove_all,
// which debits the whole current balance.
func (s *Service) Adjust(ctx context.Context, tenantID, customerID string, kind AdjustKind, amount int64, description, actor string) (model.LedgerEntry, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return model.LedgerEntry{}, fmt.Errorf("%w: description is required", model.ErrInvalidInput)
	}

	entry := model.LedgerEntry{
		TenantID:    tenantID,
		CustomerID:  customerID,
		Description: description,
		CreatedBy:   optional(actor),
	}
	switch kind {
	case AdjustCredit:
		entry.Kind, entry.Amount = model.EntryCredit, amount
	case AdjustDebit:
		entry.Kind, entry.Amount = model.EntryDebit, -amount
	case AdjustRemoveAll:
		entry.Kind = model.EntryDebit
	default:
		return model.LedgerEntry{}, fmt.Errorf("%w: unknown adjustment %q", model.ErrInvalidInput, kind)
	}
	if kind != AdjustRemoveAll && amount <= 0 {
		return model.LedgerEntry{}, model.ErrInvalidAmount
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out model.LedgerEntry
	err := repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if kind == AdjustRemoveAll {
			c, err := s.customers.GetForUpdate(ctx, tx, tenantID, customerID)
			if err != nil {
				return err
			}
			entry.Amount = -c.Points
		}
		var err error
		out, err = s.AppendTx(ctx, tx, entry)
		return err
	})
	if err != nil {
		return model.LedgerEntry{}, wrap(err)
	}
	metrics.LedgerEntriesTotal.WithLabelValues(out.Kind.String()).Inc()
	return out, nil
}

func saleDescription(s model.Sale) string {
	if s.Description != "" {
		return s.Description
	}
	return "Purchase of " + s.Amount.StringFixed(2)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// wrap maps lock contention onto ErrConflict and leaves everything else as is.
func wrap(err error) error {
	if err == nil || errors.Is(err, model.ErrConflict) {
		return err
	}
	if repository.IsConflict(err) {
		return fmt.Errorf("%w: %v", model.ErrConflict, err)
	}
	return err
}
