package redemption

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
)

// Ledger appends a balance-changing entry inside an open transaction.
type Ledger interface {
	AppendTx(ctx context.Context, tx *sqlx.Tx, entry model.LedgerEntry) (model.LedgerEntry, error)
}

type Options struct {
	Topic        string
	PickupWindow time.Duration // approved -> expires_at
	Timeout      time.Duration
	Clock        func() time.Time
}

// Service drives loyalty requests through pending -> approved -> completed
// and pending -> rejected. Every transition runs in one transaction that
// locks the request row (and, for balance effects, the customer row) and
// updates status only while it still holds the expected value.
//
// Lock order is product, request, customer.
type Service struct {
	db        *sqlx.DB
	customers repository.CustomersRepository
	products  repository.ProductsRepository
	requests  repository.RequestsRepository
	outbox    repository.OutboxRepository
	ledger    Ledger

	topic   string
	window  time.Duration
	timeout time.Duration
	now     func() time.Time
}

func New(
	db *sqlx.DB,
	customersRepo repository.CustomersRepository,
	productsRepo repository.ProductsRepository,
	requestsRepo repository.RequestsRepository,
	outboxRepo repository.OutboxRepository,
	ledger Ledger,
	opts Options,
) *Service {
	if opts.Topic == "" {
		opts.Topic = "loyalty.events"
	}
	if opts.PickupWindow <= 0 {
		opts.PickupWindow = 24 * time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = util.Now
	}
	return &Service{
		db:        db,
		customers: customersRepo,
		products:  productsRepo,
		requests:  requestsRepo,
		outbox:    outboxRepo,
		ledger:    ledger,
		topic:     opts.Topic,
		window:    opts.PickupWindow,
		timeout:   opts.Timeout,
		now:       opts.Clock,
	}
}

// Create escrows the product's current price from the customer's balance and
// opens a pending request that snapshots it.
func (s *Service) Create(ctx context.Context, tenantID, customerID, productID, actor string) (model.LoyaltyRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var req model.LoyaltyRequest
	err := repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		p, err := s.products.GetForUpdate(ctx, tx, tenantID, productID)
		if err != nil {
			return err
		}
		c, err := s.customers.GetForUpdate(ctx, tx, tenantID, customerID)
		if err != nil {
			return err
		}
		if !p.Available {
			return model.ErrProductUnavailable
		}
		if c.Points < p.PointsRequired {
			return model.ErrInsufficientPoints
		}

		at := s.now()
		req = model.LoyaltyRequest{
			ID:            util.NewAt(at),
			TenantID:      tenantID,
			CustomerID:    customerID,
			ProductID:     productID,
			PointsUsed:    p.PointsRequired,
			BalanceBefore: c.Points,
			Status:        model.RequestPending,
			RequestedAt:   at,
			UpdatedAt:     at,
		}
		if err := s.requests.Insert(ctx, tx, req); err != nil {
			return fmt.Errorf("insert request: %w", err)
		}
		if _, err := s.ledger.AppendTx(ctx, tx, model.LedgerEntry{
			TenantID:    tenantID,
			CustomerID:  customerID,
			Amount:      -req.PointsUsed,
			Kind:        model.EntrySpent,
			Description: "Redemption of " + p.Name,
			ReferenceID: &req.ID,
			CreatedBy:   optional(actor),
		}); err != nil {
			return err
		}
		return s.emit(ctx, tx, model.EventRequestCreated, req, at)
	})
	if err != nil {
		return model.LoyaltyRequest{}, wrap(err)
	}

	metrics.LedgerEntriesTotal.WithLabelValues(model.EntrySpent.String()).Inc()
	observe(model.RequestPending, actor)
	return req, nil
}

// Approve opens the pickup window. No points move.
func (s *Service) Approve(ctx context.Context, tenantID, id, actor string) (model.LoyaltyRequest, error) {
	return s.transition(ctx, tenantID, id, model.RequestPending, model.RequestApproved, actor,
		func(_ *sqlx.Tx, req *model.LoyaltyRequest, ch *repository.StatusChange) error {
			exp := ch.UpdatedAt.Add(s.window)
			ch.ProcessedAt = &ch.UpdatedAt
			ch.ProcessedBy = optional(actor)
			ch.ExpiresAt = &exp
			return nil
		})
}

// Reject closes a pending request, returning the escrowed points when refund
// is set and forfeiting them otherwise.
func (s *Service) Reject(ctx context.Context, tenantID, id, actor string, refund bool, reason string) (model.LoyaltyRequest, error) {
	refunded := false
	req, err := s.transition(ctx, tenantID, id, model.RequestPending, model.RequestRejected, actor,
		func(tx *sqlx.Tx, req *model.LoyaltyRequest, ch *repository.StatusChange) error {
			ch.ProcessedAt = &ch.UpdatedAt
			ch.ProcessedBy = optional(actor)
			ch.RejectionReason = optional(reason)
			if !refund {
				return nil
			}
			refunded = true
			return s.refund(ctx, tx, req, actor, "Refund of rejected request")
		})
	if err == nil && refunded {
		metrics.LedgerEntriesTotal.WithLabelValues(model.EntryCredit.String()).Inc()
	}
	return req, err
}

// Complete records the pickup. No points move.
func (s *Service) Complete(ctx context.Context, tenantID, id, actor string) (model.LoyaltyRequest, error) {
	return s.transition(ctx, tenantID, id, model.RequestApproved, model.RequestCompleted, actor,
		func(_ *sqlx.Tx, _ *model.LoyaltyRequest, ch *repository.StatusChange) error {
			ch.ProcessedAt = &ch.UpdatedAt
			ch.ProcessedBy = optional(actor)
			return nil
		})
}

type mutateFunc func(tx *sqlx.Tx, req *model.LoyaltyRequest, ch *repository.StatusChange) error

func (s *Service) transition(ctx context.Context, tenantID, id string, from, to model.RequestStatus, actor string, mutate mutateFunc) (model.LoyaltyRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out model.LoyaltyRequest
	err := repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		req, err := s.requests.GetForUpdate(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if req.Status != from {
			return &model.TransitionError{RequestID: id, Current: req.Status, Target: to}
		}

		ch := repository.StatusChange{From: from, To: to, UpdatedAt: s.now()}
		if err := mutate(tx, req, &ch); err != nil {
			return err
		}
		ok, err := s.requests.UpdateStatus(ctx, tx, tenantID, id, ch)
		if err != nil {
			return fmt.Errorf("update request status: %w", err)
		}
		if !ok {
			return s.stale(ctx, tx, tenantID, id, to)
		}

		applyChange(req, ch)
		out = *req
		return s.emit(ctx, tx, eventFor(to), out, ch.UpdatedAt)
	})
	if err != nil {
		return model.LoyaltyRequest{}, wrap(err)
	}
	observe(to, actor)
	return out, nil
}

// Delete removes a request. Terminal requests are simply removed; a pending
// one is refunded first; an approved one must be completed before it can go.
func (s *Service) Delete(ctx context.Context, tenantID, id, actor string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	refunded := false
	err := repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		req, err := s.requests.GetForUpdate(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		r, err := s.deleteLocked(ctx, tx, req, actor)
		refunded = r
		return err
	})
	if err != nil {
		return wrap(err)
	}
	if refunded {
		metrics.LedgerEntriesTotal.WithLabelValues(model.EntryCredit.String()).Inc()
	}
	observe(model.RequestDeleted, actor)
	return nil
}

func (s *Service) deleteLocked(ctx context.Context, tx *sqlx.Tx, req *model.LoyaltyRequest, actor string) (refunded bool, err error) {
	if !req.Status.Terminal() {
		if req.Status != model.RequestPending {
			return false, &model.TransitionError{RequestID: req.ID, Current: req.Status, Target: model.RequestDeleted}
		}
		if err := s.refund(ctx, tx, req, actor, "Refund of deleted request"); err != nil {
			return false, err
		}
		refunded = true
	}

	ok, err := s.requests.Delete(ctx, tx, req.TenantID, req.ID, req.Status)
	if err != nil {
		return false, fmt.Errorf("delete request: %w", err)
	}
	if !ok {
		return false, s.stale(ctx, tx, req.TenantID, req.ID, model.RequestDeleted)
	}
	return refunded, s.emit(ctx, tx, model.EventRequestDeleted, *req, s.now())
}

type DeleteProductResult struct {
	Refunded int `json:"refunded"`
	Deleted  int `json:"deleted"`
}

// DeleteProduct removes a product together with its requests. Pending
// requests are refunded on the way out. It fails while any request for the
// product is awaiting pickup.
func (s *Service) DeleteProduct(ctx context.Context, tenantID, productID, actor string) (DeleteProductResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var res DeleteProductResult
	err := repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res = DeleteProductResult{}
		if _, err := s.products.GetForUpdate(ctx, tx, tenantID, productID); err != nil {
			return err
		}
		reqs, err := s.requests.ListByProductForUpdate(ctx, tx, tenantID, productID)
		if err != nil {
			return fmt.Errorf("list product requests: %w", err)
		}
		for _, r := range reqs {
			if r.Status == model.RequestApproved {
				return &model.TransitionError{RequestID: r.ID, Current: r.Status, Target: model.RequestDeleted}
			}
		}
		for i := range reqs {
			refunded, err := s.deleteLocked(ctx, tx, &reqs[i], actor)
			if err != nil {
				return err
			}
			if refunded {
				res.Refunded++
			}
			res.Deleted++
		}
		return s.products.Delete(ctx, tx, tenantID, productID)
	})
	if err != nil {
		return DeleteProductResult{}, wrap(err)
	}

	metrics.LedgerEntriesTotal.WithLabelValues(model.EntryCredit.String()).Add(float64(res.Refunded))
	metrics.RequestTransitionsTotal.WithLabelValues(model.RequestDeleted.String(), source(actor)).Add(float64(res.Deleted))
	return res, nil
}

// ExpireDue completes every approved request whose pickup window closed at or
// before now, at most limit per call. Each request gets its own transaction;
// failures are collected and the rest of the batch still runs.
func (s *Service) ExpireDue(ctx context.Context, now time.Time, limit int) (int, error) {
	listCtx, cancel := context.WithTimeout(ctx, s.timeout)
	due, err := s.requests.ListDueForExpiry(listCtx, now, limit)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("list due requests: %w", err)
	}

	var errs []error
	expired := 0
	for _, r := range due {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		done, err := s.expireOne(ctx, r.TenantID, r.ID, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("expire %s: %w", r.ID, err))
			continue
		}
		if done {
			expired++
		}
	}
	return expired, errors.Join(errs...)
}

// expireOne is Complete on behalf of the system. A request that someone else
// already completed, deleted, or that is no longer due is left alone.
func (s *Service) expireOne(ctx context.Context, tenantID, id string, now time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := false
	err := repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		req, err := s.requests.GetForUpdate(ctx, tx, tenantID, id)
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !req.Expired(now) {
			return nil
		}

		at := s.now()
		actor := model.SystemExpiredActor
		ch := repository.StatusChange{
			From:        model.RequestApproved,
			To:          model.RequestCompleted,
			ProcessedAt: &at,
			ProcessedBy: &actor,
			UpdatedAt:   at,
		}
		ok, err := s.requests.UpdateStatus(ctx, tx, tenantID, id, ch)
		if err != nil || !ok {
			return err
		}
		applyChange(req, ch)
		done = true
		return s.emit(ctx, tx, model.EventRequestCompleted, *req, at)
	})
	if err != nil {
		return false, wrap(err)
	}
	if done {
		observe(model.RequestCompleted, model.SystemExpiredActor)
	}
	return done, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (model.LoyaltyRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := s.requests.Get(ctx, nil, tenantID, id)
	if err != nil {
		return model.LoyaltyRequest{}, err
	}
	return *req, nil
}

func (s *Service) List(ctx context.Context, tenantID string, f repository.RequestFilter) ([]model.LoyaltyRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.requests.List(ctx, tenantID, f)
}

func (s *Service) refund(ctx context.Context, tx *sqlx.Tx, req *model.LoyaltyRequest, actor, description string) error {
	_, err := s.ledger.AppendTx(ctx, tx, model.LedgerEntry{
		TenantID:    req.TenantID,
		CustomerID:  req.CustomerID,
		Amount:      req.PointsUsed,
		Kind:        model.EntryCredit,
		Description: description,
		ReferenceID: &req.ID,
		CreatedBy:   optional(actor),
	})
	return err
}

// stale explains a guarded write that matched no row.
func (s *Service) stale(ctx context.Context, tx *sqlx.Tx, tenantID, id string, target model.RequestStatus) error {
	cur, err := s.requests.Get(ctx, tx, tenantID, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrConflict
	}
	if err != nil {
		return err
	}
	return &model.TransitionError{RequestID: id, Current: cur.Status, Target: target}
}

func (s *Service) emit(ctx context.Context, tx *sqlx.Tx, kind model.EventKind, req model.LoyaltyRequest, at time.Time) error {
	status := req.Status
	if kind == model.EventRequestDeleted {
		status = model.RequestDeleted
	}
	env := model.Envelope{
		ID:         util.NewAt(at),
		TenantID:   req.TenantID,
		Kind:       kind,
		CustomerID: req.CustomerID,
		RequestID:  req.ID,
		ProductID:  req.ProductID,
		Points:     req.PointsUsed,
		Status:     status,
		At:         at,
	}
	if err := s.outbox.InsertEnvelope(ctx, tx, s.topic, env); err != nil {
		return fmt.Errorf("outbox: %w", err)
	}
	return nil
}

func applyChange(req *model.LoyaltyRequest, ch repository.StatusChange) {
	req.Status = ch.To
	req.UpdatedAt = ch.UpdatedAt
	if ch.ProcessedAt != nil {
		t := *ch.ProcessedAt
		req.ProcessedAt = &t
	}
	if ch.ProcessedBy != nil {
		req.ProcessedBy = ch.ProcessedBy
	}
	if ch.ExpiresAt != nil {
		req.ExpiresAt = ch.ExpiresAt
	}
	if ch.RejectionReason != nil {
		req.RejectionReason = ch.RejectionReason
	}
}

func eventFor(st model.RequestStatus) model.EventKind {
	switch st {
	case model.RequestApproved:
		return model.EventRequestApproved
	case model.RequestRejected:
		return model.EventRequestRejected
	case model.RequestCompleted:
		return model.EventRequestCompleted
	default:
		return model.EventRequestCreated
	}
}

func observe(st model.RequestStatus, actor string) {
	metrics.RequestTransitionsTotal.WithLabelValues(st.String(), source(actor)).Inc()
}

func source(actor string) string {
	if actor == model.SystemExpiredActor {
		return "sweeper"
	}
	return "api"
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func wrap(err error) error {
	if err == nil || errors.Is(err, model.ErrConflict) {
		return err
	}
	if repository.IsConflict(err) {
		return fmt.Errorf("%w: %v", model.ErrConflict, err)
	}
	return err
}
