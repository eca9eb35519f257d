package redemption

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmehdipour/loyalty-backoffice/internal/repository"
	"github.com/jmehdipour/loyalty-backoffice/internal/service/points"
	"github.com/jmehdipour/loyalty-backoffice/internal/testutil"
	"github.com/jmehdipour/loyalty-backoffice/internal/util"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db     *sqlx.DB
	svc    *Service
	ledger *points.Service
	tenant model.Company
	other  model.Company
	clock  *testutil.Clock
}

func newFixture(t *testing.T) *fixture {
	conn := testutil.NewDB(t)
	clock := testutil.NewClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	customers := repository.NewCustomersRepository(conn)
	outbox := repository.NewOutboxRepository(conn)
	ledger := points.New(conn,
		customers,
		repository.NewLedgerRepository(conn),
		repository.NewSalesRepository(conn),
		repository.NewPointsConfigRepository(conn),
		outbox,
		points.Options{Clock: clock.Now},
	)
	svc := New(conn,
		customers,
		repository.NewProductsRepository(conn),
		repository.NewRequestsRepository(conn),
		outbox,
		ledger,
		Options{PickupWindow: 24 * time.Hour, Clock: clock.Now},
	)
	return &fixture{
		db:     conn,
		svc:    svc,
		ledger: ledger,
		tenant: testutil.NewCompany(t, conn, "acme"),
		other:  testutil.NewCompany(t, conn, "globex"),
		clock:  clock,
	}
}

func (f *fixture) customer(t *testing.T, tenantID string, balance int64) model.Customer {
	t.Helper()
	ctx := context.Background()
	at := f.clock.Now()
	c := model.Customer{ID: util.NewAt(at), TenantID: tenantID, Name: "Ana", TaxID: util.NewAt(at), CreatedAt: at, UpdatedAt: at}
	require.NoError(t, repository.NewCustomersRepository(f.db).Insert(ctx, nil, c))
	if balance > 0 {
		_, err := f.ledger.Append(ctx, tenantID, model.LedgerEntry{CustomerID: c.ID, Amount: balance, Kind: model.EntryEarned, Description: "opening"})
		require.NoError(t, err)
	}
	return c
}

func (f *fixture) product(t *testing.T, tenantID string, cost int64, available bool) model.Product {
	t.Helper()
	at := f.clock.Now()
	p := model.Product{ID: util.NewAt(at), TenantID: tenantID, Name: "Mug", PointsRequired: cost, Available: available, CreatedAt: at, UpdatedAt: at}
	require.NoError(t, repository.NewProductsRepository(f.db).Insert(context.Background(), nil, p))
	return p
}

func (f *fixture) balance(t *testing.T, tenantID, customerID string) int64 {
	t.Helper()
	b, err := f.ledger.BalanceOf(context.Background(), tenantID, customerID)
	require.NoError(t, err)
	return b
}

func (f *fixture) requireConsistent(t *testing.T, tenantID, customerID string) {
	t.Helper()
	d, err := f.ledger.Verify(context.Background(), tenantID, customerID)
	require.NoError(t, err)
	require.True(t, d.OK(), "cached %d != summed %d", d.Cached, d.Summed)
}

func (f *fixture) ledgerKinds(t *testing.T, tenantID, customerID string) []model.EntryKind {
	t.Helper()
	entries, err := f.ledger.ListLedger(context.Background(), tenantID, customerID, "", 100)
	require.NoError(t, err)
	kinds := make([]model.EntryKind, 0, len(entries))
	for _, e := range entries {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func requireTransitionError(t *testing.T, err error, current model.RequestStatus) {
	t.Helper()
	require.ErrorIs(t, err, model.ErrInvalidTransition)
	var te *model.TransitionError
	require.True(t, errors.As(err, &te))
	require.Equal(t, current, te.Current)
}

func TestCreateEscrowsPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, f.tenant.ID, 50)
	p := f.product(t, f.tenant.ID, 30, true)

	req, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "ana")
	require.NoError(t, err)
	require.Equal(t, model.RequestPending, req.Status)
	require.Equal(t, int64(30), req.PointsUsed)
	require.Equal(t, int64(50), req.BalanceBefore)
	require.Equal(t, int64(20), f.balance(t, f.tenant.ID, c.ID))

	entries, err := f.ledger.ListLedger(ctx, f.tenant.ID, c.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.EntrySpent, entries[1].Kind)
	assert.Equal(t, int64(-30), entries[1].Amount)
	assert.Equal(t, req.ID, *entries[1].ReferenceID)
	f.requireConsistent(t, f.tenant.ID, c.ID)
}

func TestCreateKeepsSnapshotWhenPriceChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, f.tenant.ID, 50)
	p := f.product(t, f.tenant.ID, 30, true)

	req, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)

	p.PointsRequired = 45
	p.UpdatedAt = f.clock.Now()
	require.NoError(t, repository.NewProductsRepository(f.db).Update(ctx, nil, p))

	got, err := f.svc.Reject(ctx, f.tenant.ID, req.ID, "admin", true, "")
	require.NoError(t, err)
	require.Equal(t, int64(30), got.PointsUsed)
	require.Equal(t, int64(50), f.balance(t, f.tenant.ID, c.ID))
}

func TestCreateFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, f.tenant.ID, 10)
	cheap := f.product(t, f.tenant.ID, 5, true)
	pricey := f.product(t, f.tenant.ID, 11, true)
	hidden := f.product(t, f.tenant.ID, 1, false)
	foreignProduct := f.product(t, f.other.ID, 1, true)
	foreignCustomer := f.customer(t, f.other.ID, 10)

	_, err := f.svc.Create(ctx, f.tenant.ID, c.ID, pricey.ID, "")
	require.ErrorIs(t, err, model.ErrInsufficientPoints)

	_, err = f.svc.Create(ctx, f.tenant.ID, c.ID, hidden.ID, "")
	require.ErrorIs(t, err, model.ErrProductUnavailable)

	_, err = f.svc.Create(ctx, f.tenant.ID, c.ID, foreignProduct.ID, "")
	require.ErrorIs(t, err, model.ErrCrossTenantAccess)

	_, err = f.svc.Create(ctx, f.tenant.ID, foreignCustomer.ID, cheap.ID, "")
	require.ErrorIs(t, err, model.ErrCrossTenantAccess)

	_, err = f.svc.Create(ctx, f.tenant.ID, "nobody", cheap.ID, "")
	require.ErrorIs(t, err, model.ErrUnknownCustomer)

	_, err = f.svc.Create(ctx, f.tenant.ID, c.ID, "no-such-product", "")
	require.ErrorIs(t, err, model.ErrNotFound)

	require.Equal(t, int64(10), f.balance(t, f.tenant.ID, c.ID))
	require.Equal(t, []model.EntryKind{model.EntryEarned}, f.ledgerKinds(t, f.tenant.ID, c.ID))
}

func TestConcurrentCreatesNeverDoubleSpend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, f.tenant.ID, 10)
	p := f.product(t, f.tenant.ID, 8, true)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, model.ErrInsufficientPoints):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, insufficient)
	require.Equal(t, int64(2), f.balance(t, f.tenant.ID, c.ID))
	f.requireConsistent(t, f.tenant.ID, c.ID)
}

func TestConcurrentRejectsRefundOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, f.tenant.ID, 20)
	p := f.product(t, f.tenant.ID, 20, true)

	req, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Reject(ctx, f.tenant.ID, req.ID, "admin", true, "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireTransitionError(t, err, model.RequestRejected)
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, int64(20), f.balance(t, f.tenant.ID, c.ID))

	var refunds int
	require.NoError(t, f.db.GetContext(ctx, &refunds,
		`SELECT COUNT(*) FROM points_ledger WHERE tenant_id = ? AND reference_id = ? AND kind = ?`,
		f.tenant.ID, req.ID, model.EntryCredit.String()))
	require.Equal(t, 1, refunds)
	f.requireConsistent(t, f.tenant.ID, c.ID)
}

func TestApproveThenComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, f.tenant.ID, 50)
	p := f.product(t, f.tenant.ID, 30, true)

	req, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)

	approvedAt := f.clock.Now()
	req, err = f.svc.Approve(ctx, f.tenant.ID, req.ID, "manager")
	require.NoError(t, err)
	require.Equal(t, model.RequestApproved, req.Status)
	require.NotNil(t, req.ExpiresAt)
	require.True(t, req.ExpiresAt.Equal(approvedAt.Add(24*time.Hour)))
	require.Equal(t, "manager", *req.ProcessedBy)
	require.Equal(t, "available_for_pickup", req.Status.Label(model.SurfaceCustomer))

	stored, err := f.svc.Get(ctx, f.tenant.ID, req.ID)
	require.NoError(t, err)
	require.Equal(t, model.RequestApproved, stored.Status)
	require.NotNil(t, stored.ExpiresAt)
	require.True(t, stored.ExpiresAt.Equal(*req.ExpiresAt))

	f.clock.Advance(time.Hour)
	req, err = f.svc.Complete(ctx, f.tenant.ID, req.ID, "clerk")
	require.NoError(t, err)
	require.Equal(t, model.RequestCompleted, req.Status)
	require.Equal(t, "clerk", *req.ProcessedBy)

	require.Equal(t, int64(20), f.balance(t, f.tenant.ID, c.ID))
	require.Equal(t, []model.EntryKind{model.EntryEarned, model.EntrySpent}, f.ledgerKinds(t, f.tenant.ID, c.ID))
}

func TestInvalidTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, f.tenant.ID, 100)
	p := f.product(t, f.tenant.ID, 10, true)

	pending, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, f.tenant.ID, pending.ID, "")
	requireTransitionError(t, err, model.RequestPending)

	rejected, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, f.tenant.ID, rejected.ID, "", false, "out of stock")
	require.NoError(t, err)

	completed, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.tenant.ID, completed.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, f.tenant.ID, completed.ID, "")
	require.NoError(t, err)

	before := f.balance(t, f.tenant.ID, c.ID)
	for _, id := range []string{rejected.ID, completed.ID} {
		cur, err := f.svc.Get(ctx, f.tenant.ID, id)
		require.NoError(t, err)

		_, err = f.svc.Approve(ctx, f.tenant.ID, id, "")
		requireTransitionError(t, err, cur.Status)
		_, err = f.svc.Reject(ctx, f.tenant.ID, id, "", true, "")
		requireTransitionError(t, err, cur.Status)
		_, err = f.svc.Complete(ctx, f.tenant.ID, id, "")
		requireTransitionError(t, err, cur.Status)

		after, err := f.svc.Get(ctx, f.tenant.ID, id)
		require.NoError(t, err)
		require.Equal(t, cur.Status, after.Status)
	}
	require.Equal(t, before, f.balance(t, f.tenant.ID, c.ID))
	f.requireConsistent(t, f.tenant.ID, c.ID)
}

func TestRejectionWithoutRefundForfeits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, f.tenant.ID, 40)
	p := f.product(t, f.tenant.ID, 25, true)

	req, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)

	req, err = f.svc.Reject(ctx, f.tenant.ID, req.ID, "admin", false, "fraud suspicion")
	require.NoError(t, err)
	require.Equal(t, model.RequestRejected, req.Status)
	require.Equal(t, "fraud suspicion", *req.RejectionReason)

	require.Equal(t, int64(15), f.balance(t, f.tenant.ID, c.ID))
	require.Equal(t, []model.EntryKind{model.EntryEarned, model.EntrySpent}, f.ledgerKinds(t, f.tenant.ID, c.ID))
}

func TestRefundRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, f.tenant.ID, 40)
	p := f.product(t, f.tenant.ID, 25, true)

	req, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, f.tenant.ID, req.ID, "admin", true, "")
	require.NoError(t, err)

	require.Equal(t, int64(40), f.balance(t, f.tenant.ID, c.ID))
	require.Equal(t, []model.EntryKind{model.EntryEarned, model.EntrySpent, model.EntryCredit}, f.ledgerKinds(t, f.tenant.ID, c.ID))
	f.requireConsistent(t, f.tenant.ID, c.ID)
}

func TestFiftyThirtyScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, f.tenant.ID, 50)
	p := f.product(t, f.tenant.ID, 30, true)

	first, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)
	require.Equal(t, int64(20), f.balance(t, f.tenant.ID, c.ID))

	_, err = f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.ErrorIs(t, err, model.ErrInsufficientPoints)

	_, err = f.svc.Approve(ctx, f.tenant.ID, first.ID, "")
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	n, err := f.svc.ExpireDue(ctx, f.clock.Now(), 100)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := f.svc.Get(ctx, f.tenant.ID, first.ID)
	require.NoError(t, err)
	require.Equal(t, model.RequestCompleted, got.Status)
	require.Equal(t, model.SystemExpiredActor, *got.ProcessedBy)
	require.Equal(t, int64(20), f.balance(t, f.tenant.ID, c.ID))
	f.requireConsistent(t, f.tenant.ID, c.ID)
}

func TestExpireDueIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, f.tenant.ID, 100)
	p := f.product(t, f.tenant.ID, 10, true)

	var ids []string
	for i := 0; i < 3; i++ {
		req, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
		require.NoError(t, err)
		_, err = f.svc.Approve(ctx, f.tenant.ID, req.ID, "")
		require.NoError(t, err)
		ids = append(ids, req.ID)
	}
	notYet, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)

	f.clock.Advance(23 * time.Hour)
	n, err := f.svc.ExpireDue(ctx, f.clock.Now(), 100)
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = f.svc.Approve(ctx, f.tenant.ID, notYet.ID, "")
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	n, err = f.svc.ExpireDue(ctx, f.clock.Now(), 2)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = f.svc.ExpireDue(ctx, f.clock.Now(), 2)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = f.svc.ExpireDue(ctx, f.clock.Now(), 100)
	require.NoError(t, err)
	require.Zero(t, n)

	for _, id := range ids {
		got, err := f.svc.Get(ctx, f.tenant.ID, id)
		require.NoError(t, err)
		require.Equal(t, model.RequestCompleted, got.Status)
	}
	got, err := f.svc.Get(ctx, f.tenant.ID, notYet.ID)
	require.NoError(t, err)
	require.Equal(t, model.RequestApproved, got.Status)

	require.Equal(t, int64(60), f.balance(t, f.tenant.ID, c.ID))
	f.requireConsistent(t, f.tenant.ID, c.ID)
}

func TestExpireSkipsManuallyCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, f.tenant.ID, 10)
	p := f.product(t, f.tenant.ID, 10, true)

	req, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.tenant.ID, req.ID, "")
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	_, err = f.svc.Complete(ctx, f.tenant.ID, req.ID, "clerk")
	require.NoError(t, err)

	done, err := f.svc.expireOne(ctx, f.tenant.ID, req.ID, f.clock.Now())
	require.NoError(t, err)
	require.False(t, done)

	got, err := f.svc.Get(ctx, f.tenant.ID, req.ID)
	require.NoError(t, err)
	require.Equal(t, "clerk", *got.ProcessedBy)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, f.tenant.ID, 100)
	p := f.product(t, f.tenant.ID, 10, true)

	pending, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)
	approved, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.tenant.ID, approved.ID, "")
	require.NoError(t, err)
	rejected, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, f.tenant.ID, rejected.ID, "", false, "")
	require.NoError(t, err)
	require.Equal(t, int64(70), f.balance(t, f.tenant.ID, c.ID))

	require.NoError(t, f.svc.Delete(ctx, f.tenant.ID, pending.ID, "admin"))
	require.Equal(t, int64(80), f.balance(t, f.tenant.ID, c.ID))

	require.NoError(t, f.svc.Delete(ctx, f.tenant.ID, rejected.ID, "admin"))
	require.Equal(t, int64(80), f.balance(t, f.tenant.ID, c.ID))

	err = f.svc.Delete(ctx, f.tenant.ID, approved.ID, "admin")
	requireTransitionError(t, err, model.RequestApproved)

	_, err = f.svc.Get(ctx, f.tenant.ID, pending.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
	err = f.svc.Delete(ctx, f.tenant.ID, pending.ID, "admin")
	require.ErrorIs(t, err, model.ErrNotFound)
	f.requireConsistent(t, f.tenant.ID, c.ID)
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, f.tenant.ID, 100)
	p := f.product(t, f.tenant.ID, 10, true)

	pending, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)
	approved, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.tenant.ID, approved.ID, "")
	require.NoError(t, err)

	_, err = f.svc.DeleteProduct(ctx, f.tenant.ID, p.ID, "admin")
	requireTransitionError(t, err, model.RequestApproved)
	require.Equal(t, int64(80), f.balance(t, f.tenant.ID, c.ID))

	_, err = f.svc.Complete(ctx, f.tenant.ID, approved.ID, "")
	require.NoError(t, err)

	res, err := f.svc.DeleteProduct(ctx, f.tenant.ID, p.ID, "admin")
	require.NoError(t, err)
	require.Equal(t, DeleteProductResult{Refunded: 1, Deleted: 2}, res)
	require.Equal(t, int64(90), f.balance(t, f.tenant.ID, c.ID))

	_, err = f.svc.Get(ctx, f.tenant.ID, pending.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
	_, err = repository.NewProductsRepository(f.db).Get(ctx, nil, f.tenant.ID, p.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
	f.requireConsistent(t, f.tenant.ID, c.ID)
}

func TestCrossTenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, f.tenant.ID, 50)
	p := f.product(t, f.tenant.ID, 10, true)

	req, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, f.other.ID, req.ID)
	require.ErrorIs(t, err, model.ErrCrossTenantAccess)
	_, err = f.svc.Approve(ctx, f.other.ID, req.ID, "")
	require.ErrorIs(t, err, model.ErrCrossTenantAccess)
	_, err = f.svc.Reject(ctx, f.other.ID, req.ID, "", true, "")
	require.ErrorIs(t, err, model.ErrCrossTenantAccess)
	_, err = f.svc.Complete(ctx, f.other.ID, req.ID, "")
	require.ErrorIs(t, err, model.ErrCrossTenantAccess)
	err = f.svc.Delete(ctx, f.other.ID, req.ID, "")
	require.ErrorIs(t, err, model.ErrCrossTenantAccess)
	_, err = f.svc.DeleteProduct(ctx, f.other.ID, p.ID, "")
	require.ErrorIs(t, err, model.ErrCrossTenantAccess)

	withdrawn := f.product(t, f.tenant.ID, 1, false)
	foreignCustomer := f.customer(t, f.other.ID, 10)
	_, err = f.svc.Create(ctx, f.tenant.ID, foreignCustomer.ID, withdrawn.ID, "")
	require.ErrorIs(t, err, model.ErrCrossTenantAccess)
	foreignWithdrawn := f.product(t, f.other.ID, 1, false)
	_, err = f.svc.Create(ctx, f.tenant.ID, c.ID, foreignWithdrawn.ID, "")
	require.ErrorIs(t, err, model.ErrCrossTenantAccess)
	require.Equal(t, int64(10), f.balance(t, f.other.ID, foreignCustomer.ID))

	list, err := f.svc.List(ctx, f.other.ID, repository.RequestFilter{})
	require.NoError(t, err)
	require.Empty(t, list)

	got, err := f.svc.Get(ctx, f.tenant.ID, req.ID)
	require.NoError(t, err)
	require.Equal(t, model.RequestPending, got.Status)
	require.Equal(t, int64(40), f.balance(t, f.tenant.ID, c.ID))
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, f.tenant.ID, 100)
	p := f.product(t, f.tenant.ID, 10, true)

	a, err := f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.tenant.ID, c.ID, p.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.tenant.ID, a.ID, "")
	require.NoError(t, err)

	approved, err := f.svc.List(ctx, f.tenant.ID, repository.RequestFilter{Status: model.RequestApproved})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	require.Equal(t, a.ID, approved[0].ID)

	all, err := f.svc.List(ctx, f.tenant.ID, repository.RequestFilter{CustomerID: c.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)
}
