package backoffice

import (
	"context"
	"testing"

	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmehdipour/loyalty-backoffice/internal/repository"
	"github.com/jmehdipour/loyalty-backoffice/internal/testutil"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, model.Company, model.Company) {
	conn := testutil.NewDB(t)
	svc := New(conn, repository.NewCustomersRepository(conn), repository.NewProductsRepository(conn), 0, nil)
	return svc, testutil.NewCompany(t, conn, "acme"), testutil.NewCompany(t, conn, "globex")
}

func TestEnrollCustomer(t *testing.T) {
	svc, acme, globex := newService(t)
	ctx := context.Background()

	c, err := svc.EnrollCustomer(ctx, acme.ID, CustomerInput{Name: " Ana ", TaxID: "123.456.789-09", Email: "Ana@Example.com"})
	require.NoError(t, err)
	require.Equal(t, "Ana", c.Name)
	require.Equal(t, "12345678909", c.TaxID)
	require.Equal(t, "ana@example.com", c.Email)
	require.Zero(t, c.Points)

	_, err = svc.EnrollCustomer(ctx, acme.ID, CustomerInput{Name: "Other Ana", TaxID: "12345678909"})
	require.ErrorIs(t, err, model.ErrDuplicateCustomer)

	// the same person may join another tenant's program
	_, err = svc.EnrollCustomer(ctx, globex.ID, CustomerInput{Name: "Ana", TaxID: "12345678909"})
	require.NoError(t, err)

	_, err = svc.EnrollCustomer(ctx, acme.ID, CustomerInput{Name: "", TaxID: "1"})
	require.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = svc.EnrollCustomer(ctx, acme.ID, CustomerInput{Name: "Bob", TaxID: "abc"})
	require.ErrorIs(t, err, model.ErrInvalidInput)

	got, err := svc.GetCustomer(ctx, acme.ID, c.ID)
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)

	_, err = svc.GetCustomer(ctx, globex.ID, c.ID)
	require.ErrorIs(t, err, model.ErrCrossTenantAccess)

	list, err := svc.ListCustomers(ctx, acme.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestProductCatalog(t *testing.T) {
	svc, acme, globex := newService(t)
	ctx := context.Background()

	mug, err := svc.CreateProduct(ctx, acme.ID, ProductInput{Name: "Mug", PointsRequired: 30})
	require.NoError(t, err)
	require.True(t, mug.Available)

	off := false
	_, err = svc.CreateProduct(ctx, acme.ID, ProductInput{Name: "Cap", PointsRequired: 20, Available: &off})
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, acme.ID, ProductInput{Name: "Free", PointsRequired: 0})
	require.ErrorIs(t, err, model.ErrInvalidAmount)

	all, err := svc.ListProducts(ctx, acme.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	avail, err := svc.ListProducts(ctx, acme.ID, true)
	require.NoError(t, err)
	require.Len(t, avail, 1)

	price := int64(45)
	updated, err := svc.UpdateProduct(ctx, acme.ID, mug.ID, ProductPatch{PointsRequired: &price, Available: &off})
	require.NoError(t, err)
	require.Equal(t, int64(45), updated.PointsRequired)
	require.False(t, updated.Available)
	require.Equal(t, "Mug", updated.Name)

	got, err := svc.GetProduct(ctx, acme.ID, mug.ID)
	require.NoError(t, err)
	require.Equal(t, int64(45), got.PointsRequired)

	bad := int64(-1)
	_, err = svc.UpdateProduct(ctx, acme.ID, mug.ID, ProductPatch{PointsRequired: &bad})
	require.ErrorIs(t, err, model.ErrInvalidAmount)

	_, err = svc.UpdateProduct(ctx, globex.ID, mug.ID, ProductPatch{Available: &off})
	require.ErrorIs(t, err, model.ErrCrossTenantAccess)
	_, err = svc.GetProduct(ctx, acme.ID, "missing")
	require.ErrorIs(t, err, model.ErrNotFound)
}
