package backoffice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmehdipour/loyalty-backoffice/internal/repository"
	"github.com/jmehdipour/loyalty-backoffice/internal/util"
	"github.com/jmoiron/sqlx"
)

// Service covers customer enrollment and the product catalog.
type Service struct {
	db        *sqlx.DB
	customers repository.CustomersRepository
	products  repository.ProductsRepository

	timeout time.Duration
	now     func() time.Time
}

func New(
	db *sqlx.DB,
	customersRepo repository.CustomersRepository,
	productsRepo repository.ProductsRepository,
	timeout time.Duration,
	clock func() time.Time,
) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if clock == nil {
		clock = util.Now
	}
	return &Service{db: db, customers: customersRepo, products: productsRepo, timeout: timeout, now: clock}
}

type CustomerInput struct {
	Name  string `json:"name"`
	TaxID string `json:"tax_id"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// EnrollCustomer creates a customer with a zero balance. The tax id is
// reduced to digits and must be unique within the tenant.
func (s *Service) EnrollCustomer(ctx context.Context, tenantID string, in CustomerInput) (model.Customer, error) {
	name := strings.TrimSpace(in.Name)
	taxID := util.NormalizeTaxID(in.TaxID)
	if name == "" {
		return model.Customer{}, fmt.Errorf("%w: name is required", model.ErrInvalidInput)
	}
	if taxID == "" {
		return model.Customer{}, fmt.Errorf("%w: tax_id is required", model.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	at := s.now()
	c := model.Customer{
		ID:        util.NewAt(at),
		TenantID:  tenantID,
		Name:      name,
		TaxID:     taxID,
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     strings.TrimSpace(in.Phone),
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := s.customers.Insert(ctx, nil, c); err != nil {
		return model.Customer{}, err
	}
	return c, nil
}

func (s *Service) GetCustomer(ctx context.Context, tenantID, id string) (model.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	c, err := s.customers.Get(ctx, nil, tenantID, id)
	if err != nil {
		return model.Customer{}, err
	}
	return *c, nil
}

func (s *Service) ListCustomers(ctx context.Context, tenantID string, limit, offset int) ([]model.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.customers.List(ctx, tenantID, limit, offset)
}

type ProductInput struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	PointsRequired int64  `json:"points_required"`
	Available      *bool  `json:"available"`
}

// ProductPatch updates only the fields that are set.
type ProductPatch struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	PointsRequired *int64  `json:"points_required"`
	Available      *bool   `json:"available"`
}

func (s *Service) CreateProduct(ctx context.Context, tenantID string, in ProductInput) (model.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Product{}, fmt.Errorf("%w: name is required", model.ErrInvalidInput)
	}
	if in.PointsRequired <= 0 {
		return model.Product{}, model.ErrInvalidAmount
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	at := s.now()
	p := model.Product{
		ID:             util.NewAt(at),
		TenantID:       tenantID,
		Name:           name,
		Description:    strings.TrimSpace(in.Description),
		PointsRequired: in.PointsRequired,
		Available:      in.Available == nil || *in.Available,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	if err := s.products.Insert(ctx, nil, p); err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// UpdateProduct edits the catalog entry. A new price applies to requests
// created afterwards; open requests keep their snapshot.
func (s *Service) UpdateProduct(ctx context.Context, tenantID, id string, patch ProductPatch) (model.Product, error) {
	if patch.PointsRequired != nil && *patch.PointsRequired <= 0 {
		return model.Product{}, model.ErrInvalidAmount
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return model.Product{}, fmt.Errorf("%w: name is required", model.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out model.Product
	err := repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		p, err := s.products.GetForUpdate(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			p.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.PointsRequired != nil {
			p.PointsRequired = *patch.PointsRequired
		}
		if patch.Available != nil {
			p.Available = *patch.Available
		}
		p.UpdatedAt = s.now()
		if err := s.products.Update(ctx, tx, *p); err != nil {
			return err
		}
		out = *p
		return nil
	})
	return out, err
}

func (s *Service) GetProduct(ctx context.Context, tenantID, id string) (model.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.products.Get(ctx, nil, tenantID, id)
	if err != nil {
		return model.Product{}, err
	}
	return *p, nil
}

func (s *Service) ListProducts(ctx context.Context, tenantID string, onlyAvailable bool) ([]model.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.products.List(ctx, tenantID, onlyAvailable)
}
