package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
)

// Service coordinates product master data operations.
type Service struct {
	repo Repository
}

// NewService builds a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new product after checking code uniqueness.
func (s *Service) Create(ctx context.Context, req CreateProductRequest) (*Product, error) {
	existing, err := s.repo.GetByCode(ctx, req.Code)
	if err != nil && !errors.Is(err, httpx.ErrNotFound) {
		return nil, fmt.Errorf("check existing product: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: product code %s", httpx.ErrDuplicate, req.Code)
	}

	product := Product{
		Code:       req.Code,
		Name:       req.Name,
		Unit:       req.Unit,
		ListPrice:  req.ListPrice,
		IvaPercent: req.IvaPercent,
	}
	if err := s.validate(product); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err)
	}

	id, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Update applies a partial update to a product.
func (s *Service) Update(ctx context.Context, id int64, req UpdateProductRequest) (*Product, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Unit != nil {
		updates["unit"] = *req.Unit
	}
	if req.ListPrice != nil {
		updates["list_price"] = *req.ListPrice
	}
	if req.IvaPercent != nil {
		updates["iva_percent"] = *req.IvaPercent
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			return nil, fmt.Errorf("update product: %w", err)
		}
	}
	return s.repo.Get(ctx, id)
}

// Get returns a single product with its advisory stock quantity.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns products matching the filter plus the total count.
func (s *Service) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}
