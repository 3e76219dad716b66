package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
)

// Service coordinates client master data operations.
type Service struct {
	repo Repository
}

// NewService builds a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a client after checking CUIT uniqueness.
func (s *Service) Create(ctx context.Context, req CreateClientRequest) (*Client, error) {
	existing, err := s.repo.GetByCUIT(ctx, req.CUIT)
	if err != nil && !errors.Is(err, httpx.ErrNotFound) {
		return nil, fmt.Errorf("check existing client: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: CUIT %s already registered", httpx.ErrDuplicate, req.CUIT)
	}

	client := Client{
		Name:         req.Name,
		CUIT:         req.CUIT,
		TaxCondition: req.TaxCondition,
		Address:      req.Address,
		Phone:        req.Phone,
		Email:        req.Email,
	}
	id, err := s.repo.Create(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Update applies a partial update to a client.
func (s *Service) Update(ctx context.Context, id int64, req UpdateClientRequest) (*Client, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.TaxCondition != nil {
		updates["tax_condition"] = *req.TaxCondition
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			return nil, fmt.Errorf("update client: %w", err)
		}
	}
	return s.repo.Get(ctx, id)
}

// Get returns a single client.
func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	return s.repo.Get(ctx, id)
}

// List returns clients matching the filter plus the total count.
func (s *Service) List(ctx context.Context, req ListClientsRequest) ([]Client, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}
