package fleet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
)

// Service covers trucks, trips and the money ledger of the fleet.
type Service struct {
	repo Repository
}

// NewService builds a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateTruck registers a truck after normalizing and checking the patent.
func (s *Service) CreateTruck(ctx context.Context, req CreateTruckRequest) (*Truck, error) {
	patent := strings.ToUpper(strings.ReplaceAll(req.Patent, " ", ""))
	existing, err := s.repo.GetTruckByPatent(ctx, patent)
	if err != nil && !errors.Is(err, httpx.ErrNotFound) {
		return nil, fmt.Errorf("check existing truck: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: patent %s", httpx.ErrDuplicate, patent)
	}

	id, err := s.repo.CreateTruck(ctx, Truck{Patent: patent, Model: req.Model, CapacityT: req.CapacityT})
	if err != nil {
		return nil, fmt.Errorf("create truck: %w", err)
	}
	return s.repo.GetTruck(ctx, id)
}

// UpdateTruck applies a partial update.
func (s *Service) UpdateTruck(ctx context.Context, id int64, req UpdateTruckRequest) (*Truck, error) {
	if _, err := s.repo.GetTruck(ctx, id); err != nil {
		return nil, err
	}
	updates := make(map[string]interface{})
	if req.Model != nil {
		updates["model"] = *req.Model
	}
	if req.CapacityT != nil {
		updates["capacity_t"] = *req.CapacityT
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateTruck(ctx, id, updates); err != nil {
			return nil, err
		}
	}
	return s.repo.GetTruck(ctx, id)
}

// GetTruck returns one truck.
func (s *Service) GetTruck(ctx context.Context, id int64) (*Truck, error) {
	return s.repo.GetTruck(ctx, id)
}

// ListTrucks returns the fleet.
func (s *Service) ListTrucks(ctx context.Context, onlyActive bool) ([]Truck, error) {
	return s.repo.ListTrucks(ctx, onlyActive)
}

// CreateTrip records a trip for an active truck.
func (s *Service) CreateTrip(ctx context.Context, req CreateTripRequest) (*Trip, error) {
	truck, err := s.repo.GetTruck(ctx, req.TruckID)
	if err != nil {
		return nil, fmt.Errorf("resolve truck: %w", err)
	}
	if !truck.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrTruckInactive, truck.Patent)
	}

	id, err := s.repo.CreateTrip(ctx, Trip{
		TruckID:     truck.ID,
		DriverName:  req.DriverName,
		Origin:      req.Origin,
		Destination: req.Destination,
		TripDate:    req.TripDate,
		Notes:       req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create trip: %w", err)
	}
	return s.repo.GetTrip(ctx, id)
}

// GetTrip returns one trip.
func (s *Service) GetTrip(ctx context.Context, id int64) (*Trip, error) {
	return s.repo.GetTrip(ctx, id)
}

// ListTrips returns trips, optionally filtered by truck.
func (s *Service) ListTrips(ctx context.Context, truckID int64, limit, offset int) ([]Trip, int, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListTrips(ctx, truckID, limit, offset)
}

// RecordEntry posts a ledger entry. The direction defaults from the
// category; OTHER entries must state theirs explicitly.
func (s *Service) RecordEntry(ctx context.Context, req CreateEntryRequest, actorID int64) (*LedgerEntry, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidEntry)
	}

	direction := req.Direction
	if direction == "" {
		var ok bool
		direction, ok = categoryDirections[req.Category]
		if !ok {
			return nil, fmt.Errorf("%w: category %s needs an explicit direction", ErrInvalidEntry, req.Category)
		}
	}

	entryDate := req.EntryDate
	if entryDate.IsZero() {
		entryDate = time.Now().UTC()
	}

	entry := LedgerEntry{
		TruckID:   req.TruckID,
		TripID:    req.TripID,
		Direction: direction,
		Category:  req.Category,
		Amount:    req.Amount,
		Detail:    req.Detail,
		EntryDate: entryDate,
		CreatedBy: actorID,
	}
	id, err := s.repo.CreateEntry(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("record entry: %w", err)
	}
	entry.ID = id
	return &entry, nil
}

// ListEntries returns ledger entries matching the filter.
func (s *Service) ListEntries(ctx context.Context, req ListEntriesRequest) ([]LedgerEntry, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.ListEntries(ctx, req)
}

// MonthlySummary aggregates income and expense for one month.
func (s *Service) MonthlySummary(ctx context.Context, year, month int) (MonthlySummary, error) {
	if month < 1 || month > 12 || year < 2000 {
		return MonthlySummary{}, fmt.Errorf("%w: bad period %d-%d", httpx.ErrValidation, year, month)
	}
	return s.repo.MonthlySummary(ctx, year, month)
}
