package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
)

type mockFleetRepo struct {
	trucks  map[int64]*Truck
	trips   map[int64]*Trip
	entries []LedgerEntry
	nextID  int64
}

func newMockFleetRepo() *mockFleetRepo {
	return &mockFleetRepo{trucks: make(map[int64]*Truck), trips: make(map[int64]*Trip), nextID: 1}
}

func (m *mockFleetRepo) GetTruck(_ context.Context, id int64) (*Truck, error) {
	t, ok := m.trucks[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (m *mockFleetRepo) GetTruckByPatent(_ context.Context, patent string) (*Truck, error) {
	for _, t := range m.trucks {
		if t.Patent == patent {
			clone := *t
			return &clone, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (m *mockFleetRepo) ListTrucks(_ context.Context, onlyActive bool) ([]Truck, error) {
	var items []Truck
	for _, t := range m.trucks {
		if onlyActive && !t.IsActive {
			continue
		}
		items = append(items, *t)
	}
	return items, nil
}

func (m *mockFleetRepo) CreateTruck(_ context.Context, t Truck) (int64, error) {
	id := m.nextID
	m.nextID++
	t.ID = id
	t.IsActive = true
	m.trucks[id] = &t
	return id, nil
}

func (m *mockFleetRepo) UpdateTruck(_ context.Context, id int64, updates map[string]interface{}) error {
	t, ok := m.trucks[id]
	if !ok {
		return httpx.ErrNotFound
	}
	if v, ok := updates["is_active"]; ok {
		t.IsActive = v.(bool)
	}
	if v, ok := updates["model"]; ok {
		t.Model = v.(string)
	}
	return nil
}

func (m *mockFleetRepo) GetTrip(_ context.Context, id int64) (*Trip, error) {
	t, ok := m.trips[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (m *mockFleetRepo) ListTrips(_ context.Context, _ int64, _, _ int) ([]Trip, int, error) {
	var items []Trip
	for _, t := range m.trips {
		items = append(items, *t)
	}
	return items, len(items), nil
}

func (m *mockFleetRepo) CreateTrip(_ context.Context, t Trip) (int64, error) {
	id := m.nextID
	m.nextID++
	t.ID = id
	if truck, ok := m.trucks[t.TruckID]; ok {
		t.TruckPatent = truck.Patent
	}
	m.trips[id] = &t
	return id, nil
}

func (m *mockFleetRepo) CreateEntry(_ context.Context, e LedgerEntry) (int64, error) {
	id := m.nextID
	m.nextID++
	e.ID = id
	m.entries = append(m.entries, e)
	return id, nil
}

func (m *mockFleetRepo) ListEntries(_ context.Context, _ ListEntriesRequest) ([]LedgerEntry, int, error) {
	return m.entries, len(m.entries), nil
}

func (m *mockFleetRepo) MonthlySummary(_ context.Context, year, month int) (MonthlySummary, error) {
	s := MonthlySummary{Year: year, Month: month}
	for _, e := range m.entries {
		if e.EntryDate.Year() != year || int(e.EntryDate.Month()) != month {
			continue
		}
		if e.Direction == DirectionIncome {
			s.TotalIncome += e.Amount
		} else {
			s.TotalExpense += e.Amount
		}
	}
	s.Net = s.TotalIncome - s.TotalExpense
	return s, nil
}

func TestCreateTruckNormalizesPatentAndRejectsDuplicates(t *testing.T) {
	repo := newMockFleetRepo()
	svc := NewService(repo)

	truck, err := svc.CreateTruck(context.Background(), CreateTruckRequest{Patent: "ab 123 cd", Model: "Scania R450", CapacityT: 28})
	require.NoError(t, err)
	assert.Equal(t, "AB123CD", truck.Patent)

	_, err = svc.CreateTruck(context.Background(), CreateTruckRequest{Patent: "AB123CD", Model: "Otro"})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestCreateTripRejectsInactiveTruck(t *testing.T) {
	repo := newMockFleetRepo()
	svc := NewService(repo)
	truck, err := svc.CreateTruck(context.Background(), CreateTruckRequest{Patent: "AB123CD", Model: "Scania R450"})
	require.NoError(t, err)

	inactive := false
	_, err = svc.UpdateTruck(context.Background(), truck.ID, UpdateTruckRequest{IsActive: &inactive})
	require.NoError(t, err)

	_, err = svc.CreateTrip(context.Background(), CreateTripRequest{
		TruckID: truck.ID, DriverName: "R. Gomez", Origin: "Rosario",
		Destination: "Cordoba", TripDate: time.Now(),
	})
	assert.ErrorIs(t, err, ErrTruckInactive)
}

func TestRecordEntryDirectionDefaultsFromCategory(t *testing.T) {
	repo := newMockFleetRepo()
	svc := NewService(repo)

	fuel, err := svc.RecordEntry(context.Background(), CreateEntryRequest{Category: CategoryFuel, Amount: 150000}, 7)
	require.NoError(t, err)
	assert.Equal(t, DirectionExpense, fuel.Direction)

	freight, err := svc.RecordEntry(context.Background(), CreateEntryRequest{Category: CategoryFreight, Amount: 900000}, 7)
	require.NoError(t, err)
	assert.Equal(t, DirectionIncome, freight.Direction)

	_, err = svc.RecordEntry(context.Background(), CreateEntryRequest{Category: CategoryOther, Amount: 100}, 7)
	assert.ErrorIs(t, err, ErrInvalidEntry)

	other, err := svc.RecordEntry(context.Background(), CreateEntryRequest{Category: CategoryOther, Direction: DirectionIncome, Amount: 100}, 7)
	require.NoError(t, err)
	assert.Equal(t, DirectionIncome, other.Direction)
}

func TestMonthlySummaryNet(t *testing.T) {
	repo := newMockFleetRepo()
	svc := NewService(repo)
	july := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)

	_, err := svc.RecordEntry(context.Background(), CreateEntryRequest{Category: CategoryFreight, Amount: 1000000, EntryDate: july}, 7)
	require.NoError(t, err)
	_, err = svc.RecordEntry(context.Background(), CreateEntryRequest{Category: CategoryFuel, Amount: 300000, EntryDate: july}, 7)
	require.NoError(t, err)
	_, err = svc.RecordEntry(context.Background(), CreateEntryRequest{Category: CategoryToll, Amount: 50000, EntryDate: july.AddDate(0, 1, 0)}, 7)
	require.NoError(t, err)

	summary, err := svc.MonthlySummary(context.Background(), 2026, 7)
	require.NoError(t, err)

	assert.Equal(t, 1000000.0, summary.TotalIncome)
	assert.Equal(t, 300000.0, summary.TotalExpense)
	assert.Equal(t, 700000.0, summary.Net)
}

func TestMonthlySummaryRejectsBadPeriod(t *testing.T) {
	svc := NewService(newMockFleetRepo())

	_, err := svc.MonthlySummary(context.Background(), 2026, 13)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}
