package remitos

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
	"github.com/fletero-erp/fletero-erp/internal/sales/orders"
)

type mockRemitoRepo struct {
	remitos map[int64]*Remito
	nextID  int64
}

func newMockRemitoRepo() *mockRemitoRepo {
	return &mockRemitoRepo{remitos: make(map[int64]*Remito), nextID: 1}
}

func (m *mockRemitoRepo) Get(_ context.Context, id int64) (*Remito, error) {
	rem, ok := m.remitos[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	clone := *rem
	clone.Lines = append([]RemitoLine(nil), rem.Lines...)
	return &clone, nil
}

func (m *mockRemitoRepo) List(_ context.Context, _ ListRemitosRequest) ([]Remito, int, error) {
	var items []Remito
	for _, rem := range m.remitos {
		items = append(items, *rem)
	}
	return items, len(items), nil
}

func (m *mockRemitoRepo) DeliveredByOrderLine(_ context.Context, orderID int64) (map[int64]float64, error) {
	out := make(map[int64]float64)
	for _, rem := range m.remitos {
		if rem.OrderID != orderID {
			continue
		}
		for _, l := range rem.Lines {
			out[l.OrderLineID] += l.QtyDelivered
		}
	}
	return out, nil
}

func (m *mockRemitoRepo) Create(_ context.Context, rem Remito) (int64, error) {
	id := m.nextID
	m.nextID++
	rem.ID = id
	rem.Number = fmt.Sprintf("REM-%08d", id)
	m.remitos[id] = &rem
	return id, nil
}

func (m *mockRemitoRepo) MarkDelivered(_ context.Context, id int64) error {
	rem, ok := m.remitos[id]
	if !ok {
		return httpx.ErrNotFound
	}
	if rem.Status != StatusPendiente {
		return ErrAlreadyDelivered
	}
	now := time.Now()
	rem.Status = StatusEntregado
	rem.DeliveredAt = &now
	return nil
}

type mockOrderSource struct {
	orders map[int64]*orders.Order
}

func (m *mockOrderSource) Get(_ context.Context, id int64) (*orders.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return o, nil
}

func newRemitoFixture() (*Service, *mockRemitoRepo) {
	repo := newMockRemitoRepo()
	source := &mockOrderSource{orders: map[int64]*orders.Order{
		1: {
			ID: 1, DocNumber: "PED-00000001", Status: orders.StatusExportado,
			Client: orders.ClientSnapshot{Name: "Corralon Norte SA", Address: "Ruta 9 km 44"},
			Lines: []orders.OrderLine{
				{ID: 100, ProductID: 10, ProductName: "Cemento x50kg", Unit: "bolsa", Quantity: 10},
				{ID: 101, ProductID: 11, ProductName: "Arena fina", Unit: "m3", Quantity: 4},
			},
		},
		2: {ID: 2, Status: orders.StatusAnulado},
	}}
	return NewService(repo, source, nil, slog.Default()), repo
}

func TestCreateRemitoFromOrder(t *testing.T) {
	svc, _ := newRemitoFixture()

	rem, err := svc.Create(context.Background(), CreateRemitoRequest{
		OrderID: 1,
		Lines: []RemitoLineRequest{
			{OrderLineID: 100, QtyDelivered: 6},
			{OrderLineID: 101, QtyDelivered: 4},
		},
	}, 7)
	require.NoError(t, err)

	assert.Equal(t, StatusPendiente, rem.Status)
	assert.Equal(t, "PED-00000001", rem.OrderDocNumber)
	assert.Equal(t, "Ruta 9 km 44", rem.DeliveryAddr)
	assert.Len(t, rem.Lines, 2)
	assert.Equal(t, "Cemento x50kg", rem.Lines[0].ProductName)
}

func TestCreateRemitoRejectsOverDelivery(t *testing.T) {
	svc, _ := newRemitoFixture()

	_, err := svc.Create(context.Background(), CreateRemitoRequest{
		OrderID: 1,
		Lines:   []RemitoLineRequest{{OrderLineID: 100, QtyDelivered: 11}},
	}, 7)

	assert.ErrorIs(t, err, ErrQuantityExceedsOrdered)
}

func TestCreateRemitoCapsAgainstPriorDeliveries(t *testing.T) {
	svc, _ := newRemitoFixture()

	_, err := svc.Create(context.Background(), CreateRemitoRequest{
		OrderID: 1,
		Lines:   []RemitoLineRequest{{OrderLineID: 100, QtyDelivered: 6}},
	}, 7)
	require.NoError(t, err)

	// 6 of 10 already on a remito; only 4 remain.
	_, err = svc.Create(context.Background(), CreateRemitoRequest{
		OrderID: 1,
		Lines:   []RemitoLineRequest{{OrderLineID: 100, QtyDelivered: 5}},
	}, 7)
	assert.ErrorIs(t, err, ErrQuantityExceedsOrdered)

	rem, err := svc.Create(context.Background(), CreateRemitoRequest{
		OrderID: 1,
		Lines:   []RemitoLineRequest{{OrderLineID: 100, QtyDelivered: 4}},
	}, 7)
	require.NoError(t, err)
	assert.Equal(t, 4.0, rem.Lines[0].QtyDelivered)
}

func TestCreateRemitoRejectsVoidedOrder(t *testing.T) {
	svc, _ := newRemitoFixture()

	_, err := svc.Create(context.Background(), CreateRemitoRequest{
		OrderID: 2,
		Lines:   []RemitoLineRequest{{OrderLineID: 100, QtyDelivered: 1}},
	}, 7)

	assert.ErrorIs(t, err, ErrOrderNotOpen)
}

func TestMarkDelivered(t *testing.T) {
	svc, _ := newRemitoFixture()
	rem, err := svc.Create(context.Background(), CreateRemitoRequest{
		OrderID: 1,
		Lines:   []RemitoLineRequest{{OrderLineID: 101, QtyDelivered: 2}},
	}, 7)
	require.NoError(t, err)

	delivered, err := svc.MarkDelivered(context.Background(), rem.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, StatusEntregado, delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)

	_, err = svc.MarkDelivered(context.Background(), rem.ID, 7)
	assert.ErrorIs(t, err, ErrAlreadyDelivered)
}
