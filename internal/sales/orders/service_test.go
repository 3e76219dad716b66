package orders

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fletero-erp/fletero-erp/internal/inventory"
	"github.com/fletero-erp/fletero-erp/internal/masterdata/clients"
	"github.com/fletero-erp/fletero-erp/internal/masterdata/products"
	"github.com/fletero-erp/fletero-erp/internal/shared"
)

// ----------------------------------------------------------------------------
// mocks
// ----------------------------------------------------------------------------

type mockRepo struct {
	orders  map[int64]*Order
	nextID  int64
	nextDoc int64

	reserved  map[int64]float64
	released  map[int64]float64
	txStarted int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		orders:   make(map[int64]*Order),
		nextID:   1,
		nextDoc:  1,
		reserved: make(map[int64]float64),
		released: make(map[int64]float64),
	}
}

func (m *mockRepo) Get(_ context.Context, id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, assert.AnError
	}
	clone := *o
	clone.Lines = append([]OrderLine(nil), o.Lines...)
	return &clone, nil
}

func (m *mockRepo) List(_ context.Context, _ ListOrdersRequest) ([]Order, int, error) {
	var items []Order
	for _, o := range m.orders {
		items = append(items, *o)
	}
	return items, len(items), nil
}

func (m *mockRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.txStarted++
	shadow := &mockTx{repo: newMockRepo()}
	shadow.repo.nextID = m.nextID
	shadow.repo.nextDoc = m.nextDoc
	for id, o := range m.orders {
		clone := *o
		clone.Lines = append([]OrderLine(nil), o.Lines...)
		shadow.repo.orders[id] = &clone
	}
	if err := fn(ctx, shadow); err != nil {
		return err
	}
	// Commit: replace state and merge stock effects.
	m.orders = shadow.repo.orders
	m.nextID = shadow.repo.nextID
	m.nextDoc = shadow.repo.nextDoc
	for id, qty := range shadow.repo.reserved {
		m.reserved[id] += qty
	}
	for id, qty := range shadow.repo.released {
		m.released[id] += qty
	}
	return nil
}

type mockTx struct {
	repo *mockRepo
}

func (t *mockTx) NextDocNumber(_ context.Context) (string, error) {
	n := t.repo.nextDoc
	t.repo.nextDoc++
	return fmt.Sprintf("PED-%08d", n), nil
}

func (t *mockTx) GetForUpdate(ctx context.Context, id int64) (*Order, error) {
	return t.repo.Get(ctx, id)
}

func (t *mockTx) InsertOrder(_ context.Context, o Order) (int64, error) {
	id := t.repo.nextID
	t.repo.nextID++
	o.ID = id
	t.repo.orders[id] = &o
	return id, nil
}

func (t *mockTx) InsertLine(_ context.Context, l OrderLine) (int64, error) {
	o := t.repo.orders[l.OrderID]
	l.ID = t.repo.nextID
	t.repo.nextID++
	o.Lines = append(o.Lines, l)
	return l.ID, nil
}

func (t *mockTx) UpdateLine(_ context.Context, l OrderLine) error {
	o := t.repo.orders[l.OrderID]
	for i := range o.Lines {
		if o.Lines[i].ID == l.ID {
			o.Lines[i] = l
			return nil
		}
	}
	return ErrLineNotFound
}

func (t *mockTx) DeleteLine(_ context.Context, orderID, lineID int64) error {
	o := t.repo.orders[orderID]
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

func (t *mockTx) UpdateTotals(_ context.Context, orderID int64, totals Totals) error {
	o := t.repo.orders[orderID]
	o.Subtotal, o.IvaTotal, o.Total = totals.Subtotal, totals.IvaTotal, totals.Total
	return nil
}

func (t *mockTx) UpdateStatus(_ context.Context, orderID int64, status OrderStatus, reason string) error {
	o := t.repo.orders[orderID]
	o.Status = status
	o.VoidReason = reason
	return nil
}

func (t *mockTx) ReserveStock(_ context.Context, productID int64, qty float64, _ inventory.Ref) error {
	t.repo.reserved[productID] += qty
	return nil
}

func (t *mockTx) ReleaseStock(_ context.Context, productID int64, qty float64, _ inventory.Ref) error {
	t.repo.released[productID] += qty
	return nil
}

type mockCatalog struct {
	items map[int64]*products.Product
}

func (m *mockCatalog) Get(_ context.Context, id int64) (*products.Product, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, assert.AnError
	}
	return p, nil
}

type mockDirectory struct {
	items map[int64]*clients.Client
}

func (m *mockDirectory) Get(_ context.Context, id int64) (*clients.Client, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, assert.AnError
	}
	return c, nil
}

type mockStock struct {
	levels      map[int64]float64
	invalidated []int64
}

func (m *mockStock) Snapshot(_ context.Context, productID int64) (inventory.StockSnapshot, error) {
	return inventory.StockSnapshot{
		ProductID:   productID,
		StockActual: m.levels[productID],
		TakenAt:     time.Now(),
	}, nil
}

func (m *mockStock) Invalidate(_ context.Context, productIDs ...int64) {
	m.invalidated = append(m.invalidated, productIDs...)
}

type mockAudit struct {
	records []shared.AuditLog
}

func (m *mockAudit) Record(_ context.Context, log shared.AuditLog) error {
	m.records = append(m.records, log)
	return nil
}

// ----------------------------------------------------------------------------
// fixtures
// ----------------------------------------------------------------------------

func newFixture(t *testing.T) (*Service, *mockRepo, *mockStock, *mockAudit) {
	t.Helper()
	repo := newMockRepo()
	stock := &mockStock{levels: map[int64]float64{10: 100, 11: 5, 12: 0}}
	audit := &mockAudit{}
	catalog := &mockCatalog{items: map[int64]*products.Product{
		10: {ID: 10, Code: "CEM-01", Name: "Cemento x50kg", Unit: "bolsa", ListPrice: 100, IvaPercent: 21, IsActive: true},
		11: {ID: 11, Code: "ARE-01", Name: "Arena fina", Unit: "m3", ListPrice: 50, IvaPercent: 21, IsActive: true},
		12: {ID: 12, Code: "CAL-01", Name: "Cal hidratada", Unit: "bolsa", ListPrice: 30, IvaPercent: 21, IsActive: true},
	}}
	directory := &mockDirectory{items: map[int64]*clients.Client{
		1: {ID: 1, Name: "Corralon Norte SA", CUIT: "30712345678", TaxCondition: clients.TaxConditionRI, Address: "Ruta 9 km 44", IsActive: true},
	}}
	svc := NewService(repo, catalog, directory, stock, audit, slog.Default())
	return svc, repo, stock, audit
}

func createOrder(t *testing.T, svc *Service) *Order {
	t.Helper()
	order, err := svc.Create(context.Background(), CreateOrderRequest{
		ClientID: 1,
		Lines: []LineRequest{
			{ProductID: 10, Quantity: 2},
			{ProductID: 11, Quantity: 1, DiscountPercent: 10},
		},
	}, 7)
	require.NoError(t, err)
	return order
}

// ----------------------------------------------------------------------------
// tests
// ----------------------------------------------------------------------------

func TestCreateOrderComputesTotalsAndReservesStock(t *testing.T) {
	svc, repo, stock, audit := newFixture(t)

	order := createOrder(t, svc)

	assert.Equal(t, StatusExportado, order.Status)
	assert.Equal(t, "Corralon Norte SA", order.Client.Name)
	assert.Equal(t, "30712345678", order.Client.CUIT)
	assert.Len(t, order.Lines, 2)
	assert.Equal(t, 245.0, order.Subtotal)
	assert.Equal(t, 51.45, order.IvaTotal)
	assert.Equal(t, 296.45, order.Total)

	assert.Equal(t, 2.0, repo.reserved[10])
	assert.Equal(t, 1.0, repo.reserved[11])
	assert.Contains(t, stock.invalidated, int64(10))
	require.NotEmpty(t, audit.records)
	assert.Equal(t, "orders:create", audit.records[0].Action)
}

func TestCreateOrderRejectsDuplicateProductInRequest(t *testing.T) {
	svc, repo, _, _ := newFixture(t)

	_, err := svc.Create(context.Background(), CreateOrderRequest{
		ClientID: 1,
		Lines: []LineRequest{
			{ProductID: 10, Quantity: 1},
			{ProductID: 10, Quantity: 2},
		},
	}, 7)

	require.ErrorIs(t, err, ErrDuplicateProduct)
	assert.Zero(t, repo.txStarted, "no transaction should be opened")
}

func TestCreateOrderRejectsInsufficientStock(t *testing.T) {
	svc, repo, _, _ := newFixture(t)

	_, err := svc.Create(context.Background(), CreateOrderRequest{
		ClientID: 1,
		Lines:    []LineRequest{{ProductID: 11, Quantity: 6}},
	}, 7)

	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Zero(t, repo.txStarted)
	assert.Empty(t, repo.reserved)
}

func TestAddLineRejectsDuplicateProduct(t *testing.T) {
	svc, repo, _, _ := newFixture(t)
	order := createOrder(t, svc)
	txBefore := repo.txStarted

	_, err := svc.AddLine(context.Background(), order.ID, LineRequest{ProductID: 10, Quantity: 1}, 7)

	require.ErrorIs(t, err, ErrDuplicateProduct)
	assert.Equal(t, txBefore, repo.txStarted, "rejection must happen before any write")
}

func TestAddLineRejectsQuantityOverSnapshot(t *testing.T) {
	svc, repo, _, _ := newFixture(t)
	order := createOrder(t, svc)
	txBefore := repo.txStarted

	_, err := svc.AddLine(context.Background(), order.ID, LineRequest{ProductID: 12, Quantity: 1}, 7)

	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Equal(t, txBefore, repo.txStarted)
	assert.Zero(t, repo.reserved[12])
}

func TestAddLineRecomputesTotals(t *testing.T) {
	svc, repo, stock, _ := newFixture(t)
	order := createOrder(t, svc)
	stockBefore := repo.reserved[12]
	stock.levels[12] = 10

	updated, err := svc.AddLine(context.Background(), order.ID, LineRequest{ProductID: 12, Quantity: 1}, 7)
	require.NoError(t, err)

	assert.Len(t, updated.Lines, 3)
	assert.Equal(t, 275.0, updated.Subtotal)
	assert.Equal(t, 57.75, updated.IvaTotal)
	assert.Equal(t, 332.75, updated.Total)
	assert.Equal(t, stockBefore+1, repo.reserved[12])
}

func TestUpdateLineReservesOnlyTheDelta(t *testing.T) {
	svc, repo, _, _ := newFixture(t)
	order := createOrder(t, svc)
	line := order.Lines[0] // product 10, qty 2

	qty := 5
	updated, err := svc.UpdateLine(context.Background(), order.ID, line.ID, UpdateLineRequest{Quantity: &qty}, 7)
	require.NoError(t, err)

	assert.Equal(t, 5.0, repo.reserved[10], "2 at create plus delta 3")
	got, _ := updated.LineByID(line.ID)
	assert.Equal(t, 5, got.Quantity)
	assert.Equal(t, 500.0, got.Subtotal)
	assert.Equal(t, 545.0, updated.Subtotal)
}

func TestUpdateLineReleasesOnShrink(t *testing.T) {
	svc, repo, _, _ := newFixture(t)
	order := createOrder(t, svc)
	line := order.Lines[0]

	qty := 1
	_, err := svc.UpdateLine(context.Background(), order.ID, line.ID, UpdateLineRequest{Quantity: &qty}, 7)
	require.NoError(t, err)

	assert.Equal(t, 1.0, repo.released[10])
}

func TestRemoveLineReleasesStockAndRecomputes(t *testing.T) {
	svc, repo, _, _ := newFixture(t)
	order := createOrder(t, svc)
	line := order.Lines[1] // product 11, qty 1, subtotal 45

	updated, err := svc.RemoveLine(context.Background(), order.ID, line.ID, 7)
	require.NoError(t, err)

	assert.Len(t, updated.Lines, 1)
	assert.Equal(t, 1.0, repo.released[11])
	assert.Equal(t, 200.0, updated.Subtotal)
	assert.Equal(t, 42.0, updated.IvaTotal)
	assert.Equal(t, 242.0, updated.Total)
}

func TestLineMutationsRejectedOnFinalOrder(t *testing.T) {
	svc, repo, _, _ := newFixture(t)
	order := createOrder(t, svc)
	repo.orders[order.ID].Status = StatusFacturado

	_, err := svc.AddLine(context.Background(), order.ID, LineRequest{ProductID: 12, Quantity: 1}, 7)
	assert.ErrorIs(t, err, ErrOrderFinal)

	qty := 9
	_, err = svc.UpdateLine(context.Background(), order.ID, order.Lines[0].ID, UpdateLineRequest{Quantity: &qty}, 7)
	assert.ErrorIs(t, err, ErrOrderFinal)

	_, err = svc.RemoveLine(context.Background(), order.ID, order.Lines[0].ID, 7)
	assert.ErrorIs(t, err, ErrOrderFinal)
}

func TestVoidReleasesAllStockAndRunsHooks(t *testing.T) {
	svc, repo, _, _ := newFixture(t)
	order := createOrder(t, svc)

	var hookOrder int64
	svc.RegisterVoidHook(func(_ context.Context, orderID int64) error {
		hookOrder = orderID
		return nil
	})

	voided, err := svc.Void(context.Background(), order.ID, VoidOrderRequest{Reason: "cliente cancelo"}, 7)
	require.NoError(t, err)

	assert.Equal(t, StatusAnulado, voided.Status)
	assert.Equal(t, "cliente cancelo", voided.VoidReason)
	assert.Equal(t, 2.0, repo.released[10])
	assert.Equal(t, 1.0, repo.released[11])
	assert.Equal(t, order.ID, hookOrder)
}

func TestVoidRejectedTwice(t *testing.T) {
	svc, _, _, _ := newFixture(t)
	order := createOrder(t, svc)

	_, err := svc.Void(context.Background(), order.ID, VoidOrderRequest{Reason: "x"}, 7)
	require.NoError(t, err)

	_, err = svc.Void(context.Background(), order.ID, VoidOrderRequest{Reason: "x"}, 7)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
