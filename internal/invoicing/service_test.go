package invoicing

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
	_ "github.com/fletero-erp/fletero-erp/testing"
)

type mockInvoiceRepo struct {
	invoices map[int64]*Invoice
	nextID   int64
	nextSeq  int64
	marked   []int64
}

func newMockInvoiceRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{invoices: make(map[int64]*Invoice), nextID: 1, nextSeq: 1}
}

func (m *mockInvoiceRepo) Get(_ context.Context, id int64) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	clone := *inv
	return &clone, nil
}

func (m *mockInvoiceRepo) GetByOrder(_ context.Context, orderID int64) (*Invoice, error) {
	for _, inv := range m.invoices {
		if inv.OrderID == orderID {
			clone := *inv
			return &clone, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (m *mockInvoiceRepo) List(_ context.Context, _ ListInvoicesRequest) ([]Invoice, int, error) {
	var items []Invoice
	for _, inv := range m.invoices {
		items = append(items, *inv)
	}
	return items, len(items), nil
}

func (m *mockInvoiceRepo) SetCAE(_ context.Context, id int64, cae string, dueDate time.Time) error {
	inv, ok := m.invoices[id]
	if !ok || inv.Status != StatusPendienteCAE {
		return httpx.ErrConflict
	}
	inv.CAE = cae
	inv.CAEDueDate = &dueDate
	inv.Status = StatusEmitida
	return nil
}

func (m *mockInvoiceRepo) VoidByOrder(_ context.Context, orderID int64) error {
	for _, inv := range m.invoices {
		if inv.OrderID == orderID {
			inv.Status = StatusAnulada
		}
	}
	return nil
}

func (m *mockInvoiceRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *mockInvoiceRepo) NextNumber(_ context.Context) (string, error) {
	n := m.nextSeq
	m.nextSeq++
	return fmt.Sprintf("FC-0001-%08d", n), nil
}

func (m *mockInvoiceRepo) Insert(_ context.Context, inv Invoice) (int64, error) {
	id := m.nextID
	m.nextID++
	inv.ID = id
	m.invoices[id] = &inv
	return id, nil
}

func (m *mockInvoiceRepo) MarkOrderInvoiced(_ context.Context, orderID int64) error {
	m.marked = append(m.marked, orderID)
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

type mockEnqueuer struct {
	enqueued []int64
}

func (m *mockEnqueuer) EnqueueInvoiceFinalize(_ context.Context, invoiceID int64) error {
	m.enqueued = append(m.enqueued, invoiceID)
	return nil
}

type fixedCAE struct{}

func (fixedCAE) Authorize(_ context.Context, _ *Invoice) (string, time.Time, error) {
	return "20261234567890", time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC), nil
}

func newInvoicingFixture() (*Service, *mockInvoiceRepo, *mockEnqueuer) {
	repo := newMockInvoiceRepo()
	source := &mockOrderSource{orders: map[int64]*orders.Order{
		1: {
			ID: 1, DocNumber: "PED-00000001", Status: orders.StatusExportado,
			Client:   orders.ClientSnapshot{Name: "Corralon Norte SA", CUIT: "30712345678"},
			Subtotal: 245, IvaTotal: 51.45, Total: 296.45,
		},
		2: {
			ID: 2, DocNumber: "PED-00000002", Status: orders.StatusAnulado,
			Subtotal: 100, IvaTotal: 21, Total: 121,
		},
	}}
	enq := &mockEnqueuer{}
	svc := NewService(repo, source, enq, fixedCAE{}, nil, slog.Default())
	return svc, repo, enq
}

func TestComposePlain(t *testing.T) {
	svc, _, _ := newInvoicingFixture()

	draft, err := svc.Compose(context.Background(), 1, ComposeRequest{})
	require.NoError(t, err)

	assert.Equal(t, 296.45, draft.FinalTotal)
	assert.Nil(t, draft.DiscountKind)
	assert.False(t, draft.ManuallyEdited)
}

func TestComposeWithFlatDiscountClampedToTotal(t *testing.T) {
	svc, _, _ := newInvoicingFixture()

	draft, err := svc.Compose(context.Background(), 1, ComposeRequest{
		Discount: &orders.Discount{Kind: orders.DiscountFlatAmount, RawValue: 500},
	})
	require.NoError(t, err)

	assert.Equal(t, 296.45, draft.DiscountAmount)
	assert.Equal(t, 0.0, draft.FinalTotal)
}

func TestComposeWithPercentOfIvaDiscount(t *testing.T) {
	svc, _, _ := newInvoicingFixture()

	draft, err := svc.Compose(context.Background(), 1, ComposeRequest{
		Discount: &orders.Discount{Kind: orders.DiscountPercentOfIva, RawValue: 100},
	})
	require.NoError(t, err)

	assert.Equal(t, 51.45, draft.DiscountAmount)
	assert.Equal(t, 245.0, draft.FinalTotal)
}

func TestComposeOverrideClearsDiscount(t *testing.T) {
	svc, _, _ := newInvoicingFixture()

	draft, err := svc.Compose(context.Background(), 1, ComposeRequest{
		Discount: &orders.Discount{Kind: orders.DiscountFlatAmount, RawValue: 50},
		Override: &TotalsOverride{Field: orders.FieldTotal, Value: 242},
	})
	require.NoError(t, err)

	assert.True(t, draft.ManuallyEdited)
	assert.Nil(t, draft.DiscountKind)
	assert.Zero(t, draft.DiscountAmount)
	assert.Equal(t, 242.0, draft.FinalTotal)
	assert.InDelta(t, 42.0, draft.Totals.IvaTotal, 0.005)
	assert.InDelta(t, 200.0, draft.Totals.Subtotal, 0.005)
}

func TestComposeRejectsNegativeOverride(t *testing.T) {
	svc, _, _ := newInvoicingFixture()

	_, err := svc.Compose(context.Background(), 1, ComposeRequest{
		Override: &TotalsOverride{Field: orders.FieldTotal, Value: -100},
	})

	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestComposeRejectsVoidedOrder(t *testing.T) {
	svc, _, _ := newInvoicingFixture()

	_, err := svc.Compose(context.Background(), 2, ComposeRequest{})

	assert.ErrorIs(t, err, ErrOrderVoided)
}

func TestIssueMarksOrderAndEnqueuesFinalize(t *testing.T) {
	svc, repo, enq := newInvoicingFixture()

	inv, err := svc.Issue(context.Background(), 1, ComposeRequest{}, 7)
	require.NoError(t, err)

	assert.Equal(t, StatusPendienteCAE, inv.Status)
	assert.Equal(t, "PED-00000001", inv.OrderDocNumber)
	assert.Equal(t, []int64{1}, repo.marked)
	assert.Equal(t, []int64{inv.ID}, enq.enqueued)
}

func TestIssueRejectsSecondInvoice(t *testing.T) {
	svc, _, _ := newInvoicingFixture()

	_, err := svc.Issue(context.Background(), 1, ComposeRequest{}, 7)
	require.NoError(t, err)

	_, err = svc.Issue(context.Background(), 1, ComposeRequest{}, 7)
	assert.ErrorIs(t, err, ErrAlreadyInvoiced)
}

func TestFinalizeInvoiceStampsCAE(t *testing.T) {
	svc, repo, _ := newInvoicingFixture()
	inv, err := svc.Issue(context.Background(), 1, ComposeRequest{}, 7)
	require.NoError(t, err)

	require.NoError(t, svc.FinalizeInvoice(context.Background(), inv.ID))

	stamped := repo.invoices[inv.ID]
	assert.Equal(t, StatusEmitida, stamped.Status)
	assert.Equal(t, "20261234567890", stamped.CAE)

	// Already finalized: a retry is a no-op.
	require.NoError(t, svc.FinalizeInvoice(context.Background(), inv.ID))
}

func TestVoidForOrderCancelsInvoice(t *testing.T) {
	svc, repo, _ := newInvoicingFixture()
	inv, err := svc.Issue(context.Background(), 1, ComposeRequest{}, 7)
	require.NoError(t, err)

	require.NoError(t, svc.VoidForOrder(context.Background(), 1))

	assert.Equal(t, StatusAnulada, repo.invoices[inv.ID].Status)
}

func TestPrintableFormatsAmounts(t *testing.T) {
	due := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	inv := &Invoice{
		Number: "FC-0001-00000001", OrderDocNumber: "PED-00000001",
		ClientName: "Corralon Norte SA", ClientCUIT: "30712345678",
		Status: StatusEmitida, Subtotal: 1245, IvaTotal: 261.45, Total: 1506.45,
		FinalTotal: 1506.45, CAE: "20261234567890", CAEDueDate: &due,
	}

	out := Printable(inv)

	assert.Contains(t, out, "FACTURA FC-0001-00000001")
	assert.Contains(t, out, "CUIT 30712345678")
	assert.Contains(t, out, "1.506,45")
	assert.Contains(t, out, "CAE: 20261234567890")
	assert.Contains(t, out, "vto. 10/09/2026")
}
