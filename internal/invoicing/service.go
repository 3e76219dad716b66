package invoicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
	"github.com/fletero-erp/fletero-erp/internal/sales/orders"
	"github.com/fletero-erp/fletero-erp/internal/shared"
)

var (
	// ErrAlreadyInvoiced signals an issue attempt against an order that
	// already carries a live invoice.
	ErrAlreadyInvoiced = errors.New("invoicing: order already invoiced")
	// ErrOrderVoided signals an issue attempt against a voided order.
	ErrOrderVoided = errors.New("invoicing: order is voided")
)

// OrderSource resolves orders for composition.
type OrderSource interface {
	Get(ctx context.Context, id int64) (*orders.Order, error)
}

// TaskEnqueuer submits the CAE finalization task after an invoice commits.
type TaskEnqueuer interface {
	EnqueueInvoiceFinalize(ctx context.Context, invoiceID int64) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service composes and issues invoices.
type Service struct {
	repo     Repository
	source   OrderSource
	enqueuer TaskEnqueuer
	cae      CAEClient
	audit    AuditPort
	logger   *slog.Logger
}

// NewService wires the invoicing service.
func NewService(repo Repository, source OrderSource, enqueuer TaskEnqueuer, cae CAEClient, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, source: source, enqueuer: enqueuer, cae: cae, audit: audit, logger: logger}
}

// Compose builds an unpersisted invoice preview from an order. A manual
// totals override runs through reconciliation and clears any discount; the
// two never combine.
func (s *Service) Compose(ctx context.Context, orderID int64, req ComposeRequest) (*Draft, error) {
	order, err := s.source.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == orders.StatusAnulado {
		return nil, ErrOrderVoided
	}

	totals := orders.Totals{Subtotal: order.Subtotal, IvaTotal: order.IvaTotal, Total: order.Total}
	draft := Draft{OrderID: orderID, Totals: totals, FinalTotal: totals.Total}

	switch {
	case req.Override != nil:
		if req.Override.Value < 0 {
			return nil, fmt.Errorf("%w: override value must be non-negative", httpx.ErrValidation)
		}
		draft.Totals = orders.Reconcile(totals, req.Override.Field, req.Override.Value)
		draft.FinalTotal = draft.Totals.Total
		draft.ManuallyEdited = true
	case req.Discount != nil:
		amount := orders.ApplyDiscount(*req.Discount, totals)
		kind := req.Discount.Kind
		draft.DiscountKind = &kind
		draft.DiscountRaw = req.Discount.RawValue
		draft.DiscountAmount = amount
		draft.FinalTotal = totals.Total - amount
		if draft.FinalTotal < 0 {
			draft.FinalTotal = 0
		}
	}
	return &draft, nil
}

// Issue persists the invoice, flips the order to FACTURADO in the same
// transaction and enqueues CAE finalization.
func (s *Service) Issue(ctx context.Context, orderID int64, req ComposeRequest, actorID int64) (*Invoice, error) {
	order, err := s.source.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing, err := s.repo.GetByOrder(ctx, orderID); err == nil && existing.Status != StatusAnulada {
		return nil, fmt.Errorf("%w: invoice %s", ErrAlreadyInvoiced, existing.Number)
	} else if err != nil && !errors.Is(err, httpx.ErrNotFound) {
		return nil, err
	}

	draft, err := s.Compose(ctx, orderID, req)
	if err != nil {
		return nil, err
	}

	inv := Invoice{
		OrderID:        orderID,
		OrderDocNumber: order.DocNumber,
		ClientName:     order.Client.Name,
		ClientCUIT:     order.Client.CUIT,
		Status:         StatusPendienteCAE,
		Subtotal:       draft.Totals.Subtotal,
		IvaTotal:       draft.Totals.IvaTotal,
		Total:          draft.Totals.Total,
		DiscountKind:   draft.DiscountKind,
		DiscountRaw:    draft.DiscountRaw,
		DiscountAmount: draft.DiscountAmount,
		FinalTotal:     draft.FinalTotal,
		ManuallyEdited: draft.ManuallyEdited,
		IssuedBy:       actorID,
	}

	var invoiceID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx)
		if err != nil {
			return err
		}
		inv.Number = number

		invoiceID, err = tx.Insert(ctx, inv)
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		return tx.MarkOrderInvoiced(ctx, orderID)
	})
	if err != nil {
		return nil, err
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueInvoiceFinalize(ctx, invoiceID); err != nil {
			// The invoice stays PENDIENTE_CAE; the sweep cron retries it.
			s.logger.Warn("enqueue invoice finalize", slog.Any("error", err), slog.Int64("invoice_id", invoiceID))
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "invoicing:issue",
			Entity:   "invoice",
			EntityID: fmt.Sprintf("%d", invoiceID),
			Meta: map[string]any{
				"number":      inv.Number,
				"order_id":    orderID,
				"final_total": inv.FinalTotal,
			},
		})
	}
	return s.repo.Get(ctx, invoiceID)
}

// Get returns one invoice.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// GetByOrder returns the live invoice of an order.
func (s *Service) GetByOrder(ctx context.Context, orderID int64) (*Invoice, error) {
	return s.repo.GetByOrder(ctx, orderID)
}

// List returns invoices matching the filter.
func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// VoidForOrder cancels the order's invoice. Registered as an order void
// hook so voiding an invoiced order cascades here.
func (s *Service) VoidForOrder(ctx context.Context, orderID int64) error {
	return s.repo.VoidByOrder(ctx, orderID)
}

// FinalizeInvoice obtains the CAE for a pending invoice and stamps it.
// Idempotent: invoices past PENDIENTE_CAE are left alone.
func (s *Service) FinalizeInvoice(ctx context.Context, invoiceID int64) error {
	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status != StatusPendienteCAE {
		return nil
	}

	cae, dueDate, err := s.cae.Authorize(ctx, inv)
	if err != nil {
		return fmt.Errorf("authorize invoice %s: %w", inv.Number, err)
	}
	if err := s.repo.SetCAE(ctx, invoiceID, cae, dueDate); err != nil {
		return err
	}
	s.logger.Info("invoice finalized", slog.String("number", inv.Number), slog.String("cae", cae))
	return nil
}

// SweepPendingInvoices retries finalization for invoices still waiting for
// their CAE, covering enqueue failures and worker downtime.
func (s *Service) SweepPendingInvoices(ctx context.Context) error {
	items, _, err := s.repo.List(ctx, ListInvoicesRequest{Status: StatusPendienteCAE, Limit: 200})
	if err != nil {
		return err
	}
	var firstErr error
	for _, inv := range items {
		if err := s.FinalizeInvoice(ctx, inv.ID); err != nil {
			s.logger.Warn("sweep pending invoice", slog.Any("error", err), slog.Int64("invoice_id", inv.ID))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
