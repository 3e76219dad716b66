package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// InvoiceFinalizer is implemented by the invoicing service.
type InvoiceFinalizer interface {
	FinalizeInvoice(ctx context.Context, invoiceID int64) error
	SweepPendingInvoices(ctx context.Context) error
}

// NewInvoiceFinalizeHandler processes TaskInvoiceFinalize tasks. Errors
// propagate so asynq retries with backoff.
func NewInvoiceFinalizeHandler(finalizer InvoiceFinalizer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload InvoiceFinalizePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := finalizer.FinalizeInvoice(ctx, payload.InvoiceID); err != nil {
			logger.Warn("finalize invoice", slog.Int64("invoice_id", payload.InvoiceID), slog.Any("error", err))
			return err
		}
		return nil
	}
}

// NewInvoiceSweepHandler processes the periodic TaskInvoiceSweep tasks.
func NewInvoiceSweepHandler(finalizer InvoiceFinalizer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		if err := finalizer.SweepPendingInvoices(ctx); err != nil {
			logger.Warn("invoice sweep", slog.Any("error", err))
			return err
		}
		return nil
	}
}
