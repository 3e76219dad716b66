package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue all background jobs run on.
	QueueDefault = "default"

	// TaskInvoiceFinalize obtains and stamps the CAE for one invoice.
	TaskInvoiceFinalize = "invoice:finalize"
	// TaskInvoiceSweep retries all invoices still waiting for a CAE.
	TaskInvoiceSweep = "invoice:sweep"
	// TaskStockSnapshotRefresh re-warms the advisory stock snapshot cache.
	TaskStockSnapshotRefresh = "stock:snapshot_refresh"
	// TaskIdempotencyCleanup drops expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// InvoiceFinalizePayload identifies the invoice to finalize.
type InvoiceFinalizePayload struct {
	InvoiceID int64 `json:"invoice_id"`
}

// NewInvoiceFinalizeTask constructs the finalize task with retry backoff.
func NewInvoiceFinalizeTask(payload InvoiceFinalizePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceFinalize, data, asynq.MaxRetry(8), asynq.Timeout(30*time.Second)), nil
}

// NewInvoiceSweepTask constructs the periodic sweep task.
func NewInvoiceSweepTask() *asynq.Task {
	return asynq.NewTask(TaskInvoiceSweep, nil)
}

// NewStockSnapshotRefreshTask constructs the cache warm task.
func NewStockSnapshotRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskStockSnapshotRefresh, nil)
}

// NewIdempotencyCleanupTask constructs the key cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueInvoiceFinalize enqueues CAE finalization for one invoice.
func (c *Client) EnqueueInvoiceFinalize(ctx context.Context, invoiceID int64) error {
	task, err := NewInvoiceFinalizeTask(InvoiceFinalizePayload{InvoiceID: invoiceID})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
