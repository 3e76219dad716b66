package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// idempotency keys outlive any legitimate client retry window by a wide
// margin before they are dropped.
const idempotencyRetention = 72 * time.Hour

// KeyCleaner is implemented by the shared idempotency store.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// NewIdempotencyCleanupHandler processes TaskIdempotencyCleanup tasks.
func NewIdempotencyCleanupHandler(cleaner KeyCleaner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		if err := cleaner.Cleanup(ctx, idempotencyRetention); err != nil {
			logger.Warn("idempotency cleanup", slog.Any("error", err))
			return err
		}
		return nil
	}
}
