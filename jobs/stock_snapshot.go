package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// SnapshotWarmer is implemented by the inventory snapshot cache.
type SnapshotWarmer interface {
	Warm(ctx context.Context) error
}

// NewStockSnapshotRefreshHandler processes TaskStockSnapshotRefresh tasks.
func NewStockSnapshotRefreshHandler(warmer SnapshotWarmer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		if err := warmer.Warm(ctx); err != nil {
			logger.Warn("stock snapshot refresh", slog.Any("error", err))
			return err
		}
		logger.Debug("stock snapshots warmed")
		return nil
	}
}
