package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/fletero-erp/fletero-erp/internal/app"
	"github.com/fletero-erp/fletero-erp/internal/inventory"
	"github.com/fletero-erp/fletero-erp/internal/invoicing"
	"github.com/fletero-erp/fletero-erp/internal/platform/cache"
	"github.com/fletero-erp/fletero-erp/internal/platform/db"
	"github.com/fletero-erp/fletero-erp/internal/sales/orders"
	"github.com/fletero-erp/fletero-erp/internal/shared"
	"github.com/fletero-erp/fletero-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	inventoryRepo := inventory.NewRepository(pool)
	snapshotCache := inventory.NewSnapshotCache(redisClient, inventoryRepo, cfg.StockSnapshotTTL)

	// Finalization only reads orders, so the repository serves as the
	// order source directly.
	orderRepo := orders.NewRepository(pool)

	caeClient := invoicing.NewTaxAuthorityClient(cfg.TaxAuthorityURL)
	invoiceRepo := invoicing.NewRepository(pool)
	invoiceService := invoicing.NewService(invoiceRepo, orderRepo, nil, caeClient, auditLogger, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInvoiceFinalize, Handler: jobs.NewInvoiceFinalizeHandler(invoiceService, logger)},
			{Type: jobs.TaskInvoiceSweep, Handler: jobs.NewInvoiceSweepHandler(invoiceService, logger)},
			{Type: jobs.TaskStockSnapshotRefresh, Handler: jobs.NewStockSnapshotRefreshHandler(snapshotCache, logger)},
			{Type: jobs.TaskIdempotencyCleanup, Handler: jobs.NewIdempotencyCleanupHandler(idempotencyStore, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/10 * * * *", Task: jobs.NewInvoiceSweepTask(), Options: []asynq.Option{asynq.MaxRetry(2)}},
			{Spec: "*/5 * * * *", Task: jobs.NewStockSnapshotRefreshTask()},
			{Spec: "45 3 * * *", Task: jobs.NewIdempotencyCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(2)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
