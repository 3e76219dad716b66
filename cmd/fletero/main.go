package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fletero-erp/fletero-erp/internal/app"
	"github.com/fletero-erp/fletero-erp/internal/auth"
	"github.com/fletero-erp/fletero-erp/internal/delivery/remitos"
	"github.com/fletero-erp/fletero-erp/internal/fleet"
	"github.com/fletero-erp/fletero-erp/internal/inventory"
	"github.com/fletero-erp/fletero-erp/internal/invoicing"
	"github.com/fletero-erp/fletero-erp/internal/masterdata/clients"
	"github.com/fletero-erp/fletero-erp/internal/masterdata/products"
	"github.com/fletero-erp/fletero-erp/internal/platform/cache"
	"github.com/fletero-erp/fletero-erp/internal/platform/db"
	"github.com/fletero-erp/fletero-erp/internal/sales/orders"
	"github.com/fletero-erp/fletero-erp/internal/shared"
	"github.com/fletero-erp/fletero-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, redisClient, cfg.AuthTokenTTL)
	authHandler := auth.NewHandler(logger, authService)
	authMiddleware := auth.Middleware{Service: authService, Logger: logger}

	productRepo := products.NewRepository(pool)
	productService := products.NewService(productRepo)
	productHandler := products.NewHandler(logger, productService)

	clientRepo := clients.NewRepository(pool)
	clientService := clients.NewService(clientRepo)
	clientHandler := clients.NewHandler(logger, clientService)

	inventoryRepo := inventory.NewRepository(pool)
	snapshotCache := inventory.NewSnapshotCache(redisClient, inventoryRepo, cfg.StockSnapshotTTL)
	inventoryService := inventory.NewService(pool, inventoryRepo, snapshotCache, auditLogger, idempotencyStore)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	orderRepo := orders.NewRepository(pool)
	orderService := orders.NewService(orderRepo, productService, clientService, snapshotCache, auditLogger, logger)
	orderHandler := orders.NewHandler(logger, orderService)

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	caeClient := invoicing.NewTaxAuthorityClient(cfg.TaxAuthorityURL)
	invoiceRepo := invoicing.NewRepository(pool)
	invoiceService := invoicing.NewService(invoiceRepo, orderService, jobsClient, caeClient, auditLogger, logger)
	invoiceHandler := invoicing.NewHandler(logger, invoiceService)
	orderService.RegisterVoidHook(invoiceService.VoidForOrder)

	remitoRepo := remitos.NewRepository(pool)
	remitoService := remitos.NewService(remitoRepo, orderService, auditLogger, logger)
	remitoHandler := remitos.NewHandler(logger, remitoService)

	fleetRepo := fleet.NewRepository(pool)
	fleetService := fleet.NewService(fleetRepo)
	fleetHandler := fleet.NewHandler(logger, fleetService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthHandler:      authHandler,
		AuthMiddleware:   authMiddleware,
		ProductHandler:   productHandler,
		ClientHandler:    clientHandler,
		OrderHandler:     orderHandler,
		InvoiceHandler:   invoiceHandler,
		RemitoHandler:    remitoHandler,
		FleetHandler:     fleetHandler,
		InventoryHandler: inventoryHandler,
		JobsHandler:      jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
