package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fletero-erp/fletero-erp/internal/auth"
	"github.com/fletero-erp/fletero-erp/internal/delivery/remitos"
	"github.com/fletero-erp/fletero-erp/internal/fleet"
	"github.com/fletero-erp/fletero-erp/internal/inventory"
	"github.com/fletero-erp/fletero-erp/internal/invoicing"
	"github.com/fletero-erp/fletero-erp/internal/masterdata/clients"
	"github.com/fletero-erp/fletero-erp/internal/masterdata/products"
	"github.com/fletero-erp/fletero-erp/internal/sales/orders"
	"github.com/fletero-erp/fletero-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthHandler      *auth.Handler
	AuthMiddleware   auth.Middleware
	ProductHandler   *products.Handler
	ClientHandler    *clients.Handler
	OrderHandler     *orders.Handler
	InvoiceHandler   *invoicing.Handler
	RemitoHandler    *remitos.Handler
	FleetHandler     *fleet.Handler
	InventoryHandler *inventory.Handler
	JobsHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router with fletero defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.RequireUser)

		r.Route("/products", params.ProductHandler.MountRoutes)
		r.Route("/clients", params.ClientHandler.MountRoutes)
		r.Route("/orders", params.OrderHandler.MountRoutes)
		r.Route("/invoices", params.InvoiceHandler.MountRoutes)
		r.Route("/remitos", params.RemitoHandler.MountRoutes)
		r.Route("/fleet", params.FleetHandler.MountRoutes)
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
