package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
	"github.com/fletero-erp/fletero-erp/internal/shared"
)

// Handler exposes stock snapshots, movements and manual adjustments.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes attaches inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock/{productID}", h.snapshot)
	r.Get("/stock/{productID}/movements", h.movements)
	r.Post("/adjustments", h.adjust)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	snap, err := h.service.Snapshot(r.Context(), productID)
	if err != nil {
		h.logger.Error("stock snapshot", slog.Any("error", err), slog.Int64("product_id", productID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

type movementsResponse struct {
	Items      []Movement        `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}

	items, total, err := h.service.Movements(r.Context(), productID, perPage, (page-1)*perPage)
	if err != nil {
		h.logger.Error("list movements", slog.Any("error", err), slog.Int64("product_id", productID))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Movement{}
	}
	httpx.JSON(w, http.StatusOK, movementsResponse{
		Items:      items,
		Pagination: shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if actorID, ok := shared.UserIDFromContext(r.Context()); ok {
		req.ActorID = actorID
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")

	balance, err := h.service.PostAdjustment(r.Context(), req)
	if err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
			return
		}
		if errors.Is(err, ErrInvalidQuantity) || errors.Is(err, ErrInsufficientStock) {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
			return
		}
		h.logger.Error("post adjustment", slog.Any("error", err), slog.Int64("product_id", req.ProductID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}
