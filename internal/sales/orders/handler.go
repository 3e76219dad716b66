package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fletero-erp/fletero-erp/internal/inventory"
	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
	"github.com/fletero-erp/fletero-erp/internal/shared"
)

// Handler exposes order operations over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes attaches order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Post("/{id}/void", h.void)
	r.Post("/{id}/lines", h.addLine)
	r.Patch("/{id}/lines/{lineID}", h.updateLine)
	r.Delete("/{id}/lines/{lineID}", h.removeLine)
}

// respondDomainError maps order lifecycle errors onto problem responses.
func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDuplicateProduct),
		errors.Is(err, ErrOrderFinal),
		errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, inventory.ErrInsufficientStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrLineNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrEmptyOrder),
		errors.Is(err, inventory.ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

type listResponse struct {
	Items      []Order           `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	clientID, _ := strconv.ParseInt(q.Get("client_id"), 10, 64)

	req := ListOrdersRequest{
		Status:   OrderStatus(q.Get("status")),
		ClientID: clientID,
		Limit:    perPage,
		Offset:   (page - 1) * perPage,
	}
	if raw := q.Get("from"); raw != "" {
		if ts, err := time.Parse("2006-01-02", raw); err == nil {
			req.From = ts
		}
	}
	if raw := q.Get("to"); raw != "" {
		if ts, err := time.Parse("2006-01-02", raw); err == nil {
			req.To = ts.AddDate(0, 0, 1)
		}
	}

	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Order{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Items:      items,
		Pagination: shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	order, err := h.service.Create(r.Context(), req, actorID(r))
	if err != nil {
		h.logger.Error("create order", slog.Any("error", err))
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	var req VoidOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	order, err := h.service.Void(r.Context(), id, req, actorID(r))
	if err != nil {
		h.logger.Error("void order", slog.Any("error", err), slog.Int64("id", id))
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) addLine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	var req LineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	order, err := h.service.AddLine(r.Context(), id, req, actorID(r))
	if err != nil {
		h.logger.Error("add line", slog.Any("error", err), slog.Int64("order_id", id))
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) updateLine(w http.ResponseWriter, r *http.Request) {
	orderID, err1 := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	lineID, err2 := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
	if err1 != nil || err2 != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order or line id")
		return
	}
	var req UpdateLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	order, err := h.service.UpdateLine(r.Context(), orderID, lineID, req, actorID(r))
	if err != nil {
		h.logger.Error("update line", slog.Any("error", err), slog.Int64("order_id", orderID))
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	orderID, err1 := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	lineID, err2 := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
	if err1 != nil || err2 != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order or line id")
		return
	}

	order, err := h.service.RemoveLine(r.Context(), orderID, lineID, actorID(r))
	if err != nil {
		h.logger.Error("remove line", slog.Any("error", err), slog.Int64("order_id", orderID))
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func actorID(r *http.Request) int64 {
	id, _ := shared.UserIDFromContext(r.Context())
	return id
}
