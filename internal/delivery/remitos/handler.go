package remitos

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

// Handler exposes remitos over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes attaches remito routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Post("/{id}/deliver", h.deliver)
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrQuantityExceedsOrdered):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	case errors.Is(err, ErrAlreadyDelivered), errors.Is(err, ErrOrderNotOpen):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrNoLines):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

type listResponse struct {
	Items      []Remito          `json:"items"`
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
	orderID, _ := strconv.ParseInt(q.Get("order_id"), 10, 64)
	truckID, _ := strconv.ParseInt(q.Get("truck_id"), 10, 64)

	items, total, err := h.service.List(r.Context(), ListRemitosRequest{
		Status:  RemitoStatus(q.Get("status")),
		OrderID: orderID,
		TruckID: truckID,
		Limit:   perPage,
		Offset:  (page - 1) * perPage,
	})
	if err != nil {
		h.logger.Error("list remitos", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Remito{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Items:      items,
		Pagination: shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid remito id")
		return
	}
	rem, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rem)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRemitoRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	actorID, _ := shared.UserIDFromContext(r.Context())
	rem, err := h.service.Create(r.Context(), req, actorID)
	if err != nil {
		h.logger.Error("create remito", slog.Any("error", err))
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rem)
}

func (h *Handler) deliver(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid remito id")
		return
	}

	actorID, _ := shared.UserIDFromContext(r.Context())
	rem, err := h.service.MarkDelivered(r.Context(), id, actorID)
	if err != nil {
		h.logger.Error("deliver remito", slog.Any("error", err), slog.Int64("id", id))
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rem)
}
