package fleet

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
	"github.com/fletero-erp/fletero-erp/internal/shared"
)

// Handler exposes the fleet over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes attaches fleet routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trucks", h.listTrucks)
	r.Post("/trucks", h.createTruck)
	r.Get("/trucks/{id}", h.showTruck)
	r.Patch("/trucks/{id}", h.updateTruck)

	r.Get("/trips", h.listTrips)
	r.Post("/trips", h.createTrip)
	r.Get("/trips/{id}", h.showTrip)

	r.Get("/ledger", h.listEntries)
	r.Post("/ledger", h.recordEntry)
	r.Get("/ledger/summary", h.monthlySummary)
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTruckInactive):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInvalidEntry):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func (h *Handler) listTrucks(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListTrucks(r.Context(), r.URL.Query().Get("only_active") == "true")
	if err != nil {
		h.logger.Error("list trucks", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Truck{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) showTruck(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid truck id")
		return
	}
	truck, err := h.service.GetTruck(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, truck)
}

func (h *Handler) createTruck(w http.ResponseWriter, r *http.Request) {
	var req CreateTruckRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	truck, err := h.service.CreateTruck(r.Context(), req)
	if err != nil {
		h.logger.Error("create truck", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, truck)
}

func (h *Handler) updateTruck(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid truck id")
		return
	}
	var req UpdateTruckRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	truck, err := h.service.UpdateTruck(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, truck)
}

func (h *Handler) listTrips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	truckID, _ := strconv.ParseInt(q.Get("truck_id"), 10, 64)

	items, total, err := h.service.ListTrips(r.Context(), truckID, perPage, (page-1)*perPage)
	if err != nil {
		h.logger.Error("list trips", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Trip{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":      items,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) showTrip(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid trip id")
		return
	}
	trip, err := h.service.GetTrip(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, trip)
}

func (h *Handler) createTrip(w http.ResponseWriter, r *http.Request) {
	var req CreateTripRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	trip, err := h.service.CreateTrip(r.Context(), req)
	if err != nil {
		h.logger.Error("create trip", slog.Any("error", err))
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, trip)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	truckID, _ := strconv.ParseInt(q.Get("truck_id"), 10, 64)
	tripID, _ := strconv.ParseInt(q.Get("trip_id"), 10, 64)

	req := ListEntriesRequest{
		TruckID:   truckID,
		TripID:    tripID,
		Direction: EntryDirection(q.Get("direction")),
		Limit:     perPage,
		Offset:    (page - 1) * perPage,
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

	items, total, err := h.service.ListEntries(r.Context(), req)
	if err != nil {
		h.logger.Error("list ledger", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []LedgerEntry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":      items,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) recordEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	actorID, _ := shared.UserIDFromContext(r.Context())
	entry, err := h.service.RecordEntry(r.Context(), req, actorID)
	if err != nil {
		h.logger.Error("record ledger entry", slog.Any("error", err))
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) monthlySummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, _ := strconv.Atoi(q.Get("year"))
	month, _ := strconv.Atoi(q.Get("month"))

	summary, err := h.service.MonthlySummary(r.Context(), year, month)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
