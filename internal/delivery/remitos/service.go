package remitos

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fletero-erp/fletero-erp/internal/sales/orders"
	"github.com/fletero-erp/fletero-erp/internal/shared"
)

// OrderSource resolves orders when issuing a remito.
type OrderSource interface {
	Get(ctx context.Context, id int64) (*orders.Order, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service issues and delivers remitos. Delivered quantities per order line
// may never exceed the ordered quantity across all remitos of the order.
type Service struct {
	repo   Repository
	source OrderSource
	audit  AuditPort
	logger *slog.Logger
}

// NewService wires the remito service.
func NewService(repo Repository, source OrderSource, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, source: source, audit: audit, logger: logger}
}

// Get returns one remito with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Remito, error) {
	return s.repo.Get(ctx, id)
}

// List returns remitos matching the filter.
func (s *Service) List(ctx context.Context, req ListRemitosRequest) ([]Remito, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// Create issues a remito from an order, capping each line at the remaining
// undelivered quantity.
func (s *Service) Create(ctx context.Context, req CreateRemitoRequest, actorID int64) (*Remito, error) {
	if len(req.Lines) == 0 {
		return nil, ErrNoLines
	}

	order, err := s.source.Get(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status == orders.StatusAnulado {
		return nil, ErrOrderNotOpen
	}

	delivered, err := s.repo.DeliveredByOrderLine(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("delivered quantities: %w", err)
	}

	rem := Remito{
		OrderID:        order.ID,
		OrderDocNumber: order.DocNumber,
		ClientName:     order.Client.Name,
		DeliveryAddr:   order.Client.Address,
		TruckID:        req.TruckID,
		TripID:         req.TripID,
		Status:         StatusPendiente,
		Observations:   req.Observations,
		CreatedBy:      actorID,
	}
	for _, lr := range req.Lines {
		line, found := order.LineByID(lr.OrderLineID)
		if !found {
			return nil, fmt.Errorf("%w: line %d", orders.ErrLineNotFound, lr.OrderLineID)
		}
		remaining := float64(line.Quantity) - delivered[line.ID]
		if lr.QtyDelivered > remaining {
			return nil, fmt.Errorf("%w: line %d has %.2f remaining, requested %.2f",
				ErrQuantityExceedsOrdered, line.ID, remaining, lr.QtyDelivered)
		}
		rem.Lines = append(rem.Lines, RemitoLine{
			OrderLineID:  line.ID,
			ProductID:    line.ProductID,
			ProductName:  line.ProductName,
			Unit:         line.Unit,
			QtyDelivered: lr.QtyDelivered,
		})
	}

	id, err := s.repo.Create(ctx, rem)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "remitos:create",
			Entity:   "remito",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"order_id": order.ID},
		})
	}
	return s.repo.Get(ctx, id)
}

// MarkDelivered transitions PENDIENTE to ENTREGADO.
func (s *Service) MarkDelivered(ctx context.Context, id int64, actorID int64) (*Remito, error) {
	if err := s.repo.MarkDelivered(ctx, id); err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "remitos:deliver",
			Entity:   "remito",
			EntityID: fmt.Sprintf("%d", id),
		})
	}
	return s.repo.Get(ctx, id)
}
