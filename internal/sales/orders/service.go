package orders

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fletero-erp/fletero-erp/internal/inventory"
	"github.com/fletero-erp/fletero-erp/internal/masterdata/clients"
	"github.com/fletero-erp/fletero-erp/internal/masterdata/products"
	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
	"github.com/fletero-erp/fletero-erp/internal/shared"
)

// ProductCatalog resolves products at order time.
type ProductCatalog interface {
	Get(ctx context.Context, id int64) (*products.Product, error)
}

// ClientDirectory resolves clients at order time.
type ClientDirectory interface {
	Get(ctx context.Context, id int64) (*clients.Client, error)
}

// StockAdvisor serves advisory snapshots for the pre-write check and drops
// them after a committed change.
type StockAdvisor interface {
	Snapshot(ctx context.Context, productID int64) (inventory.StockSnapshot, error)
	Invalidate(ctx context.Context, productIDs ...int64)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// VoidHook runs after an order was voided and committed.
type VoidHook func(ctx context.Context, orderID int64) error

// Service implements the order lifecycle. Every line mutation rechecks the
// order status and the stock balance under a row lock; the advisory snapshot
// check only exists to fail fast before touching the database.
type Service struct {
	repo      Repository
	catalog   ProductCatalog
	directory ClientDirectory
	stock     StockAdvisor
	audit     AuditPort
	logger    *slog.Logger
	voidHooks []VoidHook
}

// NewService wires the order service.
func NewService(repo Repository, catalog ProductCatalog, directory ClientDirectory, stock StockAdvisor, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalog,
		directory: directory,
		stock:     stock,
		audit:     audit,
		logger:    logger,
	}
}

// RegisterVoidHook adds a callback invoked after a successful void. Used by
// invoicing to cascade the void to the order's invoice.
func (s *Service) RegisterVoidHook(hook VoidHook) {
	s.voidHooks = append(s.voidHooks, hook)
}

// Get returns one order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// buildLine resolves the product and derives the line amounts.
func (s *Service) buildLine(ctx context.Context, req LineRequest) (OrderLine, error) {
	product, err := s.catalog.Get(ctx, req.ProductID)
	if err != nil {
		return OrderLine{}, fmt.Errorf("resolve product %d: %w", req.ProductID, err)
	}
	if !product.IsActive {
		return OrderLine{}, fmt.Errorf("%w: product %s is inactive", httpx.ErrUnprocessable, product.Code)
	}

	unitPrice := product.ListPrice
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	}
	subtotal, ivaAmount := ComputeLine(req.Quantity, unitPrice, req.DiscountPercent, product.IvaPercent)

	return OrderLine{
		ProductID:       product.ID,
		ProductName:     product.Name,
		Unit:            product.Unit,
		Quantity:        req.Quantity,
		UnitPrice:       unitPrice,
		DiscountPercent: req.DiscountPercent,
		IvaPercent:      product.IvaPercent,
		IvaAmount:       ivaAmount,
		Subtotal:        subtotal,
	}, nil
}

// checkAdvisoryStock rejects a quantity the latest snapshot cannot cover.
// The authoritative check happens again under a row lock inside the
// transaction; this one exists so obvious rejects never open one.
func (s *Service) checkAdvisoryStock(ctx context.Context, productID int64, qty float64) error {
	snap, err := s.stock.Snapshot(ctx, productID)
	if err != nil {
		// Snapshot trouble is not a reason to block the order; the row
		// lock still guards the commit.
		s.logger.Warn("stock snapshot unavailable", slog.Int64("product_id", productID), slog.Any("error", err))
		return nil
	}
	if qty > snap.StockActual {
		return fmt.Errorf("%w: product %d has %.2f, requested %.2f",
			inventory.ErrInsufficientStock, productID, snap.StockActual, qty)
	}
	return nil
}

// Create snapshots the client, computes totals and persists the order with
// its lines, reserving stock per line in one transaction.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest, actorID int64) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyOrder
	}

	client, err := s.directory.Get(ctx, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("resolve client %d: %w", req.ClientID, err)
	}
	if !client.IsActive {
		return nil, fmt.Errorf("%w: client %s is inactive", httpx.ErrUnprocessable, client.Name)
	}

	seen := make(map[int64]bool, len(req.Lines))
	lines := make([]OrderLine, 0, len(req.Lines))
	for _, lr := range req.Lines {
		if seen[lr.ProductID] {
			return nil, fmt.Errorf("%w: product %d", ErrDuplicateProduct, lr.ProductID)
		}
		seen[lr.ProductID] = true

		if err := s.checkAdvisoryStock(ctx, lr.ProductID, float64(lr.Quantity)); err != nil {
			return nil, err
		}
		line, err := s.buildLine(ctx, lr)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	totals := ComputeTotals(lines)

	order := Order{
		ClientID: client.ID,
		Client: ClientSnapshot{
			Name:         client.Name,
			Address:      client.Address,
			TaxCondition: string(client.TaxCondition),
			CUIT:         client.CUIT,
		},
		Status:       StatusExportado,
		Subtotal:     totals.Subtotal,
		IvaTotal:     totals.IvaTotal,
		Total:        totals.Total,
		Observations: req.Observations,
		CreatedBy:    actorID,
	}

	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		docNumber, err := tx.NextDocNumber(ctx)
		if err != nil {
			return err
		}
		order.DocNumber = docNumber

		orderID, err = tx.InsertOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		ref := inventory.Ref{Entity: "order", ID: docNumber, ActorID: actorID}
		for i := range lines {
			lines[i].OrderID = orderID
			if _, err := tx.InsertLine(ctx, lines[i]); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
			if err := tx.ReserveStock(ctx, lines[i].ProductID, float64(lines[i].Quantity), ref); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterStockChange(ctx, productIDs(lines)...)
	s.recordAudit(ctx, actorID, "orders:create", orderID, map[string]any{
		"doc_number": order.DocNumber,
		"client_id":  order.ClientID,
		"total":      order.Total,
	})
	return s.repo.Get(ctx, orderID)
}

// AddLine appends a line to an open order. Duplicate product and advisory
// stock rejections happen before any write.
func (s *Service) AddLine(ctx context.Context, orderID int64, req LineRequest, actorID int64) (*Order, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsFinal() {
		return nil, ErrOrderFinal
	}
	if _, exists := order.LineByProduct(req.ProductID); exists {
		return nil, fmt.Errorf("%w: product %d", ErrDuplicateProduct, req.ProductID)
	}
	if err := s.checkAdvisoryStock(ctx, req.ProductID, float64(req.Quantity)); err != nil {
		return nil, err
	}
	line, err := s.buildLine(ctx, req)
	if err != nil {
		return nil, err
	}
	line.OrderID = orderID

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if locked.IsFinal() {
			return ErrOrderFinal
		}
		if _, exists := locked.LineByProduct(req.ProductID); exists {
			return fmt.Errorf("%w: product %d", ErrDuplicateProduct, req.ProductID)
		}

		ref := inventory.Ref{Entity: "order", ID: locked.DocNumber, ActorID: actorID}
		if err := tx.ReserveStock(ctx, line.ProductID, float64(line.Quantity), ref); err != nil {
			return err
		}
		if _, err := tx.InsertLine(ctx, line); err != nil {
			return fmt.Errorf("insert line: %w", err)
		}
		return tx.UpdateTotals(ctx, orderID, ComputeTotals(append(locked.Lines, line)))
	})
	if err != nil {
		return nil, err
	}

	s.afterStockChange(ctx, line.ProductID)
	s.recordAudit(ctx, actorID, "orders:add_line", orderID, map[string]any{
		"product_id": line.ProductID,
		"quantity":   line.Quantity,
	})
	return s.repo.Get(ctx, orderID)
}

// UpdateLine changes quantity, price or discount on an existing line. Stock
// is reserved or released for the quantity delta only.
func (s *Service) UpdateLine(ctx context.Context, orderID, lineID int64, req UpdateLineRequest, actorID int64) (*Order, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsFinal() {
		return nil, ErrOrderFinal
	}
	current, found := order.LineByID(lineID)
	if !found {
		return nil, ErrLineNotFound
	}

	newQty := current.Quantity
	if req.Quantity != nil {
		newQty = *req.Quantity
	}
	if delta := newQty - current.Quantity; delta > 0 {
		if err := s.checkAdvisoryStock(ctx, current.ProductID, float64(delta)); err != nil {
			return nil, err
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if locked.IsFinal() {
			return ErrOrderFinal
		}
		line, found := locked.LineByID(lineID)
		if !found {
			return ErrLineNotFound
		}

		oldQty := line.Quantity
		if req.Quantity != nil {
			line.Quantity = *req.Quantity
		}
		if req.UnitPrice != nil {
			line.UnitPrice = *req.UnitPrice
		}
		if req.DiscountPercent != nil {
			line.DiscountPercent = *req.DiscountPercent
		}
		line.Subtotal, line.IvaAmount = ComputeLine(line.Quantity, line.UnitPrice, line.DiscountPercent, line.IvaPercent)

		ref := inventory.Ref{Entity: "order", ID: locked.DocNumber, ActorID: actorID}
		switch delta := line.Quantity - oldQty; {
		case delta > 0:
			if err := tx.ReserveStock(ctx, line.ProductID, float64(delta), ref); err != nil {
				return err
			}
		case delta < 0:
			if err := tx.ReleaseStock(ctx, line.ProductID, float64(-delta), ref); err != nil {
				return err
			}
		}
		if err := tx.UpdateLine(ctx, line); err != nil {
			return err
		}

		fresh := make([]OrderLine, 0, len(locked.Lines))
		for _, l := range locked.Lines {
			if l.ID == lineID {
				l = line
			}
			fresh = append(fresh, l)
		}
		return tx.UpdateTotals(ctx, orderID, ComputeTotals(fresh))
	})
	if err != nil {
		return nil, err
	}

	s.afterStockChange(ctx, current.ProductID)
	s.recordAudit(ctx, actorID, "orders:update_line", orderID, map[string]any{
		"line_id": lineID,
	})
	return s.repo.Get(ctx, orderID)
}

// RemoveLine deletes a line and releases its reserved stock.
func (s *Service) RemoveLine(ctx context.Context, orderID, lineID int64, actorID int64) (*Order, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsFinal() {
		return nil, ErrOrderFinal
	}
	removed, found := order.LineByID(lineID)
	if !found {
		return nil, ErrLineNotFound
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if locked.IsFinal() {
			return ErrOrderFinal
		}
		line, found := locked.LineByID(lineID)
		if !found {
			return ErrLineNotFound
		}

		ref := inventory.Ref{Entity: "order", ID: locked.DocNumber, ActorID: actorID}
		if err := tx.ReleaseStock(ctx, line.ProductID, float64(line.Quantity), ref); err != nil {
			return err
		}
		if err := tx.DeleteLine(ctx, orderID, lineID); err != nil {
			return err
		}

		fresh := make([]OrderLine, 0, len(locked.Lines))
		for _, l := range locked.Lines {
			if l.ID != lineID {
				fresh = append(fresh, l)
			}
		}
		return tx.UpdateTotals(ctx, orderID, ComputeTotals(fresh))
	})
	if err != nil {
		return nil, err
	}

	s.afterStockChange(ctx, removed.ProductID)
	s.recordAudit(ctx, actorID, "orders:remove_line", orderID, map[string]any{
		"line_id":    lineID,
		"product_id": removed.ProductID,
	})
	return s.repo.Get(ctx, orderID)
}

// Void cancels an order and releases all reserved stock. Allowed from
// EXPORTADO and FACTURADO; a voided invoice cascade runs via hooks.
func (s *Service) Void(ctx context.Context, orderID int64, req VoidOrderRequest, actorID int64) (*Order, error) {
	var touched []int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if locked.Status == StatusAnulado {
			return fmt.Errorf("%w: order already voided", ErrInvalidStatus)
		}

		ref := inventory.Ref{Entity: "order_void", ID: locked.DocNumber, Note: req.Reason, ActorID: actorID}
		for _, line := range locked.Lines {
			if err := tx.ReleaseStock(ctx, line.ProductID, float64(line.Quantity), ref); err != nil {
				return err
			}
			touched = append(touched, line.ProductID)
		}
		return tx.UpdateStatus(ctx, orderID, StatusAnulado, req.Reason)
	})
	if err != nil {
		return nil, err
	}

	s.afterStockChange(ctx, touched...)
	for _, hook := range s.voidHooks {
		if err := hook(ctx, orderID); err != nil {
			s.logger.Error("void hook", slog.Any("error", err), slog.Int64("order_id", orderID))
		}
	}
	s.recordAudit(ctx, actorID, "orders:void", orderID, map[string]any{
		"reason": req.Reason,
	})
	return s.repo.Get(ctx, orderID)
}

// MarkInvoiced is used by invoicing inside its own transaction scope to flip
// the status once an invoice was persisted.
func MarkInvoiced(ctx context.Context, q inventory.Querier, orderID int64) error {
	const query = `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	tag, err := q.Exec(ctx, query, StatusFacturado, orderID, StatusExportado)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %d is not open for invoicing", ErrInvalidStatus, orderID)
	}
	return nil
}

func (s *Service) afterStockChange(ctx context.Context, productIDs ...int64) {
	if s.stock != nil {
		s.stock.Invalidate(ctx, productIDs...)
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "order",
		EntityID: fmt.Sprintf("%d", orderID),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}

func productIDs(lines []OrderLine) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}
