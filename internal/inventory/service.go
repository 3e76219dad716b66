package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fletero-erp/fletero-erp/internal/platform/db"
	"github.com/fletero-erp/fletero-erp/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates inventory reads and manual adjustments.
type Service struct {
	pool      *pgxpool.Pool
	repo      Repository
	snapshots *SnapshotCache
	audit     AuditPort
	idem      *shared.IdempotencyStore
}

// NewService builds the Service.
func NewService(pool *pgxpool.Pool, repo Repository, snapshots *SnapshotCache, audit AuditPort, idem *shared.IdempotencyStore) *Service {
	return &Service{pool: pool, repo: repo, snapshots: snapshots, audit: audit, idem: idem}
}

// Snapshot returns the advisory stock quantity for a product.
func (s *Service) Snapshot(ctx context.Context, productID int64) (StockSnapshot, error) {
	if productID <= 0 {
		return StockSnapshot{}, fmt.Errorf("inventory: product required")
	}
	return s.snapshots.Snapshot(ctx, productID)
}

// AdjustmentInput describes a manual stock correction.
type AdjustmentInput struct {
	ProductID      int64   `json:"product_id" validate:"required,gt=0"`
	QtyChange      float64 `json:"qty_change" validate:"required"`
	Note           string  `json:"note" validate:"max=300"`
	ActorID        int64   `json:"-"`
	IdempotencyKey string  `json:"-"`
}

// PostAdjustment applies a signed manual correction to a balance. Requests
// carrying an idempotency key are applied at most once.
func (s *Service) PostAdjustment(ctx context.Context, input AdjustmentInput) (Balance, error) {
	if input.ProductID <= 0 {
		return Balance{}, fmt.Errorf("inventory: product required")
	}
	if input.QtyChange == 0 {
		return Balance{}, ErrInvalidQuantity
	}
	if input.IdempotencyKey != "" {
		if err := s.idem.CheckAndInsert(ctx, input.IdempotencyKey, "inventory"); err != nil {
			return Balance{}, err
		}
	}

	ref := Ref{
		Entity:  "adjustment",
		ID:      uuid.NewString(),
		Note:    input.Note,
		ActorID: input.ActorID,
	}
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return Adjust(ctx, tx, input.ProductID, input.QtyChange, ref)
	})
	if err != nil {
		if input.IdempotencyKey != "" {
			_ = s.idem.Delete(ctx, input.IdempotencyKey)
		}
		return Balance{}, err
	}

	s.snapshots.Invalidate(ctx, input.ProductID)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "inventory:adjust",
			Entity:   "stock_balance",
			EntityID: fmt.Sprintf("%d", input.ProductID),
			Meta: map[string]any{
				"qty_change": input.QtyChange,
				"note":       input.Note,
			},
		})
	}
	return s.repo.GetBalance(ctx, input.ProductID)
}

// Movements lists the movement ledger for a product.
func (s *Service) Movements(ctx context.Context, productID int64, limit, offset int) ([]Movement, int, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListMovements(ctx, productID, limit, offset)
}
