package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx so stock mutations
// can join a caller's transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Reserve locks the product balance, verifies availability and deducts qty.
// Must run inside the caller's transaction; the row lock is what makes the
// snapshot check merely advisory.
func Reserve(ctx context.Context, q Querier, productID int64, qty float64, ref Ref) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	balance, err := balanceForUpdate(ctx, q, productID)
	if err != nil {
		return err
	}
	if balance.Qty < qty {
		return fmt.Errorf("%w: product %d has %.2f, requested %.2f", ErrInsufficientStock, productID, balance.Qty, qty)
	}
	return applyChange(ctx, q, productID, -qty, MovementReserve, ref)
}

// Release returns previously reserved stock to the balance.
func Release(ctx context.Context, q Querier, productID int64, qty float64, ref Ref) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if _, err := balanceForUpdate(ctx, q, productID); err != nil && !errors.Is(err, ErrBalanceNotFound) {
		return err
	}
	return applyChange(ctx, q, productID, qty, MovementRelease, ref)
}

// Adjust applies a signed correction to the balance. Negative adjustments
// may not drive the balance below zero.
func Adjust(ctx context.Context, q Querier, productID int64, qtyChange float64, ref Ref) error {
	if qtyChange == 0 {
		return ErrInvalidQuantity
	}
	balance, err := balanceForUpdate(ctx, q, productID)
	if err != nil && !errors.Is(err, ErrBalanceNotFound) {
		return err
	}
	if balance.Qty+qtyChange < 0 {
		return fmt.Errorf("%w: adjustment would leave product %d at %.2f", ErrInsufficientStock, productID, balance.Qty+qtyChange)
	}
	return applyChange(ctx, q, productID, qtyChange, MovementAdjust, ref)
}

func balanceForUpdate(ctx context.Context, q Querier, productID int64) (Balance, error) {
	const query = `SELECT product_id, qty, updated_at FROM stock_balances WHERE product_id = $1 FOR UPDATE`
	var b Balance
	err := q.QueryRow(ctx, query, productID).Scan(&b.ProductID, &b.Qty, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{ProductID: productID}, ErrBalanceNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

func applyChange(ctx context.Context, q Querier, productID int64, qtyChange float64, kind MovementKind, ref Ref) error {
	const upsert = `
		INSERT INTO stock_balances (product_id, qty, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (product_id) DO UPDATE SET qty = stock_balances.qty + $2, updated_at = NOW()
	`
	if _, err := q.Exec(ctx, upsert, productID, qtyChange); err != nil {
		return fmt.Errorf("inventory: upsert balance: %w", err)
	}
	const insert = `
		INSERT INTO stock_movements (product_id, qty_change, kind, ref_entity, ref_id, note, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	if _, err := q.Exec(ctx, insert, productID, qtyChange, kind, ref.Entity, ref.ID, ref.Note, ref.ActorID); err != nil {
		return fmt.Errorf("inventory: insert movement: %w", err)
	}
	return nil
}

// Repository reads balances and movements outside mutation paths.
type Repository interface {
	GetBalance(ctx context.Context, productID int64) (Balance, error)
	ListBalances(ctx context.Context) ([]Balance, error)
	ListMovements(ctx context.Context, productID int64, limit, offset int) ([]Movement, int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) GetBalance(ctx context.Context, productID int64) (Balance, error) {
	const query = `SELECT product_id, qty, updated_at FROM stock_balances WHERE product_id = $1`
	var b Balance
	err := r.pool.QueryRow(ctx, query, productID).Scan(&b.ProductID, &b.Qty, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{ProductID: productID}, nil
		}
		return Balance{}, err
	}
	return b, nil
}

func (r *repository) ListBalances(ctx context.Context) ([]Balance, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, qty, updated_at FROM stock_balances ORDER BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.ProductID, &b.Qty, &b.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (r *repository) ListMovements(ctx context.Context, productID int64, limit, offset int) ([]Movement, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements WHERE product_id = $1`, productID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `
		SELECT id, product_id, qty_change, kind, ref_entity, ref_id, note, actor_id, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, productID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.QtyChange, &m.Kind, &m.RefEntity, &m.RefID, &m.Note, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}
