package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fletero-erp/fletero-erp/internal/inventory"
	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
)

// Repository persists orders and exposes a transactional scope where stock
// reservations join the same transaction as order writes.
type Repository interface {
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// TxRepository exposes the mutations available inside a transaction.
type TxRepository interface {
	NextDocNumber(ctx context.Context) (string, error)
	GetForUpdate(ctx context.Context, id int64) (*Order, error)
	InsertOrder(ctx context.Context, o Order) (int64, error)
	InsertLine(ctx context.Context, l OrderLine) (int64, error)
	UpdateLine(ctx context.Context, l OrderLine) error
	DeleteLine(ctx context.Context, orderID, lineID int64) error
	UpdateTotals(ctx context.Context, orderID int64, t Totals) error
	UpdateStatus(ctx context.Context, orderID int64, status OrderStatus, reason string) error

	ReserveStock(ctx context.Context, productID int64, qty float64, ref inventory.Ref) error
	ReleaseStock(ctx context.Context, productID int64, qty float64, ref inventory.Ref) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const orderColumns = `
	o.id, o.doc_number, o.client_id, o.client_name, o.client_address,
	o.client_tax_condition, o.client_cuit, o.status, o.subtotal, o.iva_total,
	o.total, o.observations, COALESCE(o.void_reason, ''), o.created_by,
	o.created_at, o.updated_at
`

const lineColumns = `
	l.id, l.order_id, l.product_id, l.product_name, l.unit, l.quantity,
	l.unit_price, l.discount_percent, l.iva_percent, l.iva_amount, l.subtotal
`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.DocNumber, &o.ClientID, &o.Client.Name, &o.Client.Address,
		&o.Client.TaxCondition, &o.Client.CUIT, &o.Status, &o.Subtotal,
		&o.IvaTotal, &o.Total, &o.Observations, &o.VoidReason, &o.CreatedBy,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func loadLines(ctx context.Context, q inventory.Querier, orderID int64) ([]OrderLine, error) {
	query := fmt.Sprintf(`SELECT %s FROM order_lines l WHERE l.order_id = $1 ORDER BY l.id`, lineColumns)
	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(
			&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.Unit, &l.Quantity,
			&l.UnitPrice, &l.DiscountPercent, &l.IvaPercent, &l.IvaAmount, &l.Subtotal,
		); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders o WHERE o.id = $1`, orderColumns)
	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	o.Lines, err = loadLines(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argPos := 1

	if req.Status != "" {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argPos))
		args = append(args, req.Status)
		argPos++
	}
	if req.ClientID > 0 {
		conditions = append(conditions, fmt.Sprintf("o.client_id = $%d", argPos))
		args = append(args, req.ClientID)
		argPos++
	}
	if !req.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("o.created_at >= $%d", argPos))
		args = append(args, req.From)
		argPos++
	}
	if !req.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("o.created_at < $%d", argPos))
		args = append(args, req.To)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM orders o %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM orders o
		%s
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $%d OFFSET $%d
	`, orderColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.DocNumber, &o.ClientID, &o.Client.Name, &o.Client.Address,
			&o.Client.TaxCondition, &o.Client.CUIT, &o.Status, &o.Subtotal,
			&o.IvaTotal, &o.Total, &o.Observations, &o.VoidReason, &o.CreatedBy,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Listings omit lines; Get returns the full document.
	return items, total, nil
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) NextDocNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, "SELECT nextval('order_doc_seq')").Scan(&seq); err != nil {
		return "", fmt.Errorf("next doc number: %w", err)
	}
	return fmt.Sprintf("PED-%08d", seq), nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders o WHERE o.id = $1 FOR UPDATE`, orderColumns)
	o, err := scanOrder(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	o.Lines, err = loadLines(ctx, t.tx, id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (t *txRepo) InsertOrder(ctx context.Context, o Order) (int64, error) {
	const query = `
		INSERT INTO orders (
			doc_number, client_id, client_name, client_address,
			client_tax_condition, client_cuit, status, subtotal, iva_total,
			total, observations, created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING id
	`
	var id int64
	err := t.tx.QueryRow(ctx, query,
		o.DocNumber, o.ClientID, o.Client.Name, o.Client.Address,
		o.Client.TaxCondition, o.Client.CUIT, o.Status, o.Subtotal, o.IvaTotal,
		o.Total, o.Observations, o.CreatedBy,
	).Scan(&id)
	return id, err
}

func (t *txRepo) InsertLine(ctx context.Context, l OrderLine) (int64, error) {
	const query = `
		INSERT INTO order_lines (
			order_id, product_id, product_name, unit, quantity, unit_price,
			discount_percent, iva_percent, iva_amount, subtotal
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	var id int64
	err := t.tx.QueryRow(ctx, query,
		l.OrderID, l.ProductID, l.ProductName, l.Unit, l.Quantity, l.UnitPrice,
		l.DiscountPercent, l.IvaPercent, l.IvaAmount, l.Subtotal,
	).Scan(&id)
	return id, err
}

func (t *txRepo) UpdateLine(ctx context.Context, l OrderLine) error {
	const query = `
		UPDATE order_lines
		SET quantity = $1, unit_price = $2, discount_percent = $3,
		    iva_amount = $4, subtotal = $5
		WHERE id = $6 AND order_id = $7
	`
	tag, err := t.tx.Exec(ctx, query,
		l.Quantity, l.UnitPrice, l.DiscountPercent, l.IvaAmount, l.Subtotal,
		l.ID, l.OrderID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (t *txRepo) DeleteLine(ctx context.Context, orderID, lineID int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM order_lines WHERE id = $1 AND order_id = $2`, lineID, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (t *txRepo) UpdateTotals(ctx context.Context, orderID int64, totals Totals) error {
	const query = `
		UPDATE orders SET subtotal = $1, iva_total = $2, total = $3, updated_at = NOW()
		WHERE id = $4
	`
	tag, err := t.tx.Exec(ctx, query, totals.Subtotal, totals.IvaTotal, totals.Total, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (t *txRepo) UpdateStatus(ctx context.Context, orderID int64, status OrderStatus, reason string) error {
	const query = `
		UPDATE orders SET status = $1, void_reason = NULLIF($2, ''), updated_at = NOW()
		WHERE id = $3
	`
	tag, err := t.tx.Exec(ctx, query, status, reason, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (t *txRepo) ReserveStock(ctx context.Context, productID int64, qty float64, ref inventory.Ref) error {
	return inventory.Reserve(ctx, t.tx, productID, qty, ref)
}

func (t *txRepo) ReleaseStock(ctx context.Context, productID int64, qty float64, ref inventory.Ref) error {
	return inventory.Release(ctx, t.tx, productID, qty, ref)
}
