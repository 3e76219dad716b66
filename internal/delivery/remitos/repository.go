package remitos

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
)

// Repository persists remitos.
type Repository interface {
	Get(ctx context.Context, id int64) (*Remito, error)
	List(ctx context.Context, req ListRemitosRequest) ([]Remito, int, error)
	DeliveredByOrderLine(ctx context.Context, orderID int64) (map[int64]float64, error)
	Create(ctx context.Context, rem Remito) (int64, error)
	MarkDelivered(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const remitoColumns = `
	r.id, r.number, r.order_id, r.order_doc_number, r.client_name,
	r.delivery_address, r.truck_id, r.trip_id, r.status,
	COALESCE(r.observations, ''), r.created_by, r.delivered_at,
	r.created_at, r.updated_at
`

func scanRemito(row pgx.Row) (*Remito, error) {
	var rem Remito
	err := row.Scan(
		&rem.ID, &rem.Number, &rem.OrderID, &rem.OrderDocNumber, &rem.ClientName,
		&rem.DeliveryAddr, &rem.TruckID, &rem.TripID, &rem.Status,
		&rem.Observations, &rem.CreatedBy, &rem.DeliveredAt,
		&rem.CreatedAt, &rem.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &rem, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Remito, error) {
	query := fmt.Sprintf(`SELECT %s FROM remitos r WHERE r.id = $1`, remitoColumns)
	rem, err := scanRemito(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	const lineQuery = `
		SELECT id, remito_id, order_line_id, product_id, product_name, unit, qty_delivered
		FROM remito_lines WHERE remito_id = $1 ORDER BY id
	`
	rows, err := r.pool.Query(ctx, lineQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l RemitoLine
		if err := rows.Scan(&l.ID, &l.RemitoID, &l.OrderLineID, &l.ProductID, &l.ProductName, &l.Unit, &l.QtyDelivered); err != nil {
			return nil, err
		}
		rem.Lines = append(rem.Lines, l)
	}
	return rem, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListRemitosRequest) ([]Remito, int, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argPos := 1

	if req.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", argPos))
		args = append(args, req.Status)
		argPos++
	}
	if req.OrderID > 0 {
		conditions = append(conditions, fmt.Sprintf("r.order_id = $%d", argPos))
		args = append(args, req.OrderID)
		argPos++
	}
	if req.TruckID > 0 {
		conditions = append(conditions, fmt.Sprintf("r.truck_id = $%d", argPos))
		args = append(args, req.TruckID)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM remitos r %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM remitos r
		%s
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $%d OFFSET $%d
	`, remitoColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Remito
	for rows.Next() {
		var rem Remito
		if err := rows.Scan(
			&rem.ID, &rem.Number, &rem.OrderID, &rem.OrderDocNumber, &rem.ClientName,
			&rem.DeliveryAddr, &rem.TruckID, &rem.TripID, &rem.Status,
			&rem.Observations, &rem.CreatedBy, &rem.DeliveredAt,
			&rem.CreatedAt, &rem.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, rem)
	}
	return items, total, rows.Err()
}

// DeliveredByOrderLine sums delivered quantities per order line across all
// remitos of an order, pending ones included.
func (r *repository) DeliveredByOrderLine(ctx context.Context, orderID int64) (map[int64]float64, error) {
	const query = `
		SELECT l.order_line_id, SUM(l.qty_delivered)
		FROM remito_lines l
		JOIN remitos r ON r.id = l.remito_id
		WHERE r.order_id = $1
		GROUP BY l.order_line_id
	`
	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]float64)
	for rows.Next() {
		var lineID int64
		var qty float64
		if err := rows.Scan(&lineID, &qty); err != nil {
			return nil, err
		}
		out[lineID] = qty
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, rem Remito) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var seq int64
	if err := tx.QueryRow(ctx, "SELECT nextval('remito_number_seq')").Scan(&seq); err != nil {
		return 0, fmt.Errorf("next remito number: %w", err)
	}
	rem.Number = fmt.Sprintf("REM-%08d", seq)

	const insert = `
		INSERT INTO remitos (
			number, order_id, order_doc_number, client_name, delivery_address,
			truck_id, trip_id, status, observations, created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id
	`
	var id int64
	err = tx.QueryRow(ctx, insert,
		rem.Number, rem.OrderID, rem.OrderDocNumber, rem.ClientName, rem.DeliveryAddr,
		rem.TruckID, rem.TripID, rem.Status, rem.Observations, rem.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert remito: %w", err)
	}

	const insertLine = `
		INSERT INTO remito_lines (remito_id, order_line_id, product_id, product_name, unit, qty_delivered)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, l := range rem.Lines {
		if _, err := tx.Exec(ctx, insertLine, id, l.OrderLineID, l.ProductID, l.ProductName, l.Unit, l.QtyDelivered); err != nil {
			return 0, fmt.Errorf("insert remito line: %w", err)
		}
	}
	return id, tx.Commit(ctx)
}

func (r *repository) MarkDelivered(ctx context.Context, id int64) error {
	const query = `
		UPDATE remitos SET status = $1, delivered_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	tag, err := r.pool.Exec(ctx, query, StatusEntregado, id, StatusPendiente)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyDelivered
	}
	return nil
}
