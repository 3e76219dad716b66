package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
	"github.com/fletero-erp/fletero-erp/internal/sales/orders"
)

// Repository persists invoices.
type Repository interface {
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetByOrder(ctx context.Context, orderID int64) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	SetCAE(ctx context.Context, id int64, cae string, dueDate time.Time) error
	VoidByOrder(ctx context.Context, orderID int64) error
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// TxRepository exposes the transactional invoice mutations.
type TxRepository interface {
	NextNumber(ctx context.Context) (string, error)
	Insert(ctx context.Context, inv Invoice) (int64, error)
	MarkOrderInvoiced(ctx context.Context, orderID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const invoiceColumns = `
	i.id, i.number, i.order_id, i.order_doc_number, i.client_name,
	i.client_cuit, i.status, i.subtotal, i.iva_total, i.total,
	i.discount_kind, i.discount_raw, i.discount_amount, i.final_total,
	i.manually_edited, COALESCE(i.cae, ''), i.cae_due_date, i.issued_by,
	i.created_at, i.updated_at
`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.OrderID, &inv.OrderDocNumber, &inv.ClientName,
		&inv.ClientCUIT, &inv.Status, &inv.Subtotal, &inv.IvaTotal, &inv.Total,
		&inv.DiscountKind, &inv.DiscountRaw, &inv.DiscountAmount, &inv.FinalTotal,
		&inv.ManuallyEdited, &inv.CAE, &inv.CAEDueDate, &inv.IssuedBy,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices i WHERE i.id = $1`, invoiceColumns)
	return scanInvoice(r.pool.QueryRow(ctx, query, id))
}

func (r *repository) GetByOrder(ctx context.Context, orderID int64) (*Invoice, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM invoices i
		WHERE i.order_id = $1
		ORDER BY i.id DESC
		LIMIT 1
	`, invoiceColumns)
	return scanInvoice(r.pool.QueryRow(ctx, query, orderID))
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argPos := 1

	if req.Status != "" {
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", argPos))
		args = append(args, req.Status)
		argPos++
	}
	if req.OrderID > 0 {
		conditions = append(conditions, fmt.Sprintf("i.order_id = $%d", argPos))
		args = append(args, req.OrderID)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM invoices i %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM invoices i
		%s
		ORDER BY i.created_at DESC, i.id DESC
		LIMIT $%d OFFSET $%d
	`, invoiceColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(
			&inv.ID, &inv.Number, &inv.OrderID, &inv.OrderDocNumber, &inv.ClientName,
			&inv.ClientCUIT, &inv.Status, &inv.Subtotal, &inv.IvaTotal, &inv.Total,
			&inv.DiscountKind, &inv.DiscountRaw, &inv.DiscountAmount, &inv.FinalTotal,
			&inv.ManuallyEdited, &inv.CAE, &inv.CAEDueDate, &inv.IssuedBy,
			&inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, rows.Err()
}

func (r *repository) SetCAE(ctx context.Context, id int64, cae string, dueDate time.Time) error {
	const query = `
		UPDATE invoices SET cae = $1, cae_due_date = $2, status = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
	`
	tag, err := r.pool.Exec(ctx, query, cae, dueDate, StatusEmitida, id, StatusPendienteCAE)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d not awaiting CAE", httpx.ErrConflict, id)
	}
	return nil
}

func (r *repository) VoidByOrder(ctx context.Context, orderID int64) error {
	const query = `
		UPDATE invoices SET status = $1, updated_at = NOW()
		WHERE order_id = $2 AND status <> $1
	`
	_, err := r.pool.Exec(ctx, query, StatusAnulada, orderID)
	return err
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

func (t *txRepo) NextNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, "SELECT nextval('invoice_number_seq')").Scan(&seq); err != nil {
		return "", fmt.Errorf("next invoice number: %w", err)
	}
	return fmt.Sprintf("FC-0001-%08d", seq), nil
}

func (t *txRepo) Insert(ctx context.Context, inv Invoice) (int64, error) {
	const query = `
		INSERT INTO invoices (
			number, order_id, order_doc_number, client_name, client_cuit,
			status, subtotal, iva_total, total, discount_kind, discount_raw,
			discount_amount, final_total, manually_edited, issued_by,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		RETURNING id
	`
	var id int64
	err := t.tx.QueryRow(ctx, query,
		inv.Number, inv.OrderID, inv.OrderDocNumber, inv.ClientName, inv.ClientCUIT,
		inv.Status, inv.Subtotal, inv.IvaTotal, inv.Total, inv.DiscountKind, inv.DiscountRaw,
		inv.DiscountAmount, inv.FinalTotal, inv.ManuallyEdited, inv.IssuedBy,
	).Scan(&id)
	return id, err
}

func (t *txRepo) MarkOrderInvoiced(ctx context.Context, orderID int64) error {
	return orders.MarkInvoiced(ctx, t.tx, orderID)
}
