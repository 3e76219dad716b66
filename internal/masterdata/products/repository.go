package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
)

const productColumns = `
	p.id, p.code, p.name, p.unit, p.list_price, p.iva_percent, p.is_active,
	COALESCE(b.qty, 0) AS stock_actual, p.created_at, p.updated_at
`

// Repository persists products.
type Repository interface {
	Get(ctx context.Context, id int64) (*Product, error)
	GetByCode(ctx context.Context, code string) (*Product, error)
	List(ctx context.Context, req ListProductsRequest) ([]Product, int, error)
	Create(ctx context.Context, p Product) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*Product, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM products p
		LEFT JOIN stock_balances b ON b.product_id = p.id
		WHERE p.id = $1
	`, productColumns)
	return r.scanOne(ctx, query, id)
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Product, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM products p
		LEFT JOIN stock_balances b ON b.product_id = p.id
		WHERE p.code = $1
	`, productColumns)
	return r.scanOne(ctx, query, code)
}

func (r *repository) scanOne(ctx context.Context, query string, arg interface{}) (*Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.Code, &p.Name, &p.Unit, &p.ListPrice, &p.IvaPercent,
		&p.IsActive, &p.StockActual, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argPos := 1

	if req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(p.name ILIKE $%d OR p.code ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+req.Search+"%")
		argPos++
	}
	if req.OnlyActive {
		conditions = append(conditions, "p.is_active")
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products p %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM products p
		LEFT JOIN stock_balances b ON b.product_id = p.id
		%s
		ORDER BY p.name, p.id
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.Code, &p.Name, &p.Unit, &p.ListPrice, &p.IvaPercent,
			&p.IsActive, &p.StockActual, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, p Product) (int64, error) {
	const query = `
		INSERT INTO products (code, name, unit, list_price, iva_percent, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query, p.Code, p.Name, p.Unit, p.ListPrice, p.IvaPercent).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE products SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"name", "unit", "list_price", "iva_percent", "is_active"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
