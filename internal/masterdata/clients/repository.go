package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
)

const clientColumns = `
	id, name, cuit, tax_condition, address, phone, email, is_active, created_at, updated_at
`

// Repository persists clients.
type Repository interface {
	Get(ctx context.Context, id int64) (*Client, error)
	GetByCUIT(ctx context.Context, cuit string) (*Client, error)
	List(ctx context.Context, req ListClientsRequest) ([]Client, int, error)
	Create(ctx context.Context, c Client) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*Client, error) {
	query := fmt.Sprintf("SELECT %s FROM clients WHERE id = $1", clientColumns)
	return r.scanOne(ctx, query, id)
}

func (r *repository) GetByCUIT(ctx context.Context, cuit string) (*Client, error) {
	query := fmt.Sprintf("SELECT %s FROM clients WHERE cuit = $1", clientColumns)
	return r.scanOne(ctx, query, cuit)
}

func (r *repository) scanOne(ctx context.Context, query string, arg interface{}) (*Client, error) {
	var c Client
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.Name, &c.CUIT, &c.TaxCondition, &c.Address,
		&c.Phone, &c.Email, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, req ListClientsRequest) ([]Client, int, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argPos := 1

	if req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR cuit LIKE $%d)", argPos, argPos))
		args = append(args, "%"+req.Search+"%")
		argPos++
	}
	if req.OnlyActive {
		conditions = append(conditions, "is_active")
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM clients %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM clients
		%s
		ORDER BY name, id
		LIMIT $%d OFFSET $%d
	`, clientColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(
			&c.ID, &c.Name, &c.CUIT, &c.TaxCondition, &c.Address,
			&c.Phone, &c.Email, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Client) (int64, error) {
	const query = `
		INSERT INTO clients (name, cuit, tax_condition, address, phone, email, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW())
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query, c.Name, c.CUIT, c.TaxCondition, c.Address, c.Phone, c.Email).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE clients SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"name", "tax_condition", "address", "phone", "email", "is_active"} {
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
