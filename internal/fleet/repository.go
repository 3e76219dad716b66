package fleet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
)

// Repository persists trucks, trips and the ledger.
type Repository interface {
	GetTruck(ctx context.Context, id int64) (*Truck, error)
	GetTruckByPatent(ctx context.Context, patent string) (*Truck, error)
	ListTrucks(ctx context.Context, onlyActive bool) ([]Truck, error)
	CreateTruck(ctx context.Context, t Truck) (int64, error)
	UpdateTruck(ctx context.Context, id int64, updates map[string]interface{}) error

	GetTrip(ctx context.Context, id int64) (*Trip, error)
	ListTrips(ctx context.Context, truckID int64, limit, offset int) ([]Trip, int, error)
	CreateTrip(ctx context.Context, t Trip) (int64, error)

	CreateEntry(ctx context.Context, e LedgerEntry) (int64, error)
	ListEntries(ctx context.Context, req ListEntriesRequest) ([]LedgerEntry, int, error)
	MonthlySummary(ctx context.Context, year, month int) (MonthlySummary, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const truckColumns = `id, patent, model, capacity_t, is_active, created_at, updated_at`

func (r *repository) scanTruck(row pgx.Row) (*Truck, error) {
	var t Truck
	err := row.Scan(&t.ID, &t.Patent, &t.Model, &t.CapacityT, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) GetTruck(ctx context.Context, id int64) (*Truck, error) {
	query := fmt.Sprintf(`SELECT %s FROM trucks WHERE id = $1`, truckColumns)
	return r.scanTruck(r.pool.QueryRow(ctx, query, id))
}

func (r *repository) GetTruckByPatent(ctx context.Context, patent string) (*Truck, error) {
	query := fmt.Sprintf(`SELECT %s FROM trucks WHERE patent = $1`, truckColumns)
	return r.scanTruck(r.pool.QueryRow(ctx, query, patent))
}

func (r *repository) ListTrucks(ctx context.Context, onlyActive bool) ([]Truck, error) {
	query := fmt.Sprintf(`SELECT %s FROM trucks`, truckColumns)
	if onlyActive {
		query += " WHERE is_active"
	}
	query += " ORDER BY patent"

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Truck
	for rows.Next() {
		var t Truck
		if err := rows.Scan(&t.ID, &t.Patent, &t.Model, &t.CapacityT, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *repository) CreateTruck(ctx context.Context, t Truck) (int64, error) {
	const query = `
		INSERT INTO trucks (patent, model, capacity_t, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, NOW(), NOW())
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query, t.Patent, t.Model, t.CapacityT).Scan(&id)
	return id, err
}

func (r *repository) UpdateTruck(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE trucks SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"model", "capacity_t", "is_active"} {
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

const tripColumns = `
	t.id, t.truck_id, k.patent, t.driver_name, t.origin, t.destination,
	t.trip_date, COALESCE(t.notes, ''), t.created_at
`

func (r *repository) GetTrip(ctx context.Context, id int64) (*Trip, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM trips t
		JOIN trucks k ON k.id = t.truck_id
		WHERE t.id = $1
	`, tripColumns)
	var t Trip
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.TruckID, &t.TruckPatent, &t.DriverName, &t.Origin,
		&t.Destination, &t.TripDate, &t.Notes, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) ListTrips(ctx context.Context, truckID int64, limit, offset int) ([]Trip, int, error) {
	where := "WHERE TRUE"
	var args []interface{}
	argPos := 1
	if truckID > 0 {
		where = fmt.Sprintf("WHERE t.truck_id = $%d", argPos)
		args = append(args, truckID)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM trips t %s", where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM trips t
		JOIN trucks k ON k.id = t.truck_id
		%s
		ORDER BY t.trip_date DESC, t.id DESC
		LIMIT $%d OFFSET $%d
	`, tripColumns, where, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Trip
	for rows.Next() {
		var t Trip
		if err := rows.Scan(
			&t.ID, &t.TruckID, &t.TruckPatent, &t.DriverName, &t.Origin,
			&t.Destination, &t.TripDate, &t.Notes, &t.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *repository) CreateTrip(ctx context.Context, t Trip) (int64, error) {
	const query = `
		INSERT INTO trips (truck_id, driver_name, origin, destination, trip_date, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query, t.TruckID, t.DriverName, t.Origin, t.Destination, t.TripDate, t.Notes).Scan(&id)
	return id, err
}

func (r *repository) CreateEntry(ctx context.Context, e LedgerEntry) (int64, error) {
	const query = `
		INSERT INTO fleet_ledger (truck_id, trip_id, direction, category, amount, detail, entry_date, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query,
		e.TruckID, e.TripID, e.Direction, e.Category, e.Amount, e.Detail, e.EntryDate, e.CreatedBy,
	).Scan(&id)
	return id, err
}

func (r *repository) ListEntries(ctx context.Context, req ListEntriesRequest) ([]LedgerEntry, int, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argPos := 1

	if req.TruckID > 0 {
		conditions = append(conditions, fmt.Sprintf("truck_id = $%d", argPos))
		args = append(args, req.TruckID)
		argPos++
	}
	if req.TripID > 0 {
		conditions = append(conditions, fmt.Sprintf("trip_id = $%d", argPos))
		args = append(args, req.TripID)
		argPos++
	}
	if req.Direction != "" {
		conditions = append(conditions, fmt.Sprintf("direction = $%d", argPos))
		args = append(args, req.Direction)
		argPos++
	}
	if !req.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("entry_date >= $%d", argPos))
		args = append(args, req.From)
		argPos++
	}
	if !req.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("entry_date < $%d", argPos))
		args = append(args, req.To)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM fleet_ledger %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, truck_id, trip_id, direction, category, amount, COALESCE(detail, ''), entry_date, created_by, created_at
		FROM fleet_ledger
		%s
		ORDER BY entry_date DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.TruckID, &e.TripID, &e.Direction, &e.Category,
			&e.Amount, &e.Detail, &e.EntryDate, &e.CreatedBy, &e.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *repository) MonthlySummary(ctx context.Context, year, month int) (MonthlySummary, error) {
	const query = `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE direction = 'INCOME'), 0),
			COALESCE(SUM(amount) FILTER (WHERE direction = 'EXPENSE'), 0)
		FROM fleet_ledger
		WHERE date_trunc('month', entry_date) = make_date($1, $2, 1)
	`
	s := MonthlySummary{Year: year, Month: month}
	if err := r.pool.QueryRow(ctx, query, year, month).Scan(&s.TotalIncome, &s.TotalExpense); err != nil {
		return MonthlySummary{}, err
	}
	s.Net = s.TotalIncome - s.TotalExpense
	return s, nil
}
