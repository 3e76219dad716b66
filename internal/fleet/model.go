package fleet

import (
	"errors"
	"time"
)

var (
	// ErrTruckInactive signals a trip assignment to a retired truck.
	ErrTruckInactive = errors.New("fleet: truck is inactive")
	// ErrInvalidEntry signals a ledger entry with a non-positive amount or
	// unknown category.
	ErrInvalidEntry = errors.New("fleet: invalid ledger entry")
)

// Truck is a vehicle of the fleet.
type Truck struct {
	ID        int64     `json:"id" db:"id"`
	Patent    string    `json:"patent" db:"patent"`
	Model     string    `json:"model" db:"model"`
	CapacityT float64   `json:"capacity_t" db:"capacity_t"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Trip is one haul of a truck between two places on a date.
type Trip struct {
	ID          int64     `json:"id" db:"id"`
	TruckID     int64     `json:"truck_id" db:"truck_id"`
	TruckPatent string    `json:"truck_patent" db:"truck_patent"`
	DriverName  string    `json:"driver_name" db:"driver_name"`
	Origin      string    `json:"origin" db:"origin"`
	Destination string    `json:"destination" db:"destination"`
	TripDate    time.Time `json:"trip_date" db:"trip_date"`
	Notes       string    `json:"notes" db:"notes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// EntryDirection splits the ledger into money in and money out.
type EntryDirection string

const (
	DirectionExpense EntryDirection = "EXPENSE"
	DirectionIncome  EntryDirection = "INCOME"
)

// EntryCategory types a ledger entry.
type EntryCategory string

const (
	CategoryFuel    EntryCategory = "FUEL"
	CategoryToll    EntryCategory = "TOLL"
	CategoryRepair  EntryCategory = "REPAIR"
	CategoryFreight EntryCategory = "FREIGHT"
	CategoryOther   EntryCategory = "OTHER"
)

// direction the category belongs to; FREIGHT is the income side of the
// business, everything else costs money unless marked OTHER income.
var categoryDirections = map[EntryCategory]EntryDirection{
	CategoryFuel:    DirectionExpense,
	CategoryToll:    DirectionExpense,
	CategoryRepair:  DirectionExpense,
	CategoryFreight: DirectionIncome,
}

// LedgerEntry is one expense or income line, optionally tied to a trip.
type LedgerEntry struct {
	ID        int64          `json:"id" db:"id"`
	TruckID   *int64         `json:"truck_id,omitempty" db:"truck_id"`
	TripID    *int64         `json:"trip_id,omitempty" db:"trip_id"`
	Direction EntryDirection `json:"direction" db:"direction"`
	Category  EntryCategory  `json:"category" db:"category"`
	Amount    float64        `json:"amount" db:"amount"`
	Detail    string         `json:"detail" db:"detail"`
	EntryDate time.Time      `json:"entry_date" db:"entry_date"`
	CreatedBy int64          `json:"created_by" db:"created_by"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// MonthlySummary aggregates the ledger for one calendar month.
type MonthlySummary struct {
	Year         int     `json:"year"`
	Month        int     `json:"month"`
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
	Net          float64 `json:"net"`
}

// CreateTruckRequest registers a truck.
type CreateTruckRequest struct {
	Patent    string  `json:"patent" validate:"required,min=6,max=10"`
	Model     string  `json:"model" validate:"required,max=120"`
	CapacityT float64 `json:"capacity_t" validate:"gte=0"`
}

// UpdateTruckRequest partially updates a truck.
type UpdateTruckRequest struct {
	Model     *string  `json:"model,omitempty" validate:"omitempty,max=120"`
	CapacityT *float64 `json:"capacity_t,omitempty" validate:"omitempty,gte=0"`
	IsActive  *bool    `json:"is_active,omitempty"`
}

// CreateTripRequest records a trip.
type CreateTripRequest struct {
	TruckID     int64     `json:"truck_id" validate:"required,gt=0"`
	DriverName  string    `json:"driver_name" validate:"required,max=120"`
	Origin      string    `json:"origin" validate:"required,max=200"`
	Destination string    `json:"destination" validate:"required,max=200"`
	TripDate    time.Time `json:"trip_date" validate:"required"`
	Notes       string    `json:"notes" validate:"max=1000"`
}

// CreateEntryRequest records a ledger entry.
type CreateEntryRequest struct {
	TruckID   *int64         `json:"truck_id,omitempty" validate:"omitempty,gt=0"`
	TripID    *int64         `json:"trip_id,omitempty" validate:"omitempty,gt=0"`
	Category  EntryCategory  `json:"category" validate:"required,oneof=FUEL TOLL REPAIR FREIGHT OTHER"`
	Direction EntryDirection `json:"direction,omitempty" validate:"omitempty,oneof=EXPENSE INCOME"`
	Amount    float64        `json:"amount" validate:"required,gt=0"`
	Detail    string         `json:"detail" validate:"max=500"`
	EntryDate time.Time      `json:"entry_date"`
}

// ListEntriesRequest filters the ledger listing.
type ListEntriesRequest struct {
	TruckID   int64
	TripID    int64
	Direction EntryDirection
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
