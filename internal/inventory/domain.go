package inventory

import (
	"errors"
	"time"
)

// Domain errors.
var (
	ErrBalanceNotFound   = errors.New("inventory: balance not found")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be non-zero")
)

// MovementKind classifies a stock movement.
type MovementKind string

const (
	MovementReserve MovementKind = "RESERVA"
	MovementRelease MovementKind = "LIBERACION"
	MovementAdjust  MovementKind = "AJUSTE"
)

// Balance is the authoritative on-hand quantity for a product.
type Balance struct {
	ProductID int64     `json:"product_id" db:"product_id"`
	Qty       float64   `json:"qty" db:"qty"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Movement records one change against a balance, with a reference to the
// document that caused it.
type Movement struct {
	ID        int64        `json:"id" db:"id"`
	ProductID int64        `json:"product_id" db:"product_id"`
	QtyChange float64      `json:"qty_change" db:"qty_change"`
	Kind      MovementKind `json:"kind" db:"kind"`
	RefEntity string       `json:"ref_entity" db:"ref_entity"`
	RefID     string       `json:"ref_id" db:"ref_id"`
	Note      string       `json:"note" db:"note"`
	ActorID   int64        `json:"actor_id" db:"actor_id"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// StockSnapshot is the advisory quantity served to the UI at product-search
// time. It is stale the moment it is taken; commits never trust it.
type StockSnapshot struct {
	ProductID   int64     `json:"product_id"`
	StockActual float64   `json:"stock_actual"`
	TakenAt     time.Time `json:"taken_at"`
}

// Ref identifies the document a movement belongs to.
type Ref struct {
	Entity  string
	ID      string
	Note    string
	ActorID int64
}
