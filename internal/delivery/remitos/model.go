package remitos

import (
	"errors"
	"time"
)

var (
	// ErrQuantityExceedsOrdered signals a delivered quantity above what the
	// order line carries.
	ErrQuantityExceedsOrdered = errors.New("remitos: delivered quantity exceeds ordered")
	// ErrAlreadyDelivered signals a mutation against a delivered remito.
	ErrAlreadyDelivered = errors.New("remitos: remito already delivered")
	// ErrOrderNotOpen signals a remito against a voided order.
	ErrOrderNotOpen = errors.New("remitos: order is voided")
	// ErrNoLines signals a remito created without lines.
	ErrNoLines = errors.New("remitos: at least one line required")
)

// RemitoStatus tracks the delivery lifecycle.
type RemitoStatus string

const (
	StatusPendiente RemitoStatus = "PENDIENTE"
	StatusEntregado RemitoStatus = "ENTREGADO"
)

// RemitoLine records delivered quantities against an order line.
type RemitoLine struct {
	ID           int64   `json:"id" db:"id"`
	RemitoID     int64   `json:"remito_id" db:"remito_id"`
	OrderLineID  int64   `json:"order_line_id" db:"order_line_id"`
	ProductID    int64   `json:"product_id" db:"product_id"`
	ProductName  string  `json:"product_name" db:"product_name"`
	Unit         string  `json:"unit" db:"unit"`
	QtyDelivered float64 `json:"qty_delivered" db:"qty_delivered"`
}

// Remito is a delivery note issued from an order and assigned to a truck,
// optionally within a trip.
type Remito struct {
	ID             int64        `json:"id" db:"id"`
	Number         string       `json:"number" db:"number"`
	OrderID        int64        `json:"order_id" db:"order_id"`
	OrderDocNumber string       `json:"order_doc_number" db:"order_doc_number"`
	ClientName     string       `json:"client_name" db:"client_name"`
	DeliveryAddr   string       `json:"delivery_address" db:"delivery_address"`
	TruckID        *int64       `json:"truck_id,omitempty" db:"truck_id"`
	TripID         *int64       `json:"trip_id,omitempty" db:"trip_id"`
	Status         RemitoStatus `json:"status" db:"status"`
	Lines          []RemitoLine `json:"lines"`
	Observations   string       `json:"observations" db:"observations"`
	CreatedBy      int64        `json:"created_by" db:"created_by"`
	DeliveredAt    *time.Time   `json:"delivered_at,omitempty" db:"delivered_at"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

// RemitoLineRequest is one requested delivery line.
type RemitoLineRequest struct {
	OrderLineID  int64   `json:"order_line_id" validate:"required,gt=0"`
	QtyDelivered float64 `json:"qty_delivered" validate:"required,gt=0"`
}

// CreateRemitoRequest issues a remito from an order.
type CreateRemitoRequest struct {
	OrderID      int64               `json:"order_id" validate:"required,gt=0"`
	TruckID      *int64              `json:"truck_id,omitempty" validate:"omitempty,gt=0"`
	TripID       *int64              `json:"trip_id,omitempty" validate:"omitempty,gt=0"`
	Observations string              `json:"observations" validate:"max=1000"`
	Lines        []RemitoLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ListRemitosRequest filters the remito listing.
type ListRemitosRequest struct {
	Status  RemitoStatus
	OrderID int64
	TruckID int64
	Limit   int
	Offset  int
}
