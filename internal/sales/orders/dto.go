package orders

import "time"

// LineRequest is one requested line on create or add.
type LineRequest struct {
	ProductID       int64    `json:"product_id" validate:"required,gt=0"`
	Quantity        int      `json:"quantity" validate:"required,gte=1"`
	UnitPrice       *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	DiscountPercent float64  `json:"discount_percent" validate:"gte=0,lte=100"`
}

// CreateOrderRequest creates an order with its initial lines.
type CreateOrderRequest struct {
	ClientID     int64         `json:"client_id" validate:"required,gt=0"`
	Observations string        `json:"observations" validate:"max=1000"`
	Lines        []LineRequest `json:"lines" validate:"required,min=1,dive"`
}

// UpdateLineRequest partially updates one line.
type UpdateLineRequest struct {
	Quantity        *int     `json:"quantity,omitempty" validate:"omitempty,gte=1"`
	UnitPrice       *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	DiscountPercent *float64 `json:"discount_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// VoidOrderRequest cancels an order.
type VoidOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ListOrdersRequest filters the order listing.
type ListOrdersRequest struct {
	Status   OrderStatus
	ClientID int64
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}
