package products

import "time"

// Product is a sellable item from the catalogue. Stock is owned by the
// inventory module; StockActual is joined in on reads so product search
// returns the advisory quantity in one round trip.
type Product struct {
	ID          int64     `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	Name        string    `json:"name" db:"name"`
	Unit        string    `json:"unit" db:"unit"`
	ListPrice   float64   `json:"list_price" db:"list_price"`
	IvaPercent  float64   `json:"iva_percent" db:"iva_percent"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	StockActual float64   `json:"stock_actual" db:"stock_actual"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
