package orders

import "time"

// OrderStatus tracks the order lifecycle.
type OrderStatus string

const (
	StatusExportado OrderStatus = "EXPORTADO"
	StatusFacturado OrderStatus = "FACTURADO"
	StatusAnulado   OrderStatus = "ANULADO"
)

// ClientSnapshot freezes the client fields at order creation time so later
// edits to the client master never rewrite issued documents.
type ClientSnapshot struct {
	Name         string `json:"name" db:"client_name"`
	Address      string `json:"address" db:"client_address"`
	TaxCondition string `json:"tax_condition" db:"client_tax_condition"`
	CUIT         string `json:"cuit" db:"client_cuit"`
}

// OrderLine is one product position on an order. Subtotal and IvaAmount are
// derived and recomputed server-side on every mutation.
type OrderLine struct {
	ID              int64   `json:"id" db:"id"`
	OrderID         int64   `json:"order_id" db:"order_id"`
	ProductID       int64   `json:"product_id" db:"product_id"`
	ProductName     string  `json:"product_name" db:"product_name"`
	Unit            string  `json:"unit" db:"unit"`
	Quantity        int     `json:"quantity" db:"quantity"`
	UnitPrice       float64 `json:"unit_price" db:"unit_price"`
	DiscountPercent float64 `json:"discount_percent" db:"discount_percent"`
	IvaPercent      float64 `json:"iva_percent" db:"iva_percent"`
	IvaAmount       float64 `json:"iva_amount" db:"iva_amount"`
	Subtotal        float64 `json:"subtotal" db:"subtotal"`
}

// Order is a sales order together with its lines and authoritative totals.
type Order struct {
	ID           int64          `json:"id" db:"id"`
	DocNumber    string         `json:"doc_number" db:"doc_number"`
	ClientID     int64          `json:"client_id" db:"client_id"`
	Client       ClientSnapshot `json:"client"`
	Status       OrderStatus    `json:"status" db:"status"`
	Lines        []OrderLine    `json:"lines"`
	Subtotal     float64        `json:"subtotal" db:"subtotal"`
	IvaTotal     float64        `json:"iva_total" db:"iva_total"`
	Total        float64        `json:"total" db:"total"`
	Observations string         `json:"observations" db:"observations"`
	VoidReason   string         `json:"void_reason,omitempty" db:"void_reason"`
	CreatedBy    int64          `json:"created_by" db:"created_by"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// IsFinal reports whether the order's lines may still change.
func (o *Order) IsFinal() bool {
	return o.Status == StatusFacturado || o.Status == StatusAnulado
}

// LineByProduct returns the line holding the given product, if any.
func (o *Order) LineByProduct(productID int64) (OrderLine, bool) {
	for _, l := range o.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return OrderLine{}, false
}

// LineByID returns the line with the given line ID, if any.
func (o *Order) LineByID(lineID int64) (OrderLine, bool) {
	for _, l := range o.Lines {
		if l.ID == lineID {
			return l, true
		}
	}
	return OrderLine{}, false
}
