package invoicing

import (
	"time"

	"github.com/fletero-erp/fletero-erp/internal/sales/orders"
)

// InvoiceStatus tracks the invoice lifecycle. A new invoice waits for its
// CAE (electronic authorization code) before it counts as issued.
type InvoiceStatus string

const (
	StatusPendienteCAE InvoiceStatus = "PENDIENTE_CAE"
	StatusEmitida      InvoiceStatus = "EMITIDA"
	StatusAnulada      InvoiceStatus = "ANULADA"
)

// Invoice is the fiscal document issued from an order. Totals are copied at
// issue time; the order remains the sales document of record.
type Invoice struct {
	ID             int64         `json:"id" db:"id"`
	Number         string        `json:"number" db:"number"`
	OrderID        int64         `json:"order_id" db:"order_id"`
	OrderDocNumber string        `json:"order_doc_number" db:"order_doc_number"`
	ClientName     string        `json:"client_name" db:"client_name"`
	ClientCUIT     string        `json:"client_cuit" db:"client_cuit"`
	Status         InvoiceStatus `json:"status" db:"status"`

	Subtotal float64 `json:"subtotal" db:"subtotal"`
	IvaTotal float64 `json:"iva_total" db:"iva_total"`
	Total    float64 `json:"total" db:"total"`

	DiscountKind   *orders.DiscountKind `json:"discount_kind,omitempty" db:"discount_kind"`
	DiscountRaw    float64              `json:"discount_raw" db:"discount_raw"`
	DiscountAmount float64              `json:"discount_amount" db:"discount_amount"`
	FinalTotal     float64              `json:"final_total" db:"final_total"`
	ManuallyEdited bool                 `json:"manually_edited" db:"manually_edited"`

	CAE        string     `json:"cae,omitempty" db:"cae"`
	CAEDueDate *time.Time `json:"cae_due_date,omitempty" db:"cae_due_date"`

	IssuedBy  int64     `json:"issued_by" db:"issued_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TotalsOverride is a manual edit of one of the three totals. Values are
// amounts, never deltas, so they cannot go negative.
type TotalsOverride struct {
	Field orders.EditedField `json:"field" validate:"required,oneof=subtotal iva total"`
	Value float64            `json:"value" validate:"gte=0"`
}

// ComposeRequest parameterizes a draft. Discount and Override are mutually
// exclusive in effect: a manual edit clears any discount.
type ComposeRequest struct {
	Discount *orders.Discount `json:"discount,omitempty" validate:"omitempty"`
	Override *TotalsOverride  `json:"override,omitempty" validate:"omitempty"`
}

// Draft is a composed but unpersisted invoice preview.
type Draft struct {
	OrderID        int64                `json:"order_id"`
	Totals         orders.Totals        `json:"totals"`
	DiscountKind   *orders.DiscountKind `json:"discount_kind,omitempty"`
	DiscountRaw    float64              `json:"discount_raw"`
	DiscountAmount float64              `json:"discount_amount"`
	FinalTotal     float64              `json:"final_total"`
	ManuallyEdited bool                 `json:"manually_edited"`
}

// ListInvoicesRequest filters the invoice listing.
type ListInvoicesRequest struct {
	Status  InvoiceStatus
	OrderID int64
	Limit   int
	Offset  int
}
