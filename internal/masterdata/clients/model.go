package clients

import "time"

// TaxCondition is the client's standing before the tax authority.
type TaxCondition string

const (
	TaxConditionRI          TaxCondition = "RESPONSABLE_INSCRIPTO"
	TaxConditionMonotributo TaxCondition = "MONOTRIBUTO"
	TaxConditionExento      TaxCondition = "EXENTO"
	TaxConditionFinal       TaxCondition = "CONSUMIDOR_FINAL"
)

// Client is a customer of the operation. Orders copy the fiscal fields at
// creation time, so edits here never rewrite historical documents.
type Client struct {
	ID           int64        `json:"id" db:"id"`
	Name         string       `json:"name" db:"name"`
	CUIT         string       `json:"cuit" db:"cuit"`
	TaxCondition TaxCondition `json:"tax_condition" db:"tax_condition"`
	Address      string       `json:"address" db:"address"`
	Phone        *string      `json:"phone,omitempty" db:"phone"`
	Email        *string      `json:"email,omitempty" db:"email"`
	IsActive     bool         `json:"is_active" db:"is_active"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}
