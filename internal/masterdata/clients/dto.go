package clients

// CreateClientRequest registers a new client.
type CreateClientRequest struct {
	Name         string       `json:"name" validate:"required,max=200"`
	CUIT         string       `json:"cuit" validate:"required,len=11,numeric"`
	TaxCondition TaxCondition `json:"tax_condition" validate:"required,oneof=RESPONSABLE_INSCRIPTO MONOTRIBUTO EXENTO CONSUMIDOR_FINAL"`
	Address      string       `json:"address" validate:"required,max=300"`
	Phone        *string      `json:"phone,omitempty" validate:"omitempty,max=40"`
	Email        *string      `json:"email,omitempty" validate:"omitempty,email"`
}

// UpdateClientRequest applies a partial update; nil fields are untouched.
type UpdateClientRequest struct {
	Name         *string       `json:"name,omitempty" validate:"omitempty,max=200"`
	TaxCondition *TaxCondition `json:"tax_condition,omitempty" validate:"omitempty,oneof=RESPONSABLE_INSCRIPTO MONOTRIBUTO EXENTO CONSUMIDOR_FINAL"`
	Address      *string       `json:"address,omitempty" validate:"omitempty,max=300"`
	Phone        *string       `json:"phone,omitempty" validate:"omitempty,max=40"`
	Email        *string       `json:"email,omitempty" validate:"omitempty,email"`
	IsActive     *bool         `json:"is_active,omitempty"`
}

// ListClientsRequest filters the client listing.
type ListClientsRequest struct {
	Search     string `json:"search"`
	OnlyActive bool   `json:"only_active"`
	Limit      int    `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int    `json:"offset" validate:"gte=0"`
}
