package products

// CreateProductRequest carries the fields needed to register a product.
type CreateProductRequest struct {
	Code       string  `json:"code" validate:"required,max=40"`
	Name       string  `json:"name" validate:"required,max=200"`
	Unit       string  `json:"unit" validate:"required,max=20"`
	ListPrice  float64 `json:"list_price" validate:"gte=0"`
	IvaPercent float64 `json:"iva_percent" validate:"gte=0,lte=100"`
}

// UpdateProductRequest applies a partial update; nil fields are untouched.
type UpdateProductRequest struct {
	Name       *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Unit       *string  `json:"unit,omitempty" validate:"omitempty,max=20"`
	ListPrice  *float64 `json:"list_price,omitempty" validate:"omitempty,gte=0"`
	IvaPercent *float64 `json:"iva_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
	IsActive   *bool    `json:"is_active,omitempty"`
}

// ListProductsRequest filters the product listing.
type ListProductsRequest struct {
	Search   string `json:"search"`
	OnlyActive bool `json:"only_active"`
	Limit    int    `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int    `json:"offset" validate:"gte=0"`
}
