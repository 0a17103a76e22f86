package address

// AddressInput carries the client-editable fields of a shipping address.
type AddressInput struct {
	Name       string  `json:"name" validate:"required,max=120"`
	Phone      string  `json:"phone" validate:"required,max=20"`
	Line1      string  `json:"line1" validate:"required,max=255"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=255"`
	City       string  `json:"city" validate:"required,max=120"`
	State      string  `json:"state" validate:"required,max=120"`
	PostalCode string  `json:"postalCode" validate:"required,max=12"`
	IsDefault  bool    `json:"isDefault"`
}
