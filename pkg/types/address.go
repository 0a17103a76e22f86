package types

import "strings"

// AddressSnapshot is the shipping destination frozen onto an order at
// checkout. Stored as jsonb so later edits to the saved address never
// rewrite order history.
type AddressSnapshot struct {
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
}

// IsZero reports whether no snapshot was captured.
func (a AddressSnapshot) IsZero() bool {
	return strings.TrimSpace(a.Line1) == "" && strings.TrimSpace(a.City) == ""
}
