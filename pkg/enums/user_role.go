package enums

// UserRole controls which API surface a user can reach.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
)

// IsValid reports whether the value is a known role.
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleCustomer, UserRoleAdmin:
		return true
	default:
		return false
	}
}
