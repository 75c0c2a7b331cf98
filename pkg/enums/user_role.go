package enums

// UserRole is the platform-level role carried in access tokens.
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleSales UserRole = "sales"
	UserRoleBuyer UserRole = "buyer"
)

var userRoles = newSet("user role",
	UserRoleAdmin,
	UserRoleSales,
	UserRoleBuyer,
)

func (u UserRole) String() string { return string(u) }

func (u UserRole) IsValid() bool { return userRoles.has(u) }

// ParseUserRole accepts only the exact wire spelling.
func ParseUserRole(value string) (UserRole, error) {
	return userRoles.parse(value)
}

// UserRoles lists every user role in declaration order.
func UserRoles() []UserRole { return userRoles.all() }

// IsStaff reports whether the role belongs to the seller's own team.
func (u UserRole) IsStaff() bool {
	return u == UserRoleAdmin || u == UserRoleSales
}
