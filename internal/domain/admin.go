package domain

import "time"

// Admin role constants.
const (
	AdminRoleSuper     = "super"
	AdminRoleAdmin     = "admin"
	AdminRoleModerator = "moderator"
)

// ValidAdminRoles returns the set of valid admin roles.
func ValidAdminRoles() []string {
	return []string{AdminRoleSuper, AdminRoleAdmin, AdminRoleModerator}
}

// IsValidAdminRole checks whether the given role string is a valid admin role.
func IsValidAdminRole(role string) bool {
	for _, r := range ValidAdminRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// Permission names used by the authorization layer.
const (
	PermissionProducts = "products"
	PermissionOrders   = "orders"
	PermissionUsers    = "users"
	PermissionReports  = "reports"
)

// Permissions is the flat set of admin capabilities.
type Permissions struct {
	Products bool `json:"products"`
	Orders   bool `json:"orders"`
	Users    bool `json:"users"`
	Reports  bool `json:"reports"`
}

// DefaultPermissions returns the permission set granted to newly registered
// non-super admins.
func DefaultPermissions() Permissions {
	return Permissions{Products: true, Orders: true, Users: false, Reports: false}
}

// AllPermissions returns the full permission set. Super admins always hold it.
func AllPermissions() Permissions {
	return Permissions{Products: true, Orders: true, Users: true, Reports: true}
}

// Has reports whether the named permission is granted. Unknown names are
// never granted.
func (p Permissions) Has(name string) bool {
	switch name {
	case PermissionProducts:
		return p.Products
	case PermissionOrders:
		return p.Orders
	case PermissionUsers:
		return p.Users
	case PermissionReports:
		return p.Reports
	default:
		return false
	}
}

// Admin represents a back-office account.
type Admin struct {
	ID               int64       `json:"id"`
	Email            string      `json:"email"`
	PasswordHash     string      `json:"-"`
	FullName         string      `json:"full_name"`
	Role             string      `json:"role"`
	Permissions      Permissions `json:"permissions"`
	TwoFactorSecret  string      `json:"-"`
	TwoFactorEnabled bool        `json:"two_factor_enabled"`
	IsActive         bool        `json:"is_active"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Can reports whether the admin may exercise the named permission.
// Super admins bypass the permission set entirely.
func (a *Admin) Can(permission string) bool {
	if a.Role == AdminRoleSuper {
		return true
	}
	return a.Permissions.Has(permission)
}
