package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPermissions(t *testing.T) {
	p := DefaultPermissions()
	assert.True(t, p.Products)
	assert.True(t, p.Orders)
	assert.False(t, p.Users)
	assert.False(t, p.Reports)
}

func TestAllPermissions(t *testing.T) {
	p := AllPermissions()
	for _, name := range []string{PermissionProducts, PermissionOrders, PermissionUsers, PermissionReports} {
		assert.True(t, p.Has(name), "permission %s should be granted", name)
	}
}

func TestPermissions_Has_UnknownName(t *testing.T) {
	p := AllPermissions()
	assert.False(t, p.Has("payments"))
	assert.False(t, p.Has(""))
}

func TestAdmin_Can_SuperBypassesPermissions(t *testing.T) {
	a := &Admin{Role: AdminRoleSuper, Permissions: Permissions{}}
	for _, name := range []string{PermissionProducts, PermissionOrders, PermissionUsers, PermissionReports} {
		assert.True(t, a.Can(name), "super should hold %s regardless of stored flags", name)
	}
}

func TestAdmin_Can_ModeratorUsesStoredPermissions(t *testing.T) {
	a := &Admin{Role: AdminRoleModerator, Permissions: DefaultPermissions()}
	assert.True(t, a.Can(PermissionProducts))
	assert.True(t, a.Can(PermissionOrders))
	assert.False(t, a.Can(PermissionUsers))
	assert.False(t, a.Can(PermissionReports))
}

func TestIsValidAdminRole(t *testing.T) {
	assert.Equal(t, []string{"super", "admin", "moderator"}, ValidAdminRoles())
	for _, r := range ValidAdminRoles() {
		assert.True(t, IsValidAdminRole(r))
	}
	assert.False(t, IsValidAdminRole("owner"))
	assert.False(t, IsValidAdminRole(""))
}

func TestRefreshToken_IsExpired(t *testing.T) {
	now := time.Now()
	tok := &RefreshToken{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, tok.IsExpired(now))
	assert.True(t, tok.IsExpired(now.Add(time.Minute)), "expiry instant counts as expired")
	assert.True(t, tok.IsExpired(now.Add(2*time.Minute)))
}

func TestUser_FullName(t *testing.T) {
	tests := []struct {
		first, last, want string
	}{
		{"Ada", "Lovelace", "Ada Lovelace"},
		{"Ada", "", "Ada"},
		{"", "Lovelace", "Lovelace"},
		{"", "", ""},
	}
	for _, tt := range tests {
		u := &User{FirstName: tt.first, LastName: tt.last}
		assert.Equal(t, tt.want, u.FullName())
	}
}
