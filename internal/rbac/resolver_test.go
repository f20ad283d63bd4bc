package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() Table {
	return NewTable(map[Role][]Permission{
		RoleAdmin: {PermTaskRead, PermTaskAssign, PermUserRead},
		RoleOwner: {PermTaskRead, PermContentWrite},
		RoleStaff: {PermTaskRead},
	})
}

func TestSuperAdminHoldsEveryPermission(t *testing.T) {
	resolver := NewResolver(testTable())
	for _, p := range AllPermissions() {
		assert.True(t, resolver.HasPermission(RoleSuperAdmin, p), "super admin missing %s", p)
	}
	// Even keys outside the catalog resolve to true for the bypass role.
	assert.True(t, resolver.HasPermission(RoleSuperAdmin, Permission("made:up")))
}

func TestHasPermissionFollowsTable(t *testing.T) {
	resolver := NewResolver(testTable())

	assert.True(t, resolver.HasPermission(RoleOwner, PermContentWrite))
	assert.False(t, resolver.HasPermission(RoleOwner, PermTaskAssign))
	assert.True(t, resolver.HasPermission(RoleStaff, PermTaskRead))
	assert.False(t, resolver.HasPermission(RoleStaff, PermUserRead))
}

func TestUnknownRoleAndPermissionResolveToNoAccess(t *testing.T) {
	resolver := NewResolver(testTable())

	assert.False(t, resolver.HasPermission(Role("GHOST"), PermTaskRead))
	assert.False(t, resolver.HasPermission(Role(""), PermTaskRead))
	assert.False(t, resolver.HasPermission(RoleAdmin, Permission("made:up")))
	assert.Empty(t, resolver.EffectivePermissions(Role("GHOST"), nil))
}

func TestHasAnyAndAllPermissions(t *testing.T) {
	resolver := NewResolver(testTable())

	assert.True(t, resolver.HasAnyPermission(RoleOwner, PermTaskAssign, PermContentWrite))
	assert.False(t, resolver.HasAnyPermission(RoleStaff, PermTaskAssign, PermContentWrite))
	assert.True(t, resolver.HasAllPermissions(RoleOwner, PermTaskRead, PermContentWrite))
	assert.False(t, resolver.HasAllPermissions(RoleOwner, PermTaskRead, PermTaskAssign))
	assert.True(t, resolver.HasAllPermissions(RoleStaff), "empty requirement always holds")
}

func TestEffectivePermissionsAppliesOverrides(t *testing.T) {
	resolver := NewResolver(testTable())

	custom := &CustomPermissions{
		Granted: []Permission{PermUploadWrite},
		Denied:  []Permission{PermTaskRead},
	}
	set := resolver.EffectivePermissions(RoleStaff, custom)

	assert.True(t, set.Has(PermUploadWrite), "granted key must be added")
	assert.False(t, set.Has(PermTaskRead), "denied key must be removed")
	require.Len(t, set, 1)
}

func TestEffectivePermissionsDeniedWinsOnConflict(t *testing.T) {
	resolver := NewResolver(testTable())

	custom := &CustomPermissions{
		Granted: []Permission{PermContentWrite},
		Denied:  []Permission{PermContentWrite},
	}
	set := resolver.EffectivePermissions(RoleStaff, custom)
	assert.False(t, set.Has(PermContentWrite))
}

func TestSuperAdminIgnoresOverrides(t *testing.T) {
	resolver := NewResolver(testTable())

	custom := &CustomPermissions{Denied: AllPermissions()}
	set := resolver.EffectivePermissions(RoleSuperAdmin, custom)
	require.Len(t, set, len(AllPermissions()))
	assert.True(t, resolver.Allows(RoleSuperAdmin, custom, PermSystemSettings))
}

func TestAllowsConsultsOverrides(t *testing.T) {
	resolver := NewResolver(testTable())

	custom := &CustomPermissions{Denied: []Permission{PermTaskRead}}
	assert.False(t, resolver.Allows(RoleStaff, custom, PermTaskRead))
	assert.True(t, resolver.Allows(RoleStaff, nil, PermTaskRead))
}

func TestCanManageRoleIsStrict(t *testing.T) {
	resolver := NewResolver(testTable())

	for _, role := range []Role{RoleSuperAdmin, RoleAdmin, RoleOwner, RoleStaff} {
		assert.False(t, resolver.CanManageRole(role, role), "%s must not manage its own rank", role)
	}
	for _, target := range []Role{RoleAdmin, RoleOwner, RoleStaff} {
		assert.True(t, resolver.CanManageRole(RoleSuperAdmin, target))
	}
	assert.True(t, resolver.CanManageRole(RoleAdmin, RoleStaff))
	assert.False(t, resolver.CanManageRole(RoleStaff, RoleAdmin))
	assert.False(t, resolver.CanManageRole(Role("GHOST"), RoleStaff))
	assert.False(t, resolver.CanManageRole(RoleAdmin, Role("GHOST")))
}
