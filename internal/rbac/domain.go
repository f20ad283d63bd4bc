package rbac

// Role is one of the four fixed staff categories. The set is closed; roles
// are not created or deleted at runtime.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleOwner      Role = "OWNER"
	RoleStaff      Role = "STAFF"
)

// roleRanks orders roles for assignment eligibility only. Permission
// resolution never consults the rank.
var roleRanks = map[Role]int{
	RoleSuperAdmin: 4,
	RoleAdmin:      3,
	RoleOwner:      2,
	RoleStaff:      1,
}

// Rank returns the hierarchy position of the role, or 0 for unknown roles.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Known reports whether the role is one of the four fixed values.
func (r Role) Known() bool {
	_, ok := roleRanks[r]
	return ok
}

// Permission is an opaque "domain:action" capability identifier.
type Permission string

// Catalog permissions. Grouping by domain is for display only.
const (
	PermSystemAnalytics Permission = "system:analytics"
	PermSystemSettings  Permission = "system:settings"

	PermTaskRead   Permission = "admin_task:read"
	PermTaskCreate Permission = "admin_task:create"
	PermTaskAssign Permission = "admin_task:assign"
	PermTaskClaim  Permission = "admin_task:claim"
	PermTaskReview Permission = "admin_task:review"

	PermContentRead    Permission = "content:read"
	PermContentWrite   Permission = "content:write"
	PermContentPublish Permission = "content:publish"

	PermUploadRead  Permission = "upload:read"
	PermUploadWrite Permission = "upload:write"

	PermUserRead        Permission = "user:read"
	PermUserManage      Permission = "user:manage"
	PermUserPermissions Permission = "user:permissions"

	PermReminderRead  Permission = "reminder:read"
	PermReminderWrite Permission = "reminder:write"
)

// CatalogGroup is a display grouping of related permissions.
type CatalogGroup struct {
	Domain      string       `json:"domain"`
	Permissions []Permission `json:"permissions"`
}

// Catalog lists every known permission grouped by domain. Resolution does not
// depend on the grouping; it exists for the admin permission editor.
func Catalog() []CatalogGroup {
	return []CatalogGroup{
		{Domain: "system", Permissions: []Permission{PermSystemAnalytics, PermSystemSettings}},
		{Domain: "admin_task", Permissions: []Permission{PermTaskRead, PermTaskCreate, PermTaskAssign, PermTaskClaim, PermTaskReview}},
		{Domain: "content", Permissions: []Permission{PermContentRead, PermContentWrite, PermContentPublish}},
		{Domain: "upload", Permissions: []Permission{PermUploadRead, PermUploadWrite}},
		{Domain: "user", Permissions: []Permission{PermUserRead, PermUserManage, PermUserPermissions}},
		{Domain: "reminder", Permissions: []Permission{PermReminderRead, PermReminderWrite}},
	}
}

// AllPermissions flattens the catalog into the universal permission set.
func AllPermissions() []Permission {
	var all []Permission
	for _, group := range Catalog() {
		all = append(all, group.Permissions...)
	}
	return all
}

// CustomPermissions holds per-user overrides on top of the role defaults.
// A key should never be present in both lists; if it is, Denied wins.
type CustomPermissions struct {
	Granted []Permission `json:"granted"`
	Denied  []Permission `json:"denied"`
}

// PermissionSet is a resolved set of permissions.
type PermissionSet map[Permission]struct{}

// Has reports membership.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// List returns the members in unspecified order.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return out
}
