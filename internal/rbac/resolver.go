package rbac

// Resolver answers permission point queries against an injected role table.
// All methods are pure: no I/O, no errors. Unknown roles and unknown
// permission keys resolve to "no access", never to a failure.
type Resolver struct {
	table Table
}

// NewResolver constructs a Resolver over the given table.
func NewResolver(table Table) *Resolver {
	return &Resolver{table: table}
}

// HasPermission reports whether the role holds the permission by default.
// SUPER_ADMIN holds every permission unconditionally.
func (r *Resolver) HasPermission(role Role, perm Permission) bool {
	if role == RoleSuperAdmin {
		return true
	}
	defaults, ok := r.table[role]
	if !ok {
		return false
	}
	return defaults.Has(perm)
}

// HasAnyPermission reports whether at least one of the permissions holds.
func (r *Resolver) HasAnyPermission(role Role, perms ...Permission) bool {
	for _, p := range perms {
		if r.HasPermission(role, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every one of the permissions holds.
func (r *Resolver) HasAllPermissions(role Role, perms ...Permission) bool {
	for _, p := range perms {
		if !r.HasPermission(role, p) {
			return false
		}
	}
	return true
}

// EffectivePermissions resolves (defaults ∪ granted) − denied for the role.
// Denied wins when a key appears in both override lists. SUPER_ADMIN ignores
// overrides entirely and resolves to the universal set.
func (r *Resolver) EffectivePermissions(role Role, custom *CustomPermissions) PermissionSet {
	if role == RoleSuperAdmin {
		set := make(PermissionSet)
		for _, p := range AllPermissions() {
			set[p] = struct{}{}
		}
		return set
	}
	defaults := r.table[role]
	set := make(PermissionSet, len(defaults))
	for p := range defaults {
		set[p] = struct{}{}
	}
	if custom != nil {
		for _, p := range custom.Granted {
			set[p] = struct{}{}
		}
		for _, p := range custom.Denied {
			delete(set, p)
		}
	}
	return set
}

// Allows reports whether the permission is in the user's effective set, with
// overrides applied. Guards use this rather than HasPermission so per-user
// grants and denials take effect.
func (r *Resolver) Allows(role Role, custom *CustomPermissions, perm Permission) bool {
	if role == RoleSuperAdmin {
		return true
	}
	return r.EffectivePermissions(role, custom).Has(perm)
}

// CanManageRole reports whether the acting role outranks the target role.
// Equal ranks cannot manage each other; used for task assignment only.
func (r *Resolver) CanManageRole(acting, target Role) bool {
	if !acting.Known() || !target.Known() {
		return false
	}
	return acting.Rank() > target.Rank()
}
