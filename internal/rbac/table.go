package rbac

// Table maps each role to its default permission set. Tables are built once
// and treated as immutable afterwards; the resolver copies nothing at query
// time, so callers must not mutate a table after handing it over.
//
// SUPER_ADMIN intentionally has no row. The resolver short-circuits it to the
// universal set so the table cannot drift out of sync as permissions are
// added to the catalog.
type Table map[Role]PermissionSet

// NewTable builds a Table from permission slices.
func NewTable(defaults map[Role][]Permission) Table {
	table := make(Table, len(defaults))
	for role, perms := range defaults {
		set := make(PermissionSet, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		table[role] = set
	}
	return table
}

// DefaultTable returns the production role matrix.
func DefaultTable() Table {
	return NewTable(map[Role][]Permission{
		RoleAdmin: {
			PermSystemAnalytics,
			PermTaskRead, PermTaskCreate, PermTaskAssign, PermTaskClaim, PermTaskReview,
			PermContentRead, PermContentWrite, PermContentPublish,
			PermUploadRead, PermUploadWrite,
			PermUserRead, PermUserManage, PermUserPermissions,
			PermReminderRead, PermReminderWrite,
		},
		RoleOwner: {
			PermTaskRead, PermTaskCreate, PermTaskClaim,
			PermContentRead, PermContentWrite,
			PermUploadRead, PermUploadWrite,
			PermUserRead,
			PermReminderRead, PermReminderWrite,
		},
		RoleStaff: {
			PermTaskRead, PermTaskClaim,
			PermContentRead,
			PermUploadRead,
			PermReminderRead, PermReminderWrite,
		},
	})
}
