package users

import (
	"context"

	"github.com/Eric920418/Manpower-sub002/internal/rbac"
)

// Repository defines persistence operations for staff accounts.
type Repository interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	UpdateRole(ctx context.Context, id int64, role rbac.Role) error
	UpdateOverrides(ctx context.Context, id int64, granted, denied []rbac.Permission) error
}
