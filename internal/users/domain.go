package users

import (
	"time"

	"github.com/Eric920418/Manpower-sub002/internal/rbac"
)

// User is a staff account in the admin CMS.
type User struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      rbac.Role  `json:"role"`
	Granted   []rbac.Permission `json:"granted"`
	Denied    []rbac.Permission `json:"denied"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Custom assembles the override pair for the resolver, nil when empty.
func (u User) Custom() *rbac.CustomPermissions {
	if len(u.Granted) == 0 && len(u.Denied) == 0 {
		return nil
	}
	return &rbac.CustomPermissions{Granted: u.Granted, Denied: u.Denied}
}
