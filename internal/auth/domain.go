package auth

import (
	"time"

	"github.com/Eric920418/Manpower-sub002/internal/rbac"
)

// User represents an authenticatable staff account.
type User struct {
	ID           int64
	Email        string
	Name         string
	Role         rbac.Role
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
