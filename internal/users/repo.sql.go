package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Eric920418/Manpower-sub002/internal/rbac"
	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, name, role, granted, denied, is_active, created_at, updated_at`

// ListUsers returns all staff accounts ordered by id.
func (r *PGRepository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser fetches one account by id.
func (r *PGRepository) GetUser(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// UpdateRole sets the account role.
func (r *PGRepository) UpdateRole(ctx context.Context, id int64, role rbac.Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`,
		id, string(role), time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateOverrides replaces the granted and denied permission lists.
func (r *PGRepository) UpdateOverrides(ctx context.Context, id int64, granted, denied []rbac.Permission) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET granted = $2, denied = $3, updated_at = $4 WHERE id = $1`,
		id, permissionStrings(granted), permissionStrings(denied), time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		user    User
		role    string
		granted []string
		denied  []string
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &role, &granted, &denied, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return User{}, err
	}
	user.Role = rbac.Role(role)
	user.Granted = permissions(granted)
	user.Denied = permissions(denied)
	return user, nil
}

func permissions(raw []string) []rbac.Permission {
	if len(raw) == 0 {
		return nil
	}
	out := make([]rbac.Permission, len(raw))
	for i, p := range raw {
		out[i] = rbac.Permission(p)
	}
	return out
}

func permissionStrings(perms []rbac.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

var _ Repository = (*PGRepository)(nil)
