package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eric920418/Manpower-sub002/internal/rbac"
	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

type mockRepository struct {
	users     map[int64]*User
	listCalls int
	listErr   error
}

func newMockRepository(users ...*User) *mockRepository {
	m := &mockRepository{users: make(map[int64]*User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockRepository) ListUsers(ctx context.Context) ([]User, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockRepository) GetUser(ctx context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return *u, nil
}

func (m *mockRepository) UpdateRole(ctx context.Context, id int64, role rbac.Role) error {
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Role = role
	return nil
}

func (m *mockRepository) UpdateOverrides(ctx context.Context, id int64, granted, denied []rbac.Permission) error {
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Granted = granted
	u.Denied = denied
	return nil
}

func newService(repo Repository, cache *StaffCache) *Service {
	return NewService(repo, rbac.NewResolver(rbac.DefaultTable()), cache)
}

func TestSetRoleRequiresOutranking(t *testing.T) {
	repo := newMockRepository(&User{ID: 7, Role: rbac.RoleOwner, IsActive: true})
	service := newService(repo, nil)

	err := service.SetRole(context.Background(), rbac.RoleOwner, 7, rbac.RoleStaff)
	assert.ErrorIs(t, err, shared.ErrForbidden, "equal rank must not manage")

	err = service.SetRole(context.Background(), rbac.RoleAdmin, 7, rbac.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleStaff, repo.users[7].Role)
}

func TestSetRoleRejectsPromotionAboveActor(t *testing.T) {
	repo := newMockRepository(&User{ID: 7, Role: rbac.RoleStaff, IsActive: true})
	service := newService(repo, nil)

	err := service.SetRole(context.Background(), rbac.RoleAdmin, 7, rbac.RoleSuperAdmin)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestSetOverridesKeepsListsDisjoint(t *testing.T) {
	repo := newMockRepository(&User{ID: 3, Role: rbac.RoleStaff, IsActive: true})
	service := newService(repo, nil)

	err := service.SetOverrides(context.Background(), rbac.RoleAdmin, 3,
		[]rbac.Permission{rbac.PermContentWrite, rbac.PermUploadWrite, rbac.PermUploadWrite},
		[]rbac.Permission{rbac.PermContentWrite})
	require.NoError(t, err)

	assert.Equal(t, []rbac.Permission{rbac.PermUploadWrite}, repo.users[3].Granted,
		"denied key must be stripped from granted, duplicates removed")
	assert.Equal(t, []rbac.Permission{rbac.PermContentWrite}, repo.users[3].Denied)
}

func TestPrincipalByIDRejectsInactive(t *testing.T) {
	repo := newMockRepository(&User{ID: 9, Role: rbac.RoleStaff, IsActive: false})
	service := newService(repo, nil)

	_, err := service.PrincipalByID(context.Background(), 9)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestStaffCacheServesWithinTTL(t *testing.T) {
	repo := newMockRepository(&User{ID: 1, Role: rbac.RoleStaff, IsActive: true})
	now := time.Unix(1000, 0)
	cache := NewStaffCache(5*time.Minute, func() time.Time { return now })
	service := newService(repo, cache)

	_, err := service.ListUsers(context.Background())
	require.NoError(t, err)
	_, err = service.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls, "second read within TTL must hit the cache")

	now = now.Add(6 * time.Minute)
	_, err = service.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls, "expired entry must reload")
}

func TestStaffCacheInvalidatedOnWrite(t *testing.T) {
	repo := newMockRepository(&User{ID: 5, Role: rbac.RoleStaff, IsActive: true})
	now := time.Unix(2000, 0)
	cache := NewStaffCache(5*time.Minute, func() time.Time { return now })
	service := newService(repo, cache)

	_, err := service.ListUsers(context.Background())
	require.NoError(t, err)
	require.NoError(t, service.SetRole(context.Background(), rbac.RoleAdmin, 5, rbac.RoleOwner))
	_, err = service.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls, "role change must invalidate the cache")
}

func TestStaffCachePropagatesLoaderError(t *testing.T) {
	repo := newMockRepository()
	repo.listErr = errors.New("boom")
	cache := NewStaffCache(time.Minute, nil)
	service := newService(repo, cache)

	_, err := service.ListUsers(context.Background())
	assert.Error(t, err)
}
