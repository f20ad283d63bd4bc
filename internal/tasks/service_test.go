package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eric920418/Manpower-sub002/internal/rbac"
	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

type mockRepository struct {
	tasks     map[int64]*Task
	unclaimed int
}

func newMockRepository(tasks ...*Task) *mockRepository {
	m := &mockRepository{tasks: make(map[int64]*Task)}
	for _, task := range tasks {
		m.tasks[task.ID] = task
		if task.Status == StatusUnclaimed {
			m.unclaimed++
		}
	}
	return m
}

func (m *mockRepository) GetTask(ctx context.Context, id int64) (Task, error) {
	if task, ok := m.tasks[id]; ok {
		return *task, nil
	}
	return Task{}, shared.ErrNotFound
}

func (m *mockRepository) ListNeedingRevision(ctx context.Context, assigneeID int64) ([]Task, error) {
	var out []Task
	for _, task := range m.tasks {
		if task.NeedsRevision && task.AssigneeID != nil && *task.AssigneeID == assigneeID {
			out = append(out, *task)
		}
	}
	return out, nil
}

func (m *mockRepository) ListPendingDocuments(ctx context.Context, assigneeID int64) ([]Task, error) {
	var out []Task
	for _, task := range m.tasks {
		if task.PendingDocs && task.AssigneeID != nil && *task.AssigneeID == assigneeID {
			out = append(out, *task)
		}
	}
	return out, nil
}

func (m *mockRepository) CountUnclaimed(ctx context.Context) (int, error) {
	return m.unclaimed, nil
}

func (m *mockRepository) ClaimTask(ctx context.Context, taskID, userID int64) error {
	task, ok := m.tasks[taskID]
	if !ok || task.Status != StatusUnclaimed {
		return shared.ErrNotFound
	}
	task.Status = StatusClaimed
	task.AssigneeID = &userID
	m.unclaimed--
	return nil
}

func (m *mockRepository) AssignTask(ctx context.Context, taskID, assigneeID int64) error {
	task, ok := m.tasks[taskID]
	if !ok {
		return shared.ErrNotFound
	}
	task.Status = StatusClaimed
	task.AssigneeID = &assigneeID
	return nil
}

func (m *mockRepository) CreateTask(ctx context.Context, task Task) (Task, error) {
	task.ID = int64(len(m.tasks) + 1)
	task.Status = StatusUnclaimed
	m.tasks[task.ID] = &task
	m.unclaimed++
	return task, nil
}

type stubRoles struct {
	roles map[int64]rbac.Role
}

func (s stubRoles) PrincipalByID(ctx context.Context, userID int64) (rbac.Principal, error) {
	role, ok := s.roles[userID]
	if !ok {
		return rbac.Principal{}, shared.ErrNotFound
	}
	return rbac.Principal{UserID: userID, Role: role}, nil
}

func newService(repo Repository, roles RoleLookup) *Service {
	return NewService(repo, rbac.NewResolver(rbac.DefaultTable()), roles)
}

func TestAssignRequiresOutranking(t *testing.T) {
	repo := newMockRepository(&Task{ID: 1, Status: StatusUnclaimed})
	roles := stubRoles{roles: map[int64]rbac.Role{10: rbac.RoleOwner, 20: rbac.RoleStaff}}
	service := newService(repo, roles)

	actingOwner := rbac.Principal{UserID: 99, Role: rbac.RoleOwner}
	err := service.Assign(context.Background(), actingOwner, 1, 10)
	assert.ErrorIs(t, err, shared.ErrForbidden, "owner must not assign to a peer owner")

	err = service.Assign(context.Background(), actingOwner, 1, 20)
	require.NoError(t, err, "owner outranks staff")
	assert.Equal(t, int64(20), *repo.tasks[1].AssigneeID)
}

func TestAssignToSelfSkipsRankCheck(t *testing.T) {
	repo := newMockRepository(&Task{ID: 1, Status: StatusUnclaimed})
	service := newService(repo, stubRoles{roles: map[int64]rbac.Role{}})

	acting := rbac.Principal{UserID: 7, Role: rbac.RoleStaff}
	require.NoError(t, service.Assign(context.Background(), acting, 1, 7))
	assert.Equal(t, int64(7), *repo.tasks[1].AssigneeID)
}

func TestClaimOnlyUnclaimedTasks(t *testing.T) {
	assignee := int64(5)
	repo := newMockRepository(
		&Task{ID: 1, Status: StatusUnclaimed},
		&Task{ID: 2, Status: StatusClaimed, AssigneeID: &assignee},
	)
	service := newService(repo, stubRoles{})

	require.NoError(t, service.Claim(context.Background(), 1, 9))
	assert.ErrorIs(t, service.Claim(context.Background(), 2, 9), shared.ErrNotFound)
}

func TestCategoryQueriesAreScopedToAssignee(t *testing.T) {
	mine, theirs := int64(1), int64(2)
	repo := newMockRepository(
		&Task{ID: 1, AssigneeID: &mine, NeedsRevision: true, RevisionReason: "missing contract"},
		&Task{ID: 2, AssigneeID: &theirs, NeedsRevision: true},
		&Task{ID: 3, AssigneeID: &mine, PendingDocs: true, PendingReason: "缺少身分證影本"},
	)
	service := newService(repo, stubRoles{})

	revision, err := service.NeedingRevision(context.Background(), mine)
	require.NoError(t, err)
	require.Len(t, revision, 1)
	assert.Equal(t, "missing contract", revision[0].RevisionReason)

	pending, err := service.PendingDocuments(context.Background(), mine)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "缺少身分證影本", pending[0].PendingReason)
}
