package tasks

import (
	"context"

	"github.com/Eric920418/Manpower-sub002/internal/rbac"
	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

// RoleLookup resolves a user id to its role, needed for assignment checks.
type RoleLookup interface {
	PrincipalByID(ctx context.Context, userID int64) (rbac.Principal, error)
}

// Service handles admin task business logic.
type Service struct {
	repo     Repository
	resolver *rbac.Resolver
	roles    RoleLookup
}

// NewService builds a Service instance.
func NewService(repo Repository, resolver *rbac.Resolver, roles RoleLookup) *Service {
	return &Service{repo: repo, resolver: resolver, roles: roles}
}

// GetTask fetches one task.
func (s *Service) GetTask(ctx context.Context, id int64) (Task, error) {
	return s.repo.GetTask(ctx, id)
}

// NeedingRevision lists the user's tasks flagged for revision.
func (s *Service) NeedingRevision(ctx context.Context, userID int64) ([]Task, error) {
	return s.repo.ListNeedingRevision(ctx, userID)
}

// PendingDocuments lists the user's tasks awaiting documents.
func (s *Service) PendingDocuments(ctx context.Context, userID int64) ([]Task, error) {
	return s.repo.ListPendingDocuments(ctx, userID)
}

// UnclaimedCount counts tasks in the shared backlog.
func (s *Service) UnclaimedCount(ctx context.Context) (int, error) {
	return s.repo.CountUnclaimed(ctx)
}

// Claim takes an unclaimed task for the calling user.
func (s *Service) Claim(ctx context.Context, taskID, userID int64) error {
	return s.repo.ClaimTask(ctx, taskID, userID)
}

// Assign hands a task to another user. The acting role must outrank the
// assignee's role; assignment between peers is rejected.
func (s *Service) Assign(ctx context.Context, acting rbac.Principal, taskID, assigneeID int64) error {
	if acting.UserID == assigneeID {
		return s.repo.AssignTask(ctx, taskID, assigneeID)
	}
	assignee, err := s.roles.PrincipalByID(ctx, assigneeID)
	if err != nil {
		return err
	}
	if !s.resolver.CanManageRole(acting.Role, assignee.Role) {
		return shared.ErrForbidden
	}
	return s.repo.AssignTask(ctx, taskID, assigneeID)
}

// Create inserts a new task into the backlog.
func (s *Service) Create(ctx context.Context, task Task) (Task, error) {
	return s.repo.CreateTask(ctx, task)
}
