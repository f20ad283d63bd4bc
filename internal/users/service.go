package users

import (
	"context"
	"fmt"

	"github.com/Eric920418/Manpower-sub002/internal/rbac"
	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

// Service handles staff account business logic.
type Service struct {
	repo     Repository
	resolver *rbac.Resolver
	cache    *StaffCache
}

// NewService builds a Service instance. cache may be nil.
func NewService(repo Repository, resolver *rbac.Resolver, cache *StaffCache) *Service {
	return &Service{repo: repo, resolver: resolver, cache: cache}
}

// ListUsers returns all staff accounts, served from the staff cache when
// warm.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	if s.cache == nil {
		return s.repo.ListUsers(ctx)
	}
	return s.cache.Get(ctx, s.repo.ListUsers)
}

// GetUser fetches one account.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// PrincipalByID loads the role and overrides for the guard layer.
func (s *Service) PrincipalByID(ctx context.Context, userID int64) (rbac.Principal, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return rbac.Principal{}, err
	}
	if !user.IsActive {
		return rbac.Principal{}, shared.ErrForbidden
	}
	return rbac.Principal{UserID: user.ID, Role: user.Role, Custom: user.Custom()}, nil
}

// SetRole changes a user's role. The acting role must outrank both the
// target's current role and the new role.
func (s *Service) SetRole(ctx context.Context, acting rbac.Role, targetID int64, role rbac.Role) error {
	if !role.Known() {
		return fmt.Errorf("%w: unknown role %q", shared.ErrForbidden, role)
	}
	target, err := s.repo.GetUser(ctx, targetID)
	if err != nil {
		return err
	}
	if !s.resolver.CanManageRole(acting, target.Role) || !s.resolver.CanManageRole(acting, role) {
		return shared.ErrForbidden
	}
	if err := s.repo.UpdateRole(ctx, targetID, role); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// SetOverrides replaces a user's custom permission lists. Keys present in
// both lists are kept only on the side being set last by the caller order:
// the denied list wins, mirroring resolver semantics, and the stored lists
// are made disjoint so the conflict never persists.
func (s *Service) SetOverrides(ctx context.Context, acting rbac.Role, targetID int64, granted, denied []rbac.Permission) error {
	target, err := s.repo.GetUser(ctx, targetID)
	if err != nil {
		return err
	}
	if !s.resolver.CanManageRole(acting, target.Role) {
		return shared.ErrForbidden
	}
	granted, denied = disjoint(granted, denied)
	if err := s.repo.UpdateOverrides(ctx, targetID, granted, denied); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

// disjoint dedupes both lists and removes denied keys from granted.
func disjoint(granted, denied []rbac.Permission) ([]rbac.Permission, []rbac.Permission) {
	deniedSet := make(map[rbac.Permission]struct{}, len(denied))
	var cleanDenied []rbac.Permission
	for _, p := range denied {
		if _, ok := deniedSet[p]; ok {
			continue
		}
		deniedSet[p] = struct{}{}
		cleanDenied = append(cleanDenied, p)
	}
	seen := make(map[rbac.Permission]struct{}, len(granted))
	var cleanGranted []rbac.Permission
	for _, p := range granted {
		if _, ok := deniedSet[p]; ok {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		cleanGranted = append(cleanGranted, p)
	}
	return cleanGranted, cleanDenied
}
