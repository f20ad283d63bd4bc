package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Eric920418/Manpower-sub002/internal/platform/httpx"
	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

// Principal is the authenticated actor as the guard layer sees it.
type Principal struct {
	UserID int64
	Role   Role
	Custom *CustomPermissions
}

// PrincipalSource loads the role and overrides for a user id. The users
// module implements this; the guard stays free of persistence concerns.
type PrincipalSource interface {
	PrincipalByID(ctx context.Context, userID int64) (Principal, error)
}

// Middleware guards routes with the shared resolver so route enforcement and
// UI conditionals cannot drift apart.
type Middleware struct {
	Resolver   *Resolver
	Principals PrincipalSource
	Logger     *slog.Logger
	LoginPath  string
}

// RequireAny ensures the current user holds at least one of the permissions.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	return m.require(func(p Principal) bool {
		for _, perm := range perms {
			if m.Resolver.Allows(p.Role, p.Custom, perm) {
				return true
			}
		}
		return len(perms) == 0
	})
}

// RequireAll ensures the current user holds every one of the permissions.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	return m.require(func(p Principal) bool {
		for _, perm := range perms {
			if !m.Resolver.Allows(p.Role, p.Custom, perm) {
				return false
			}
		}
		return true
	})
}

func (m Middleware) require(allowed func(Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := m.currentPrincipal(r)
			if !ok || !allowed(principal) {
				m.deny(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// deny redirects browser navigations to the login page and answers API
// clients with a problem document. Missing sessions and missing permissions
// look identical to the caller.
func (m Middleware) deny(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		login := m.LoginPath
		if login == "" {
			login = "/admin/login"
		}
		http.Redirect(w, r, login, http.StatusSeeOther)
		return
	}
	httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
}

func (m Middleware) currentPrincipal(r *http.Request) (Principal, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return Principal{}, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return Principal{}, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac parse user id", slog.String("value", raw))
		}
		return Principal{}, false
	}
	principal, err := m.Principals.PrincipalByID(r.Context(), id)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac load principal", slog.Int64("user_id", id), slog.Any("error", err))
		}
		return Principal{}, false
	}
	return principal, true
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

type principalContextKey struct{}

// ContextWithPrincipal stores the resolved principal for downstream handlers.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal placed by the guard, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
