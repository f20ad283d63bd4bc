package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Eric920418/Manpower-sub002/internal/platform/httpx"
)

// PermissionsHandler exposes the permission catalog to the admin UI so the
// override editor renders from the same source the resolver uses.
type PermissionsHandler struct {
	resolver *Resolver
	guard    Middleware
}

// NewPermissionsHandler builds a PermissionsHandler.
func NewPermissionsHandler(resolver *Resolver, guard Middleware) *PermissionsHandler {
	return &PermissionsHandler{resolver: resolver, guard: guard}
}

// MountRoutes registers catalog routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(PermUserPermissions))
		r.Get("/", h.listCatalog)
		r.Get("/me", h.showEffective)
	})
}

func (h *PermissionsHandler) listCatalog(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"catalog": Catalog()})
}

func (h *PermissionsHandler) showEffective(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	effective := h.resolver.EffectivePermissions(principal.Role, principal.Custom)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":        principal.Role,
		"permissions": effective.List(),
	})
}
