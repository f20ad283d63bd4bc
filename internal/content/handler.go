package content

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Eric920418/Manpower-sub002/internal/platform/httpx"
	"github.com/Eric920418/Manpower-sub002/internal/rbac"
	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

// Handler serves public content reads and guarded admin writes.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guard    rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validate: validator.New()}
}

// MountPublicRoutes registers the unauthenticated read surface.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/sections/{section}", h.publicSection)
	r.Get("/blocks/{slug}", h.publicBlock)
}

// MountAdminRoutes registers guarded CRUD routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(rbac.PermContentRead))
		r.Get("/sections/{section}", h.adminSection)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(rbac.PermContentWrite))
		r.Post("/blocks", h.create)
		r.Put("/blocks/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(rbac.PermContentPublish))
		r.Post("/blocks/{id}/publish", h.setPublished(true))
		r.Post("/blocks/{id}/unpublish", h.setPublished(false))
	})
}

func (h *Handler) publicSection(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.service.PublicSection(r.Context(), chi.URLParam(r, "section"), r.URL.Query().Get("locale"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if blocks == nil {
		blocks = []Block{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"blocks": blocks})
}

func (h *Handler) publicBlock(w http.ResponseWriter, r *http.Request) {
	block, err := h.service.PublicBlock(r.Context(), chi.URLParam(r, "slug"), r.URL.Query().Get("locale"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"block": block})
}

func (h *Handler) adminSection(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.service.ListSection(r.Context(), chi.URLParam(r, "section"), r.URL.Query().Get("locale"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if blocks == nil {
		blocks = []Block{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"blocks": blocks})
}

type blockRequest struct {
	Slug    string `json:"slug"`
	Section string `json:"section" validate:"required"`
	Title   string `json:"title" validate:"required"`
	Body    string `json:"body"`
	Locale  string `json:"locale"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	block, err := h.service.Create(r.Context(), Block{
		Slug:      req.Slug,
		Section:   req.Section,
		Title:     req.Title,
		Body:      req.Body,
		Locale:    req.Locale,
		UpdatedBy: principal.UserID,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"block": block})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid block id")
		return
	}
	var req blockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	block, err := h.service.Update(r.Context(), Block{
		ID:        id,
		Slug:      req.Slug,
		Section:   req.Section,
		Title:     req.Title,
		Body:      req.Body,
		Locale:    req.Locale,
		UpdatedBy: principal.UserID,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"block": block})
}

func (h *Handler) setPublished(published bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid block id")
			return
		}
		if err := h.service.SetPublished(r.Context(), id, published); err != nil {
			h.respondServiceError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	default:
		h.logger.Error("content handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
