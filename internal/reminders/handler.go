package reminders

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

// Handler exposes reminder endpoints for the admin UI.
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

// MountRoutes registers reminder routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(rbac.PermReminderRead))
		r.Get("/due", h.listDue)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(rbac.PermReminderWrite))
		r.Post("/", h.create)
		r.Post("/shown", h.markShown)
		r.Post("/{id}/complete", h.complete)
		r.Post("/{id}/dismiss", h.dismiss)
	})
}

func (h *Handler) listDue(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	due, err := h.service.Due(r.Context(), principal.UserID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reminders": due})
}

type createRequest struct {
	SourceTaskID int64   `json:"source_task_id" validate:"required,gt=0"`
	Items        []Input `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	created, err := h.service.Create(r.Context(), principal.UserID, req.SourceTaskID, req.Items)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"reminders": created})
}

type markShownRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

func (h *Handler) markShown(w http.ResponseWriter, r *http.Request) {
	var req markShownRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.MarkShown(r.Context(), principal.UserID, req.IDs); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

type completeRequest struct {
	CompletedTaskID int64 `json:"completed_task_id" validate:"required,gt=0"`
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid reminder id")
		return
	}
	var req completeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.Complete(r.Context(), principal.UserID, id, req.CompletedTaskID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) dismiss(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid reminder id")
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.Dismiss(r.Context(), principal.UserID, id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	default:
		h.logger.Error("reminders handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
