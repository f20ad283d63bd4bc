package tasks

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Eric920418/Manpower-sub002/internal/platform/httpx"
	"github.com/Eric920418/Manpower-sub002/internal/rbac"
	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

// Handler manages admin task endpoints.
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

// MountRoutes registers task routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(rbac.PermTaskRead))
		r.Get("/{id}", h.getTask)
		r.Get("/needing-revision", h.listNeedingRevision)
		r.Get("/pending-documents", h.listPendingDocuments)
		r.Get("/unclaimed/count", h.countUnclaimed)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(rbac.PermTaskClaim))
		r.Post("/{id}/claim", h.claimTask)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(rbac.PermTaskAssign))
		r.Post("/{id}/assign", h.assignTask)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(rbac.PermTaskCreate))
		r.Post("/", h.createTask)
	})
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid task id")
		return
	}
	task, err := h.service.GetTask(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"task": task})
}

func (h *Handler) listNeedingRevision(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	list, err := h.service.NeedingRevision(r.Context(), principal.UserID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tasks": list})
}

func (h *Handler) listPendingDocuments(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	list, err := h.service.PendingDocuments(r.Context(), principal.UserID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tasks": list})
}

func (h *Handler) countUnclaimed(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.UnclaimedCount(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"count": count})
}

func (h *Handler) claimTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid task id")
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.Claim(r.Context(), id, principal.UserID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

type assignRequest struct {
	AssigneeID int64 `json:"assignee_id" validate:"required,gt=0"`
}

func (h *Handler) assignTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid task id")
		return
	}
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.Assign(r.Context(), principal, id, req.AssigneeID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

type createTaskRequest struct {
	Title    string     `json:"title" validate:"required"`
	TypeID   int64      `json:"type_id" validate:"required,gt=0"`
	Deadline *time.Time `json:"deadline"`
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	task, err := h.service.Create(r.Context(), Task{Title: req.Title, TypeID: req.TypeID, Deadline: req.Deadline})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"task": task})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	case errors.Is(err, shared.ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
	default:
		h.logger.Error("tasks handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
