package uploads

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Eric920418/Manpower-sub002/internal/platform/httpx"
	"github.com/Eric920418/Manpower-sub002/internal/rbac"
	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

// Handler serves upload endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers upload routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(rbac.PermUploadRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.download)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(rbac.PermUploadWrite))
		r.Post("/", h.upload)
		r.Delete("/{id}", h.remove)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	list, pagination, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if list == nil {
		list = []Upload{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"uploads": list, "pagination": pagination})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing file field")
		return
	}
	defer file.Close()

	principal, _ := rbac.PrincipalFromContext(r.Context())
	contentType := header.Header.Get("Content-Type")
	upload, err := h.service.Store(r.Context(), file, header.Filename, contentType, principal.UserID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"upload": upload})
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid upload id")
		return
	}
	upload, reader, err := h.service.Open(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	defer reader.Close()
	w.Header().Set("Content-Type", upload.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+upload.FileName+`"`)
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("stream upload", slog.Any("error", err))
	}
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid upload id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
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
		h.logger.Error("uploads handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
