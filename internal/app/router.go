package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Eric920418/Manpower-sub002/internal/api"
	"github.com/Eric920418/Manpower-sub002/internal/auth"
	"github.com/Eric920418/Manpower-sub002/internal/content"
	"github.com/Eric920418/Manpower-sub002/internal/notify"
	"github.com/Eric920418/Manpower-sub002/internal/observability"
	"github.com/Eric920418/Manpower-sub002/internal/rbac"
	"github.com/Eric920418/Manpower-sub002/internal/reminders"
	"github.com/Eric920418/Manpower-sub002/internal/shared"
	"github.com/Eric920418/Manpower-sub002/internal/tasks"
	"github.com/Eric920418/Manpower-sub002/internal/uploads"
	"github.com/Eric920418/Manpower-sub002/internal/users"
	"github.com/Eric920418/Manpower-sub002/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	TasksHandler       *tasks.Handler
	RemindersHandler   *reminders.Handler
	ContentHandler     *content.Handler
	UploadsHandler     *uploads.Handler
	PermissionsHandler *rbac.PermissionsHandler
	StreamHandler      *notify.StreamHandler
	APIHandler         *api.Handler
	JobHandler         *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/admin", func(r chi.Router) {
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/admin-tasks", params.TasksHandler.MountRoutes)
		r.Route("/reminders", params.RemindersHandler.MountRoutes)
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		r.Route("/content", params.ContentHandler.MountAdminRoutes)
		r.Route("/uploads", params.UploadsHandler.MountRoutes)
		if params.StreamHandler != nil {
			r.Route("/notifications", params.StreamHandler.MountRoutes)
		}
	})

	r.Route("/content", params.ContentHandler.MountPublicRoutes)
	r.Route("/api", params.APIHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
