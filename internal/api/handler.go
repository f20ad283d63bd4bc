package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Eric920418/Manpower-sub002/internal/platform/httpx"
	"github.com/Eric920418/Manpower-sub002/internal/rbac"
	"github.com/Eric920418/Manpower-sub002/internal/reminders"
	"github.com/Eric920418/Manpower-sub002/internal/shared"
	"github.com/Eric920418/Manpower-sub002/internal/tasks"
)

// TokenVerifier checks an API bearer token and returns the subject user id.
type TokenVerifier interface {
	Verify(raw string) (int64, rbac.Role, error)
}

// ReminderService is the slice of the reminders module the dispatcher needs.
type ReminderService interface {
	Create(ctx context.Context, userID, sourceTaskID int64, items []reminders.Input) ([]reminders.Reminder, error)
	Due(ctx context.Context, userID int64) ([]reminders.Reminder, error)
	MarkShown(ctx context.Context, userID int64, ids []int64) error
	Complete(ctx context.Context, userID, id, completedTaskID int64) error
	Dismiss(ctx context.Context, userID, id int64) error
}

// TaskService is the slice of the tasks module the dispatcher needs.
type TaskService interface {
	NeedingRevision(ctx context.Context, assigneeID int64) ([]tasks.Task, error)
	PendingDocuments(ctx context.Context, assigneeID int64) ([]tasks.Task, error)
	UnclaimedCount(ctx context.Context) (int, error)
}

// IdempotencyChecker guards retried mutations behind the Idempotency-Key
// header.
type IdempotencyChecker interface {
	CheckAndInsert(ctx context.Context, key, operation string) error
	Delete(ctx context.Context, key string) error
}

// Handler serves the fixed POST /api endpoint: one JSON envelope naming an
// operation plus its variables, authenticated by session cookie or bearer
// token.
type Handler struct {
	logger     *slog.Logger
	resolver   *rbac.Resolver
	principals rbac.PrincipalSource
	tokens     TokenVerifier
	reminders  ReminderService
	tasks      TaskService
	idem       IdempotencyChecker
	validate   *validator.Validate
}

// NewHandler builds a Handler instance. The idempotency checker is optional.
func NewHandler(logger *slog.Logger, resolver *rbac.Resolver, principals rbac.PrincipalSource, tokens TokenVerifier, reminderSvc ReminderService, taskSvc TaskService, idem IdempotencyChecker) *Handler {
	return &Handler{
		logger:     logger,
		resolver:   resolver,
		principals: principals,
		tokens:     tokens,
		reminders:  reminderSvc,
		tasks:      taskSvc,
		idem:       idem,
		validate:   validator.New(),
	}
}

// MountRoutes registers the dispatcher.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.dispatch)
}

type envelope struct {
	Operation string          `json:"operation" validate:"required"`
	Variables json.RawMessage `json:"variables"`
}

// mutations names the operations covered by idempotency keys.
var mutations = map[string]bool{
	"createReminders":    true,
	"markRemindersShown": true,
	"completeReminder":   true,
	"dismissReminder":    true,
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authenticate(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	var env envelope
	if err := httpx.DecodeJSON(r, &env); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validate.Struct(env); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	op, known := h.operations()[env.Operation]
	if !known {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown operation "+env.Operation)
		return
	}
	if op.perm != "" && !h.resolver.Allows(principal.Role, principal.Custom, op.perm) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey != "" && mutations[env.Operation] && h.idem != nil {
		err := h.idem.CheckAndInsert(r.Context(), idemKey, env.Operation)
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "duplicate": true})
			return
		}
		if err != nil {
			h.respondError(w, err)
			return
		}
	}

	result, err := op.run(r.Context(), principal, env.Variables)
	if err != nil {
		if idemKey != "" && mutations[env.Operation] && h.idem != nil {
			if delErr := h.idem.Delete(r.Context(), idemKey); delErr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type operation struct {
	perm rbac.Permission
	run  func(ctx context.Context, principal rbac.Principal, vars json.RawMessage) (any, error)
}

func (h *Handler) operations() map[string]operation {
	return map[string]operation{
		"me":                    {run: h.opMe},
		"dueReminders":          {perm: rbac.PermReminderRead, run: h.opDueReminders},
		"markRemindersShown":    {perm: rbac.PermReminderWrite, run: h.opMarkRemindersShown},
		"createReminders":       {perm: rbac.PermReminderWrite, run: h.opCreateReminders},
		"completeReminder":      {perm: rbac.PermReminderWrite, run: h.opCompleteReminder},
		"dismissReminder":       {perm: rbac.PermReminderWrite, run: h.opDismissReminder},
		"tasksNeedingRevision":  {perm: rbac.PermTaskRead, run: h.opTasksNeedingRevision},
		"tasksPendingDocuments": {perm: rbac.PermTaskRead, run: h.opTasksPendingDocuments},
		"unclaimedTaskCount":    {perm: rbac.PermTaskRead, run: h.opUnclaimedTaskCount},
	}
}

func (h *Handler) opMe(ctx context.Context, principal rbac.Principal, _ json.RawMessage) (any, error) {
	return map[string]any{
		"user_id":     principal.UserID,
		"role":        principal.Role,
		"permissions": h.resolver.EffectivePermissions(principal.Role, principal.Custom).List(),
	}, nil
}

func (h *Handler) opDueReminders(ctx context.Context, principal rbac.Principal, _ json.RawMessage) (any, error) {
	due, err := h.reminders.Due(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	if due == nil {
		due = []reminders.Reminder{}
	}
	return map[string]any{"reminders": due}, nil
}

type markShownVars struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

func (h *Handler) opMarkRemindersShown(ctx context.Context, principal rbac.Principal, vars json.RawMessage) (any, error) {
	var v markShownVars
	if err := h.decodeVars(vars, &v); err != nil {
		return nil, err
	}
	if err := h.reminders.MarkShown(ctx, principal.UserID, v.IDs); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}

type createRemindersVars struct {
	SourceTaskID int64             `json:"sourceTaskId" validate:"required,gt=0"`
	Items        []reminders.Input `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) opCreateReminders(ctx context.Context, principal rbac.Principal, vars json.RawMessage) (any, error) {
	var v createRemindersVars
	if err := h.decodeVars(vars, &v); err != nil {
		return nil, err
	}
	created, err := h.reminders.Create(ctx, principal.UserID, v.SourceTaskID, v.Items)
	if err != nil {
		return nil, err
	}
	return map[string]any{"reminders": created}, nil
}

type completeReminderVars struct {
	ID              int64 `json:"id" validate:"required,gt=0"`
	CompletedTaskID int64 `json:"completedTaskId" validate:"required,gt=0"`
}

func (h *Handler) opCompleteReminder(ctx context.Context, principal rbac.Principal, vars json.RawMessage) (any, error) {
	var v completeReminderVars
	if err := h.decodeVars(vars, &v); err != nil {
		return nil, err
	}
	if err := h.reminders.Complete(ctx, principal.UserID, v.ID, v.CompletedTaskID); err != nil {
		return nil, err
	}
	return h.refreshedDue(ctx, principal.UserID)
}

type dismissReminderVars struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

func (h *Handler) opDismissReminder(ctx context.Context, principal rbac.Principal, vars json.RawMessage) (any, error) {
	var v dismissReminderVars
	if err := h.decodeVars(vars, &v); err != nil {
		return nil, err
	}
	if err := h.reminders.Dismiss(ctx, principal.UserID, v.ID); err != nil {
		return nil, err
	}
	return h.refreshedDue(ctx, principal.UserID)
}

// refreshedDue returns the post-mutation due list so clients can update
// without waiting for the next poll cycle.
func (h *Handler) refreshedDue(ctx context.Context, userID int64) (any, error) {
	due, err := h.reminders.Due(ctx, userID)
	if err != nil {
		return nil, err
	}
	if due == nil {
		due = []reminders.Reminder{}
	}
	return map[string]any{"ok": true, "reminders": due}, nil
}

func (h *Handler) opTasksNeedingRevision(ctx context.Context, principal rbac.Principal, _ json.RawMessage) (any, error) {
	list, err := h.tasks.NeedingRevision(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []tasks.Task{}
	}
	return map[string]any{"tasks": list}, nil
}

func (h *Handler) opTasksPendingDocuments(ctx context.Context, principal rbac.Principal, _ json.RawMessage) (any, error) {
	list, err := h.tasks.PendingDocuments(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []tasks.Task{}
	}
	return map[string]any{"tasks": list}, nil
}

func (h *Handler) opUnclaimedTaskCount(ctx context.Context, _ rbac.Principal, _ json.RawMessage) (any, error) {
	count, err := h.tasks.UnclaimedCount(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": count}, nil
}

var errBadVariables = errors.New("api: invalid variables")

func (h *Handler) decodeVars(vars json.RawMessage, dest any) error {
	if len(vars) == 0 {
		return errBadVariables
	}
	if err := json.Unmarshal(vars, dest); err != nil {
		return errBadVariables
	}
	if err := h.validate.Struct(dest); err != nil {
		return errBadVariables
	}
	return nil
}

// authenticate resolves the caller from a bearer token when present, and
// from the session cookie otherwise.
func (h *Handler) authenticate(r *http.Request) (rbac.Principal, bool) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		userID, _, err := h.tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return rbac.Principal{}, false
		}
		return h.loadPrincipal(r.Context(), userID)
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return rbac.Principal{}, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return rbac.Principal{}, false
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return rbac.Principal{}, false
	}
	return h.loadPrincipal(r.Context(), userID)
}

func (h *Handler) loadPrincipal(ctx context.Context, userID int64) (rbac.Principal, bool) {
	principal, err := h.principals.PrincipalByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrForbidden) {
			h.logger.Error("api load principal", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return rbac.Principal{}, false
	}
	return principal, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBadVariables):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid variables")
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	case errors.Is(err, shared.ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
	default:
		h.logger.Error("api dispatch", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
