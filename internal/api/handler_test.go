package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eric920418/Manpower-sub002/internal/auth"
	"github.com/Eric920418/Manpower-sub002/internal/rbac"
	"github.com/Eric920418/Manpower-sub002/internal/reminders"
	"github.com/Eric920418/Manpower-sub002/internal/shared"
	"github.com/Eric920418/Manpower-sub002/internal/tasks"
)

type stubPrincipals struct {
	principals map[int64]rbac.Principal
}

func (s stubPrincipals) PrincipalByID(ctx context.Context, userID int64) (rbac.Principal, error) {
	principal, ok := s.principals[userID]
	if !ok {
		return rbac.Principal{}, shared.ErrNotFound
	}
	return principal, nil
}

type stubReminderService struct {
	due       []reminders.Reminder
	dismissed []int64
	shown     [][]int64
}

func (s *stubReminderService) Create(ctx context.Context, userID, sourceTaskID int64, items []reminders.Input) ([]reminders.Reminder, error) {
	out := make([]reminders.Reminder, len(items))
	for i, item := range items {
		out[i] = reminders.Reminder{ID: int64(i + 1), UserID: userID, SourceTaskID: sourceTaskID, TaskTypeID: item.TaskTypeID, TaskTypeLabel: item.Label, State: reminders.StateOpen}
	}
	return out, nil
}

func (s *stubReminderService) Due(ctx context.Context, userID int64) ([]reminders.Reminder, error) {
	return s.due, nil
}

func (s *stubReminderService) MarkShown(ctx context.Context, userID int64, ids []int64) error {
	s.shown = append(s.shown, ids)
	return nil
}

func (s *stubReminderService) Complete(ctx context.Context, userID, id, completedTaskID int64) error {
	return nil
}

func (s *stubReminderService) Dismiss(ctx context.Context, userID, id int64) error {
	s.dismissed = append(s.dismissed, id)
	kept := s.due[:0]
	for _, reminder := range s.due {
		if reminder.ID != id {
			kept = append(kept, reminder)
		}
	}
	s.due = kept
	return nil
}

type stubTaskService struct {
	unclaimed int
}

func (s *stubTaskService) NeedingRevision(ctx context.Context, assigneeID int64) ([]tasks.Task, error) {
	return nil, nil
}

func (s *stubTaskService) PendingDocuments(ctx context.Context, assigneeID int64) ([]tasks.Task, error) {
	return nil, nil
}

func (s *stubTaskService) UnclaimedCount(ctx context.Context) (int, error) {
	return s.unclaimed, nil
}

type memIdempotency struct {
	keys map[string]bool
}

func (m *memIdempotency) CheckAndInsert(ctx context.Context, key, operation string) error {
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memIdempotency) Delete(ctx context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

func newTestHandler(t *testing.T, remindersSvc *stubReminderService, tasksSvc *stubTaskService, idem IdempotencyChecker) (*Handler, *auth.TokenIssuer) {
	t.Helper()
	issuer := auth.NewTokenIssuer("test-secret-test-secret-test-1234", time.Hour)
	principals := stubPrincipals{principals: map[int64]rbac.Principal{
		1: {UserID: 1, Role: rbac.RoleStaff},
		2: {UserID: 2, Role: rbac.RoleAdmin},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := rbac.NewResolver(rbac.DefaultTable())
	return NewHandler(logger, resolver, principals, issuer, remindersSvc, tasksSvc, idem), issuer
}

func doDispatch(t *testing.T, handler *Handler, token string, body map[string]any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.dispatch(rec, req)
	return rec
}

func bearerFor(t *testing.T, issuer *auth.TokenIssuer, userID int64, role rbac.Role) string {
	t.Helper()
	token, err := issuer.Issue(&auth.User{ID: userID, Role: role})
	require.NoError(t, err)
	return token
}

func TestDispatchMe(t *testing.T) {
	handler, issuer := newTestHandler(t, &stubReminderService{}, &stubTaskService{}, nil)
	token := bearerFor(t, issuer, 1, rbac.RoleStaff)

	rec := doDispatch(t, handler, token, map[string]any{"operation": "me"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		UserID      int64    `json:"user_id"`
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.UserID)
	assert.Equal(t, "STAFF", resp.Role)
	assert.Contains(t, resp.Permissions, "reminder:read")
	assert.NotContains(t, resp.Permissions, "user:manage")
}

func TestDispatchRejectsAnonymous(t *testing.T) {
	handler, _ := newTestHandler(t, &stubReminderService{}, &stubTaskService{}, nil)
	rec := doDispatch(t, handler, "", map[string]any{"operation": "me"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDispatchRejectsUnknownOperation(t *testing.T) {
	handler, issuer := newTestHandler(t, &stubReminderService{}, &stubTaskService{}, nil)
	token := bearerFor(t, issuer, 1, rbac.RoleStaff)
	rec := doDispatch(t, handler, token, map[string]any{"operation": "dropAllTables"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatchDueRemindersAndMarkShown(t *testing.T) {
	remindersSvc := &stubReminderService{due: []reminders.Reminder{
		{ID: 4, UserID: 1, TaskTypeID: 7, TaskTypeLabel: "聘僱許可函", State: reminders.StateOpen},
	}}
	handler, issuer := newTestHandler(t, remindersSvc, &stubTaskService{}, nil)
	token := bearerFor(t, issuer, 1, rbac.RoleStaff)

	rec := doDispatch(t, handler, token, map[string]any{"operation": "dueReminders"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "聘僱許可函")

	rec = doDispatch(t, handler, token, map[string]any{
		"operation": "markRemindersShown",
		"variables": map[string]any{"ids": []int64{4}},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [][]int64{{4}}, remindersSvc.shown)
}

func TestDispatchDismissReturnsRefreshedDueList(t *testing.T) {
	remindersSvc := &stubReminderService{due: []reminders.Reminder{
		{ID: 4, UserID: 1, TaskTypeID: 7, TaskTypeLabel: "聘僱許可函", State: reminders.StateOpen},
		{ID: 5, UserID: 1, TaskTypeID: 8, TaskTypeLabel: "居留證展延", State: reminders.StateOpen},
	}}
	handler, issuer := newTestHandler(t, remindersSvc, &stubTaskService{}, nil)
	token := bearerFor(t, issuer, 1, rbac.RoleStaff)

	rec := doDispatch(t, handler, token, map[string]any{
		"operation": "dismissReminder",
		"variables": map[string]any{"id": 4},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "聘僱許可函")
	assert.Contains(t, rec.Body.String(), "居留證展延")
}

func TestDispatchUnclaimedTaskCount(t *testing.T) {
	handler, issuer := newTestHandler(t, &stubReminderService{}, &stubTaskService{unclaimed: 5}, nil)
	token := bearerFor(t, issuer, 2, rbac.RoleAdmin)

	rec := doDispatch(t, handler, token, map[string]any{"operation": "unclaimedTaskCount"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":5}`, rec.Body.String())
}

func TestDispatchValidatesVariables(t *testing.T) {
	handler, issuer := newTestHandler(t, &stubReminderService{}, &stubTaskService{}, nil)
	token := bearerFor(t, issuer, 1, rbac.RoleStaff)

	rec := doDispatch(t, handler, token, map[string]any{
		"operation": "dismissReminder",
		"variables": map[string]any{"id": 0},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatchIdempotencyKeyShortCircuitsRetry(t *testing.T) {
	remindersSvc := &stubReminderService{}
	handler, issuer := newTestHandler(t, remindersSvc, &stubTaskService{}, &memIdempotency{})
	token := bearerFor(t, issuer, 1, rbac.RoleStaff)

	body := map[string]any{
		"operation": "dismissReminder",
		"variables": map[string]any{"id": 9},
	}
	header := map[string]string{"Idempotency-Key": "retry-1"}

	rec := doDispatch(t, handler, token, body, header)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int64{9}, remindersSvc.dismissed)

	rec = doDispatch(t, handler, token, body, header)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "duplicate")
	assert.Equal(t, []int64{9}, remindersSvc.dismissed, "retry must not re-run the mutation")
}

func TestDispatchRejectsTamperedToken(t *testing.T) {
	handler, issuer := newTestHandler(t, &stubReminderService{}, &stubTaskService{}, nil)
	token := bearerFor(t, issuer, 1, rbac.RoleStaff)
	rec := doDispatch(t, handler, token+"x", map[string]any{"operation": "me"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
