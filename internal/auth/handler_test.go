package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/Eric920418/Manpower-sub002/internal/auth"
	"github.com/Eric920418/Manpower-sub002/internal/rbac"
	"github.com/Eric920418/Manpower-sub002/internal/shared"
	_ "github.com/Eric920418/Manpower-sub002/testing"
)

type stubRepo struct {
	user           *auth.User
	deletedSession string
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	s.deletedSession = id
	return nil
}

func (s *stubRepo) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	tokens := auth.NewTokenIssuer("jwtsecret", time.Hour)
	handler := auth.NewHandler(nil, auth.NewService(repo, tokens), sessionManager, csrfManager)
	return handler, sessionManager
}

func doLogin(t *testing.T, handler *auth.Handler, sessionManager *shared.SessionManager, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)
	if err := sessionManager.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	return res, sess
}

func TestLoginSuccessBindsSession(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &stubRepo{user: &auth.User{
		ID:           42,
		Email:        "staff@agency.test",
		Name:         "Staff",
		Role:         rbac.RoleStaff,
		PasswordHash: string(hash),
		IsActive:     true,
	}}
	handler, sessionManager := newAuthHandler(t, repo)

	res, sess := doLogin(t, handler, sessionManager, `{"email":"staff@agency.test","password":"secret-password"}`)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if sess.User() != "42" {
		t.Fatalf("expected session bound to user 42, got %q", sess.User())
	}
	if !strings.Contains(res.Body.String(), `"token"`) {
		t.Fatalf("expected token in response body")
	}
	if flash := sess.PopFlash(); flash == nil || !strings.Contains(flash.Message, "歡迎回來") {
		t.Fatalf("expected welcome flash after login")
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &stubRepo{user: &auth.User{
		ID:           42,
		Email:        "staff@agency.test",
		Name:         "Staff",
		Role:         rbac.RoleStaff,
		PasswordHash: string(hash),
		IsActive:     true,
	}}
	handler, sessionManager := newAuthHandler(t, repo)

	_, sess := doLogin(t, handler, sessionManager, `{"email":"staff@agency.test","password":"secret-password"}`)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()
	handler.LogoutForTest(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if repo.deletedSession != sess.ID {
		t.Fatalf("expected session %q removed from the registry, got %q", sess.ID, repo.deletedSession)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{})

	res, sess := doLogin(t, handler, sessionManager, `{"email":"nobody@agency.test","password":"wrong-password"}`)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if sess.User() != "" {
		t.Fatalf("session must stay anonymous on failure")
	}
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{})

	res, _ := doLogin(t, handler, sessionManager, `{"email":"not-an-email"}`)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := auth.NewTokenIssuer("jwtsecret", time.Hour)
	raw, err := tokens.Issue(&auth.User{ID: 7, Role: rbac.RoleAdmin})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, role, err := tokens.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id != 7 || role != rbac.RoleAdmin {
		t.Fatalf("unexpected claims: id=%d role=%s", id, role)
	}
	if _, _, err := tokens.Verify(raw + "tampered"); err == nil {
		t.Fatalf("tampered token must fail verification")
	}
}
