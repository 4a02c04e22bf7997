package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/trashytalk/piwardrive-go/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background(), store.CoreMigrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestService(t *testing.T) (*Service, *UserStore) {
	t.Helper()
	us := NewUserStore(newTestStore(t))
	return NewService(us, zap.NewNop()), us
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter2", bcryptTestCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "hunter2") {
		t.Error("expected the correct password to check out")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("expected an incorrect password to fail")
	}
}

func TestGenerateTokenHashIsDeterministicFromRaw(t *testing.T) {
	raw, hash, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if raw == "" || hash == "" {
		t.Fatal("expected a non-empty raw token and hash")
	}
	if HashToken(raw) != hash {
		t.Error("HashToken(raw) should reproduce the hash GenerateToken returned")
	}
}

func TestServiceCreateUserAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "alice", "swordfish", RoleOperator); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	token, err := svc.Login(ctx, "alice", "swordfish")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	user, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("username = %q, want alice", user.Username)
	}
}

func TestServiceLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CreateUser(ctx, "bob", "correcthorse", RoleViewer); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := svc.Login(ctx, "bob", "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestServiceLoginUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Login(context.Background(), "nobody", "x"); err != ErrInvalidCredentials {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestServiceLogoutRevokesToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user, err := svc.CreateUser(ctx, "carol", "p4ssword", RoleAdmin)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, err := svc.Login(ctx, "carol", "p4ssword")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, token); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken after logout", err)
	}
}

func TestServiceAuthenticateDisabledUser(t *testing.T) {
	svc, us := newTestService(t)
	ctx := context.Background()
	user, err := svc.CreateUser(ctx, "dave", "letmein", RoleViewer)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, err := svc.Login(ctx, "dave", "letmein")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := us.db.GetWriter().ExecContext(ctx, `UPDATE users SET disabled = 1 WHERE id = ?`, user.ID); err != nil {
		t.Fatalf("disable user: %v", err)
	}

	if _, err := svc.Authenticate(ctx, token); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken for a disabled account", err)
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	svc, _ := newTestService(t)
	mw := Middleware(svc)
	called := false
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest("GET", "/status", http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if called {
		t.Error("handler ran without a valid token")
	}
}

func TestMiddlewareAllowsPublicPaths(t *testing.T) {
	svc, _ := newTestService(t)
	mw := Middleware(svc)
	called := false
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest("POST", "/token", http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if !called {
		t.Error("expected /token to bypass auth")
	}
}

func TestMiddlewareAcceptsBearerAndQueryToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CreateUser(ctx, "erin", "hunter22", RoleOperator); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, err := svc.Login(ctx, "erin", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	mw := Middleware(svc)
	var gotUser *User
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/status", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("bearer header: status = %d, want 200", w.Code)
	}
	if gotUser == nil || gotUser.Username != "erin" {
		t.Fatalf("expected authenticated user erin in context, got %+v", gotUser)
	}

	gotUser = nil
	req2 := httptest.NewRequest("GET", "/status?token="+token, http.NoBody)
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, req2)
	if w2.Code != http.StatusOK {
		t.Fatalf("query token: status = %d, want 200", w2.Code)
	}
	if gotUser == nil || gotUser.Username != "erin" {
		t.Fatalf("expected authenticated user erin via query token, got %+v", gotUser)
	}
}

func TestHandlerTokenEndpointRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CreateUser(ctx, "frank", "topsecret", RoleAdmin); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	h := NewHandler(svc, zap.NewNop())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	form := "username=frank&password=topsecret"
	req := httptest.NewRequest("POST", "/token", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestHandlerTokenEndpointRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewHandler(svc, zap.NewNop())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest("POST", "/token", strings.NewReader("username=ghost&password=nope"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestUserStoreCreateAndList(t *testing.T) {
	us := NewUserStore(newTestStore(t))
	ctx := context.Background()
	err := us.Create(ctx, User{
		ID: "u1", Username: "gail", PasswordHash: "hash", Role: RoleViewer,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	users, err := us.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 1 || users[0].Username != "gail" {
		t.Fatalf("users = %+v, want one user gail", users)
	}
}

// bcryptTestCost keeps password hashing fast in tests; the production
// default cost is used via HashPassword's cost==0 branch elsewhere.
const bcryptTestCost = 4
