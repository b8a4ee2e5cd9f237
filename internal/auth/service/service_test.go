package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/invoicely/internal/auth/domain"
	"github.com/smallbiznis/invoicely/internal/auth/repository"
	"github.com/smallbiznis/invoicely/internal/clock"
	"github.com/smallbiznis/invoicely/internal/config"
	"github.com/smallbiznis/invoicely/pkg/db"
	"go.uber.org/zap"
)

type testEnv struct {
	svc   authdomain.Service
	repo  authdomain.Repository
	clock *clock.FakeClock
}

func newTestService(t *testing.T) testEnv {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&authdomain.User{}, &authdomain.Session{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo, sessionRepo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		Log:         zap.NewNop(),
		Cfg:         config.Config{SessionTTL: 24 * time.Hour},
		Clock:       clk,
		Repo:        repo,
		SessionRepo: sessionRepo,
		GenID:       node,
	})
	return testEnv{svc: svc, repo: repo, clock: clk}
}

func (e testEnv) createUser(t *testing.T, email, status string, expires *time.Time) *authdomain.User {
	t.Helper()
	user, err := e.svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:           email,
		Password:        "correct-password",
		Status:          status,
		AccessExpiresAt: expires,
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func (e testEnv) login(email, pass string) (*authdomain.LoginResult, error) {
	return e.svc.Login(context.Background(), authdomain.LoginRequest{Email: email, Password: pass})
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestService(t)
	env.createUser(t, "alice@example.com", authdomain.StatusActive, nil)

	_, err := env.login("alice@example.com", "wrong-password")
	if !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	_, err = env.login("nobody@example.com", "correct-password")
	if !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestCreateUserDefaults(t *testing.T) {
	env := newTestService(t)

	user := env.createUser(t, "  Bob@Example.com ", "", nil)
	if user.Email != "bob@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.Role != authdomain.RoleUser || user.Status != authdomain.StatusPending {
		t.Fatalf("expected pending user role, got %s/%s", user.Role, user.Status)
	}
	if user.FullName != "bob" {
		t.Fatalf("expected display name from email, got %q", user.FullName)
	}
	if user.PasswordHash == "correct-password" || user.PasswordHash == "" {
		t.Fatalf("expected hashed password")
	}

	_, err := env.svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "bob@example.com",
		Password: "another-password",
	})
	if !errors.Is(err, authdomain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	_, err = env.svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "short@example.com",
		Password: "short",
	})
	if !errors.Is(err, authdomain.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	_, err = env.svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "root@example.com",
		Password: "long-enough-password",
		Role:     "root",
	})
	if !errors.Is(err, authdomain.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestLoginRejectsInactiveAccounts(t *testing.T) {
	env := newTestService(t)
	past := env.clock.Now().Add(-time.Hour)

	env.createUser(t, "pending@example.com", authdomain.StatusPending, nil)
	env.createUser(t, "suspended@example.com", authdomain.StatusSuspended, nil)
	env.createUser(t, "expired@example.com", authdomain.StatusActive, &past)

	cases := map[string]error{
		"pending@example.com":   authdomain.ErrAccountPending,
		"suspended@example.com": authdomain.ErrAccountSuspended,
		"expired@example.com":   authdomain.ErrAccessExpired,
	}
	for email, want := range cases {
		if _, err := env.login(email, "correct-password"); !errors.Is(err, want) {
			t.Fatalf("%s: expected %v, got %v", email, want, err)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestService(t)
	user := env.createUser(t, "carol@example.com", authdomain.StatusActive, nil)

	res, err := env.login("carol@example.com", "correct-password")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.RawToken == "" || !res.ExpiresAt.Equal(env.clock.Now().Add(24*time.Hour)) {
		t.Fatalf("unexpected login result: %+v", res)
	}

	principal, err := env.svc.Authenticate(context.Background(), res.RawToken)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if principal.User.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, principal.User.ID)
	}

	if err := env.svc.Logout(context.Background(), res.RawToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := env.svc.Authenticate(context.Background(), res.RawToken); !errors.Is(err, authdomain.ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
	if _, err := env.svc.Authenticate(context.Background(), "garbage"); !errors.Is(err, authdomain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestAuthenticateRechecksAccount(t *testing.T) {
	env := newTestService(t)
	expires := env.clock.Now().Add(48 * time.Hour)
	user := env.createUser(t, "dave@example.com", authdomain.StatusActive, &expires)

	res, err := env.login("dave@example.com", "correct-password")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	env.clock.Advance(12 * time.Hour)
	if _, err := env.svc.Authenticate(context.Background(), res.RawToken); err != nil {
		t.Fatalf("expected live session, got %v", err)
	}

	if err := env.repo.UpdateFields(context.Background(), user.ID, map[string]any{"status": authdomain.StatusSuspended}); err != nil {
		t.Fatalf("suspend failed: %v", err)
	}
	if _, err := env.svc.Authenticate(context.Background(), res.RawToken); !errors.Is(err, authdomain.ErrAccountSuspended) {
		t.Fatalf("expected ErrAccountSuspended, got %v", err)
	}

	env.clock.Advance(24 * time.Hour)
	if _, err := env.svc.Authenticate(context.Background(), res.RawToken); !errors.Is(err, authdomain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestService(t)
	user := env.createUser(t, "erin@example.com", authdomain.StatusActive, nil)

	if err := env.svc.ChangePassword(context.Background(), user.ID, "brand-new-password"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	if _, err := env.login("erin@example.com", "correct-password"); !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("old password should fail, got %v", err)
	}
	if _, err := env.login("erin@example.com", "brand-new-password"); err != nil {
		t.Fatalf("new password should work, got %v", err)
	}
}
