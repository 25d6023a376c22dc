package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
	"github.com/tbourn/go-docregistry-backend/internal/services"
	"github.com/tbourn/go-docregistry-backend/internal/tokens"
)

func TestLogin(t *testing.T) {
	hs := newHarness(t)
	exp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	hs.auth.login = func(_ context.Context, email, pw string) (*services.Session, error) {
		if email != "alice@example.com" || pw != "pw-123456" {
			return nil, services.ErrInvalidCredentials
		}
		return &services.Session{
			Token:     "tok",
			ExpiresAt: exp,
			User:      &domain.User{ID: alice.ID, Name: alice.Name, Email: alice.Email, Department: alice.Department, Role: alice.Role},
		}, nil
	}

	w := hs.do(t, http.MethodPost, "/auth/login", "", `{"email":"alice@example.com","password":"pw-123456"}`)
	wantStatus(t, w, http.StatusOK)
	resp := decode[LoginResponse](t, w)
	if resp.Token != "tok" || !resp.ExpiresAt.Equal(exp) || resp.User.Department != "Finance" || resp.User.Role != domain.RoleUser {
		t.Fatalf("resp=%+v", resp)
	}
	if last := hs.audit.last(); last.typ != domain.LogAuth || last.who.ID != alice.ID || last.action != "User logged in" {
		t.Fatalf("audit=%+v", last)
	}

	wantCode(t, hs.do(t, http.MethodPost, "/auth/login", "", `{"email":"alice@example.com","password":"nope"}`), http.StatusUnauthorized, ErrCodeInvalidCredentials)
	wantCode(t, hs.do(t, http.MethodPost, "/auth/login", "", `{"email":"alice@example.com"}`), http.StatusBadRequest, ErrCodeBadRequest)
}

func TestRegister(t *testing.T) {
	hs := newHarness(t)
	var got services.NewUser
	hs.auth.register = func(_ context.Context, in services.NewUser) (*domain.User, error) {
		got = in
		return &domain.User{ID: "u-bob", Name: in.Name, Email: in.Email, Department: in.Department, Role: domain.RoleUser}, nil
	}

	w := hs.do(t, http.MethodPost, "/auth/register", "", `{"name":"Bob","email":"bob@example.com","password":"pw-123456","department":"Legal"}`)
	wantStatus(t, w, http.StatusCreated)
	if m := decode[MessageResponse](t, w); m.Message != "User created successfully" {
		t.Fatalf("message=%q", m.Message)
	}
	if got.Department != "Legal" || got.Role != "" {
		t.Fatalf("input=%+v", got)
	}

	wantCode(t, hs.do(t, http.MethodPost, "/auth/register", "", `{"name":"Bob","email":"bob@example.com","password":"pw-123456"}`), http.StatusBadRequest, ErrCodeBadRequest)

	hs.auth.register = func(context.Context, services.NewUser) (*domain.User, error) { return nil, services.ErrEmailTaken }
	wantCode(t, hs.do(t, http.MethodPost, "/auth/register", "", `{"name":"Bob","email":"bob@example.com","password":"pw-123456","department":"Legal"}`), http.StatusConflict, ErrCodeEmailTaken)
}

func TestLogout_PassesClaims(t *testing.T) {
	hs := newHarness(t)
	var got *tokens.Claims
	hs.auth.logout = func(_ context.Context, cl *tokens.Claims) error {
		got = cl
		return nil
	}

	wantCode(t, hs.do(t, http.MethodPost, "/auth/logout", "", nil), http.StatusUnauthorized, ErrCodeUnauthorized)

	w := hs.do(t, http.MethodPost, "/auth/logout", "alice", nil)
	wantStatus(t, w, http.StatusOK)
	if got == nil || got.ID != "jti-"+alice.ID {
		t.Fatalf("claims=%+v", got)
	}

	hs.auth.logout = func(context.Context, *tokens.Claims) error { return errBoom }
	wantCode(t, hs.do(t, http.MethodPost, "/auth/logout", "alice", nil), http.StatusInternalServerError, ErrCodeInternal)
}
