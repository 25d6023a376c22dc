// Package services – AuthService
//
// This file implements sign-in, self-registration and sign-out on top of
// UserService, the token manager and the optional Redis revocation list.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
	"github.com/tbourn/go-docregistry-backend/internal/sessions"
	"github.com/tbourn/go-docregistry-backend/internal/tokens"
)

// Session is the result of a successful sign-in.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// AuthService authenticates callers and manages access tokens.
type AuthService struct {
	Users   *UserService
	Tokens  *tokens.Manager
	Revoker *sessions.Revoker
}

// Login verifies the credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if normalizeEmail(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.Users.Verify(ctx, email, password)
	if err != nil {
		return nil, err
	}
	raw, claims, err := s.Tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: raw, ExpiresAt: claims.ExpiresAt.Time, User: u}, nil
}

// Register creates a regular account. The role is always domain.RoleUser.
func (s *AuthService) Register(ctx context.Context, in NewUser) (*domain.User, error) {
	in.Role = domain.RoleUser
	return s.Users.Create(ctx, in)
}

// Authenticate verifies a bearer token and loads the caller it belongs to.
// Revoked tokens and tokens of deleted users are rejected with
// tokens.ErrInvalidToken.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (domain.Identity, *tokens.Claims, error) {
	claims, err := s.Tokens.Parse(raw)
	if err != nil {
		return domain.Identity{}, nil, err
	}
	revoked, err := s.Revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return domain.Identity{}, nil, err
	}
	if revoked {
		return domain.Identity{}, nil, tokens.ErrInvalidToken
	}
	u, err := s.Users.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return domain.Identity{}, nil, tokens.ErrInvalidToken
		}
		return domain.Identity{}, nil, err
	}
	return domain.IdentityOf(*u), claims, nil
}

// Logout revokes the token described by claims for the rest of its lifetime.
// Without Redis this is a no-op and the token stays valid until it expires.
func (s *AuthService) Logout(ctx context.Context, claims *tokens.Claims) error {
	if claims == nil {
		return nil
	}
	return s.Revoker.Revoke(ctx, claims.ID, s.Tokens.Remaining(claims))
}
