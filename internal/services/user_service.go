// Package services – UserService
//
// This file implements UserService: account creation, profile reads, admin
// edits and deletion, and password changes. Passwords are stored as bcrypt
// digests.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
	"github.com/tbourn/go-docregistry-backend/internal/repo"
)

// NewUser carries the fields of an account to create. An empty Role means
// domain.RoleUser.
type NewUser struct {
	Name       string
	Email      string
	Password   string
	Role       domain.Role
	Department string
}

// UserUpdate carries an admin edit. Empty fields keep their current value.
type UserUpdate struct {
	Name       string
	Email      string
	Role       domain.Role
	Department string
}

// UserService manages accounts.
type UserService struct {
	DB *gorm.DB
	// BcryptCost is the hashing cost; values outside bcrypt's range fall back
	// to bcrypt.DefaultCost.
	BcryptCost int
}

// Create validates in and stores a new account.
func (s *UserService) Create(ctx context.Context, in NewUser) (*domain.User, error) {
	name := clip(normalizeText(in.Name), maxFieldRunes)
	email := normalizeEmail(in.Email)
	dept := clip(normalizeText(in.Department), maxFieldRunes)
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if err := validateAccount(name, email, dept, role); err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Department:   dept,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateUser(ctx, s.DB, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// Get loads the account with the given id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// List returns every account, newest first.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return repo.ListUsers(ctx, s.DB)
}

// Update applies an admin edit to the account with the given id.
func (s *UserService) Update(ctx context.Context, id string, in UserUpdate) (*domain.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v := clip(normalizeText(in.Name), maxFieldRunes); v != "" {
		u.Name = v
	}
	if v := normalizeEmail(in.Email); v != "" {
		u.Email = v
	}
	if in.Role != "" {
		u.Role = in.Role
	}
	if v := clip(normalizeText(in.Department), maxFieldRunes); v != "" {
		u.Department = v
	}
	if err := validateAccount(u.Name, u.Email, u.Department, u.Role); err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Now().UTC()
	if err := repo.SaveUser(ctx, s.DB, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// Delete removes the account with the given id together with its
// reservations, whose numbers are released. The caller cannot delete their
// own account, and accounts that registered documents are kept.
func (s *UserService) Delete(ctx context.Context, caller domain.Identity, id string) (*domain.User, error) {
	if id == caller.ID {
		return nil, ErrSelfDelete
	}
	var deleted *domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := repo.GetUser(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		docs, err := repo.CountDocuments(ctx, tx, id, "")
		if err != nil {
			return err
		}
		if docs > 0 {
			return ErrUserInUse
		}
		held, err := repo.ListReservations(ctx, tx, repo.ReservationFilter{UserID: id})
		if err != nil {
			return err
		}
		for _, r := range held {
			if err := repo.DeleteReservation(ctx, tx, r.ID); err != nil {
				return err
			}
			if err := repo.ReleaseNumber(ctx, tx, r.Number); err != nil {
				return err
			}
		}
		if err := repo.DeleteUser(ctx, tx, id); err != nil {
			return err
		}
		deleted = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// ChangePassword replaces the caller's password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if next == "" {
		return fmt.Errorf("%w: new password is required", ErrValidation)
	}
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := s.hash(next)
	if err != nil {
		return err
	}
	return repo.UpdatePassword(ctx, s.DB, userID, hash)
}

// Verify returns the account for email when password matches. Unknown
// emails and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) Verify(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// EnsureAdmin creates an admin account for email unless one with that email
// already exists. It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password, department string) (bool, error) {
	if _, err := repo.GetUserByEmail(ctx, s.DB, email); err == nil {
		return false, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return false, err
	}
	if name == "" {
		name = "Administrator"
	}
	if department == "" {
		department = "Administration"
	}
	_, err := s.Create(ctx, NewUser{
		Name:       name,
		Email:      email,
		Password:   password,
		Role:       domain.RoleAdmin,
		Department: department,
	})
	if errors.Is(err, ErrEmailTaken) {
		return false, nil
	}
	return err == nil, err
}

func (s *UserService) hash(password string) (string, error) {
	cost := s.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password is too long", ErrValidation)
		}
		return "", err
	}
	return string(b), nil
}

func validateAccount(name, email, dept string, role domain.Role) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case email == "":
		return fmt.Errorf("%w: email is required", ErrValidation)
	case dept == "":
		return fmt.Errorf("%w: department is required", ErrValidation)
	case role != domain.RoleUser && role != domain.RoleAdmin:
		return fmt.Errorf("%w: role must be user or admin", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: email is invalid", ErrValidation)
	}
	return nil
}
