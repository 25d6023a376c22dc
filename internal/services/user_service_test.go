package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
)

func newUserService(t *testing.T) *UserService {
	t.Helper()
	return &UserService{DB: newServiceDB(t), BcryptCost: bcrypt.MinCost}
}

func TestUserService_CreateAndVerify(t *testing.T) {
	ctx := context.Background()
	s := newUserService(t)

	u, err := s.Create(ctx, NewUser{Name: " Ana  Lima ", Email: " Ana@Example.com", Password: "s3cret", Department: "finance"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", u.Name)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEqual(t, "s3cret", u.PasswordHash)

	got, err := s.Verify(ctx, "ANA@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Verify(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Verify(ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Create(ctx, NewUser{Name: "Other", Email: "ana@example.com", Password: "x", Department: "legal"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	s := newUserService(t)

	cases := map[string]NewUser{
		"missing name":       {Email: "a@example.com", Password: "x", Department: "d"},
		"missing email":      {Name: "A", Password: "x", Department: "d"},
		"bad email":          {Name: "A", Email: "not-an-email", Password: "x", Department: "d"},
		"missing department": {Name: "A", Email: "a@example.com", Password: "x"},
		"missing password":   {Name: "A", Email: "a@example.com", Department: "d"},
		"bad role":           {Name: "A", Email: "a@example.com", Password: "x", Department: "d", Role: "root"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Create(ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()
	s := newUserService(t)
	a, err := s.Create(ctx, NewUser{Name: "Ana", Email: "ana@example.com", Password: "x", Department: "finance"})
	require.NoError(t, err)
	_, err = s.Create(ctx, NewUser{Name: "Bo", Email: "bo@example.com", Password: "x", Department: "legal"})
	require.NoError(t, err)

	got, err := s.Update(ctx, a.ID, UserUpdate{Department: "legal", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, "legal", got.Department)
	assert.Equal(t, domain.RoleAdmin, got.Role)

	_, err = s.Update(ctx, a.ID, UserUpdate{Email: "bo@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	_, err = s.Update(ctx, "missing", UserUpdate{Name: "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	users, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()
	s := newUserService(t)
	alloc := NewAllocator(s.DB)

	admin := seedIdentity(t, s.DB, "Root", "root@example.com", "ops", domain.RoleAdmin)
	holder := seedIdentity(t, s.DB, "Ana", "ana@example.com", "finance", domain.RoleUser)
	author := seedIdentity(t, s.DB, "Bo", "bo@example.com", "finance", domain.RoleUser)

	_, err := alloc.Reserve(ctx, holder, domain.DocumentIn, 2)
	require.NoError(t, err)
	_, err = alloc.RegisterDocument(ctx, author, RegisterInput{Number: "0003", Title: "Doc", Type: domain.DocumentIn})
	require.NoError(t, err)

	_, err = s.Delete(ctx, admin, admin.ID)
	assert.ErrorIs(t, err, ErrSelfDelete)

	_, err = s.Delete(ctx, admin, author.ID)
	assert.ErrorIs(t, err, ErrUserInUse)

	deleted, err := s.Delete(ctx, admin, holder.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", deleted.Email)
	assert.Empty(t, reservationNumbers(t, s.DB))
	assert.Equal(t, domain.ClaimKind(""), claimKind(t, s.DB, "0001"))

	_, err = s.Delete(ctx, admin, holder.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	s := newUserService(t)
	u, err := s.Create(ctx, NewUser{Name: "Ana", Email: "ana@example.com", Password: "old", Department: "finance"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.ChangePassword(ctx, u.ID, "wrong", "new"), ErrInvalidCredentials)
	assert.ErrorIs(t, s.ChangePassword(ctx, u.ID, "old", ""), ErrValidation)
	require.NoError(t, s.ChangePassword(ctx, u.ID, "old", "new"))

	_, err = s.Verify(ctx, "ana@example.com", "new")
	require.NoError(t, err)
	_, err = s.Verify(ctx, "ana@example.com", "old")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	s := newUserService(t)

	created, err := s.EnsureAdmin(ctx, "", "admin@example.com", "pw", "")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnsureAdmin(ctx, "", "admin@example.com", "pw", "")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := s.Verify(ctx, "admin@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)
	assert.Equal(t, "Administration", u.Department)
}
