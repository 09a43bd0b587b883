package repositories

import (
	"dm-chat/domain"
	apperrors "dm-chat/errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func newUserRepository(t *testing.T) *UserRepository {
	t.Helper()
	repo, err := NewUserRepository(newTestDB(t), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestUserRepository_Create_And_Lookup(t *testing.T) {
	req := require.New(t)
	repo := newUserRepository(t)

	created, err := repo.Create(domain.User{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$fake",
	})
	req.NoError(err)
	req.Positive(created.ID)
	req.False(created.RegisteredAt.IsZero())

	byID, err := repo.GetByID(created.ID)
	req.NoError(err)
	req.Equal("ada@example.com", byID.Email)

	// Email lookup is case-insensitive
	byEmail, err := repo.GetByEmail("ADA@Example.COM")
	req.NoError(err)
	req.Equal(created.ID, byEmail.ID)
}

func TestUserRepository_Rejects_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	repo := newUserRepository(t)

	_, err := repo.Create(domain.User{Email: "taken@example.com", PasswordHash: "x"})
	req.NoError(err)

	_, err = repo.Create(domain.User{Email: "Taken@example.com", PasswordHash: "y"})
	req.ErrorIs(err, apperrors.ErrEmailTaken)
}

func TestUserRepository_Unknown_User(t *testing.T) {
	req := require.New(t)
	repo := newUserRepository(t)

	_, err := repo.GetByID(404)
	req.ErrorIs(err, apperrors.ErrUserNotFound)
	_, err = repo.GetByEmail("nobody@example.com")
	req.ErrorIs(err, apperrors.ErrUserNotFound)
}

func TestUserRepository_List_Excludes_The_Caller(t *testing.T) {
	req := require.New(t)
	repo := newUserRepository(t)

	alice, err := repo.Create(domain.User{Email: "alice@example.com", PasswordHash: "x"})
	req.NoError(err)
	bob, err := repo.Create(domain.User{Email: "bob@example.com", PasswordHash: "x"})
	req.NoError(err)

	users, err := repo.List(alice.ID)
	req.NoError(err)
	req.Len(users, 1)
	req.Equal(bob.ID, users[0].ID)
}
