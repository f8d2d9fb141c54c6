package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"wookie-books/internal/apperror"
	"wookie-books/internal/domain"
	"wookie-books/internal/repository"
)

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	nextID int64
	users  map[int64]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*domain.User{}}
}

func (f *fakeUserRepo) Init(context.Context) error { return nil }

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) (int64, error) {
	for _, existing := range f.users {
		if existing.Username == user.Username || existing.AuthorPseudonym == user.AuthorPseudonym {
			return 0, fmt.Errorf("insert user: %w", repository.ErrDuplicate)
		}
	}
	f.nextID++
	user.ID = f.nextID
	clone := *user
	f.users[user.ID] = &clone
	return user.ID, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	for _, user := range f.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) ExistsByPseudonym(_ context.Context, pseudonym string) (bool, error) {
	for _, user := range f.users {
		if user.AuthorPseudonym == pseudonym {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) List(context.Context) ([]domain.User, error) {
	users := make([]domain.User, 0, len(f.users))
	for _, user := range f.users {
		users = append(users, *user)
	}
	return users, nil
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	user, err := svc.Register(ctx, "luke", "pw123secret", "Luke Skywalker")
	require.NoError(t, err)
	assert.Equal(t, "luke", user.Username)
	assert.Equal(t, "Luke Skywalker", user.AuthorPseudonym)
	assert.Empty(t, user.PasswordHash, "hash must not leave the service")

	stored := repo.users[user.ID]
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pw123secret")))
	assert.NotEqual(t, "pw123secret", stored.PasswordHash)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newFakeUserRepo())

	tests := []struct {
		name      string
		username  string
		password  string
		pseudonym string
	}{
		{"missing username", "", "longenough", "Luke Skywalker"},
		{"missing password", "luke", "", "Luke Skywalker"},
		{"missing pseudonym", "luke", "longenough", ""},
		{"short username", "lu", "longenough", "Luke Skywalker"},
		{"short password", "luke", "short", "Luke Skywalker"},
		{"short pseudonym", "luke", "longenough", "L"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.password, tt.pseudonym)
			assert.True(t, apperror.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestRegisterDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	_, err := svc.Register(ctx, "luke", "pw123secret", "Luke Skywalker")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "luke", "otherpassword", "Different Name")
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "username")

	_, err = svc.Register(ctx, "leia", "otherpassword", "Luke Skywalker")
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "author_pseudonym")

	assert.Len(t, repo.users, 1, "failed registrations must not create users")
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	_, err := svc.Register(ctx, "luke", "pw123secret", "Luke Skywalker")
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "luke", "pw123secret")
	require.NoError(t, err)
	assert.Equal(t, "luke", user.Username)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.Authenticate(ctx, "luke", "wrongpassword")
	assert.True(t, apperror.IsAuthentication(err))

	_, err = svc.Authenticate(ctx, "vader", "pw123secret")
	assert.True(t, apperror.IsAuthentication(err), "unknown username must fail the same way")

	_, err = svc.Authenticate(ctx, "", "")
	assert.True(t, apperror.IsAuthentication(err))
}

func TestListHidesPasswordHashes(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	for i := 0; i < 3; i++ {
		_, err := svc.Register(ctx, fmt.Sprintf("user%d", i), "pw123secret", fmt.Sprintf("Author %d", i))
		require.NoError(t, err)
	}

	users, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	for _, user := range users {
		assert.Empty(t, user.PasswordHash)
		assert.True(t, strings.HasPrefix(user.Username, "user"))
	}
}
