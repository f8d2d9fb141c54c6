package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"wookie-books/internal/apperror"
	"wookie-books/internal/domain"
	"wookie-books/internal/repository"
)

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, username, password, pseudonym string) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) Register(ctx context.Context, username, password, pseudonym string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	pseudonym = strings.TrimSpace(pseudonym)

	if username == "" {
		return nil, apperror.NewValidation("username is required", nil)
	}
	if password == "" {
		return nil, apperror.NewValidation("password is required", nil)
	}
	if pseudonym == "" {
		return nil, apperror.NewValidation("author_pseudonym is required", nil)
	}
	if len(username) < 3 {
		return nil, apperror.NewValidation("username must be at least 3 characters", nil)
	}
	if len(pseudonym) < 3 {
		return nil, apperror.NewValidation("author_pseudonym must be at least 3 characters", nil)
	}
	if len(password) < 8 {
		return nil, apperror.NewValidation("password must be at least 8 characters", nil)
	}

	if taken, err := s.users.ExistsByUsername(ctx, username); err != nil {
		return nil, apperror.NewInternal("check username", err)
	} else if taken {
		return nil, apperror.NewValidation("username already exists", nil)
	}
	if taken, err := s.users.ExistsByPseudonym(ctx, pseudonym); err != nil {
		return nil, apperror.NewInternal("check author_pseudonym", err)
	} else if taken {
		return nil, apperror.NewValidation("author_pseudonym already exists", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.NewInternal("hash password", fmt.Errorf("hash password: %w", err))
	}

	user := &domain.User{
		Username:        username,
		PasswordHash:    string(hash),
		AuthorPseudonym: pseudonym,
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		// the unique index is the backstop for concurrent registrations
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.NewValidation("username or author_pseudonym already exists", err)
		}
		return nil, apperror.NewInternal("create user", err)
	}

	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, apperror.NewAuthentication("invalid credentials", nil)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NewAuthentication("invalid credentials", nil)
		}
		return nil, apperror.NewInternal("load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.NewAuthentication("invalid credentials", nil)
	}

	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NewNotFound("user not found", err)
		}
		return nil, apperror.NewInternal("load user", err)
	}
	return sanitizeUser(user), nil
}

func (s *userService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal("list users", err)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clone := *user
	clone.PasswordHash = ""
	return &clone
}
