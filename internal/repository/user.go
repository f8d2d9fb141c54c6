package repository

import (
	"context"
	"errors"

	"wookie-books/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist, or exists but
// is not visible to the caller.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("already exists")

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByPseudonym(ctx context.Context, pseudonym string) (bool, error)
	List(ctx context.Context) ([]domain.User, error)
}
