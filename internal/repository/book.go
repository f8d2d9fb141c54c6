package repository

import (
	"context"

	"wookie-books/internal/domain"
)

// BookUpdate carries the fields of a partial book update. Nil means "leave
// unchanged".
type BookUpdate struct {
	Title       *string
	Description *string
	CoverImage  *string
	Price       *string
}

// BookRepository exposes persistence operations for Book aggregates.
type BookRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, book *domain.Book) (int64, error)
	// GetPublished returns a published book by id; unpublished rows behave
	// as absent.
	GetPublished(ctx context.Context, id int64) (*domain.Book, error)
	// GetOwned returns a book by id only when it belongs to authorID.
	GetOwned(ctx context.Context, id, authorID int64) (*domain.Book, error)
	// ListPublished returns published books, optionally filtered by a
	// case-insensitive substring match over title, description and author
	// pseudonym. Ordered by id ascending.
	ListPublished(ctx context.Context, search string) ([]domain.Book, error)
	// ListByAuthor returns the author's books in the given status, ordered
	// by id ascending. A non-empty search filters like ListPublished.
	ListByAuthor(ctx context.Context, authorID int64, status domain.BookStatus, search string) ([]domain.Book, error)
	// UpdateOwned applies a partial update to a book owned by authorID in a
	// single statement. Returns ErrNotFound when no row matches.
	UpdateOwned(ctx context.Context, id, authorID int64, update BookUpdate) error
	// SetStatusOwned sets the publication status of a book owned by
	// authorID in a single statement. Returns ErrNotFound when no row
	// matches; setting the current status again is not an error.
	SetStatusOwned(ctx context.Context, id, authorID int64, status domain.BookStatus) error
	ExistsByTitleAndAuthor(ctx context.Context, title string, authorID int64) (bool, error)
}
