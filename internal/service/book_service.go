package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"wookie-books/internal/apperror"
	"wookie-books/internal/domain"
	"wookie-books/internal/repository"
	"wookie-books/internal/storage"
)

// priceFormat matches a decimal amount with up to 7 digits, 2 of them after
// the point (e.g. "9.99", "12345.00", "42").
var priceFormat = regexp.MustCompile(`^\d{1,5}(\.\d{1,2})?$`)

const (
	maxTitleLength = 255
	coverURLTTL    = 15 * time.Minute
)

// CoverUpload is an incoming cover image file.
type CoverUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// CreateBookInput carries the fields of a new book.
type CreateBookInput struct {
	Title       string
	Description string
	Price       string
	Cover       *CoverUpload
}

// UpdateBookInput carries a partial update; nil fields stay unchanged.
type UpdateBookInput struct {
	Title       *string
	Description *string
	Price       *string
	Cover       *CoverUpload
}

// BookService coordinates catalog reads and per-author book management.
type BookService interface {
	ListPublished(ctx context.Context, search string) ([]domain.Book, error)
	GetPublished(ctx context.Context, id int64) (*domain.Book, error)

	Create(ctx context.Context, authorID int64, input CreateBookInput) (*domain.Book, error)
	ListOwn(ctx context.Context, authorID int64, search string) ([]domain.Book, error)
	ListOwnUnpublished(ctx context.Context, authorID int64) ([]domain.Book, error)
	GetOwn(ctx context.Context, authorID, id int64) (*domain.Book, error)
	Update(ctx context.Context, authorID, id int64, input UpdateBookInput) (*domain.Book, error)
	Unpublish(ctx context.Context, authorID, id int64) error
}

type bookService struct {
	books             repository.BookRepository
	users             repository.UserRepository
	storage           storage.Service
	logger            *logrus.Logger
	blockedPseudonyms []string
}

// NewBookService builds a BookService. store may be nil, in which case cover
// image uploads are rejected. blockedPseudonyms lists author pseudonyms that
// are never allowed to publish, matched case-insensitively.
func NewBookService(books repository.BookRepository, users repository.UserRepository, store storage.Service, logger *logrus.Logger, blockedPseudonyms []string) BookService {
	return &bookService{
		books:             books,
		users:             users,
		storage:           store,
		logger:            logger,
		blockedPseudonyms: blockedPseudonyms,
	}
}

func (s *bookService) ListPublished(ctx context.Context, search string) ([]domain.Book, error) {
	books, err := s.books.ListPublished(ctx, search)
	if err != nil {
		return nil, apperror.NewInternal("list books", err)
	}
	return s.presentBooks(ctx, books), nil
}

func (s *bookService) GetPublished(ctx context.Context, id int64) (*domain.Book, error) {
	book, err := s.books.GetPublished(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NewNotFound("book not found", err)
		}
		return nil, apperror.NewInternal("load book", err)
	}
	s.presentCover(ctx, book)
	return book, nil
}

func (s *bookService) Create(ctx context.Context, authorID int64, input CreateBookInput) (*domain.Book, error) {
	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NewAuthentication("unknown user", err)
		}
		return nil, apperror.NewInternal("load author", err)
	}

	// the block rule runs first, before validation and before anything is
	// persisted, payload validity notwithstanding
	if s.isBlocked(author.AuthorPseudonym) {
		return nil, apperror.NewAuthorization(
			fmt.Sprintf("%s is not allowed to publish books", author.AuthorPseudonym), nil)
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Price = strings.TrimSpace(input.Price)

	if input.Title == "" {
		return nil, apperror.NewValidation("title is required", nil)
	}
	if len(input.Title) > maxTitleLength {
		return nil, apperror.NewValidation("title must be at most 255 characters", nil)
	}
	if input.Description == "" {
		return nil, apperror.NewValidation("description is required", nil)
	}
	if input.Price == "" {
		return nil, apperror.NewValidation("price is required", nil)
	}
	if !priceFormat.MatchString(input.Price) {
		return nil, apperror.NewValidation("price must be a decimal amount like 9.99", nil)
	}

	if exists, err := s.books.ExistsByTitleAndAuthor(ctx, input.Title, authorID); err != nil {
		return nil, apperror.NewInternal("check title", err)
	} else if exists {
		return nil, apperror.NewValidation("book already exists for the user", nil)
	}

	coverKey := ""
	if input.Cover != nil {
		coverKey, err = s.uploadCover(ctx, input.Cover)
		if err != nil {
			return nil, err
		}
	}

	book := &domain.Book{
		Title:           input.Title,
		Description:     input.Description,
		AuthorID:        authorID,
		AuthorPseudonym: author.AuthorPseudonym,
		CoverImage:      coverKey,
		Price:           input.Price,
		Status:          domain.BookStatusPublished,
	}

	if _, err := s.books.Create(ctx, book); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.NewValidation("book already exists for the user", err)
		}
		return nil, apperror.NewInternal("create book", err)
	}
	s.presentCover(ctx, book)
	return book, nil
}

func (s *bookService) ListOwn(ctx context.Context, authorID int64, search string) ([]domain.Book, error) {
	books, err := s.books.ListByAuthor(ctx, authorID, domain.BookStatusPublished, search)
	if err != nil {
		return nil, apperror.NewInternal("list books", err)
	}
	return s.presentBooks(ctx, books), nil
}

func (s *bookService) ListOwnUnpublished(ctx context.Context, authorID int64) ([]domain.Book, error) {
	books, err := s.books.ListByAuthor(ctx, authorID, domain.BookStatusUnpublished, "")
	if err != nil {
		return nil, apperror.NewInternal("list books", err)
	}
	return s.presentBooks(ctx, books), nil
}

func (s *bookService) GetOwn(ctx context.Context, authorID, id int64) (*domain.Book, error) {
	// someone else's book answers exactly like a missing one
	book, err := s.books.GetOwned(ctx, id, authorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NewNotFound("book not found", err)
		}
		return nil, apperror.NewInternal("load book", err)
	}
	s.presentCover(ctx, book)
	return book, nil
}

func (s *bookService) Update(ctx context.Context, authorID, id int64, input UpdateBookInput) (*domain.Book, error) {
	update := repository.BookUpdate{}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperror.NewValidation("title must not be empty", nil)
		}
		if len(title) > maxTitleLength {
			return nil, apperror.NewValidation("title must be at most 255 characters", nil)
		}
		update.Title = &title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, apperror.NewValidation("description must not be empty", nil)
		}
		update.Description = &description
	}
	if input.Price != nil {
		price := strings.TrimSpace(*input.Price)
		if !priceFormat.MatchString(price) {
			return nil, apperror.NewValidation("price must be a decimal amount like 9.99", nil)
		}
		update.Price = &price
	}

	previousCover := ""
	if input.Cover != nil {
		// ownership is settled before the new cover is stored, so an
		// outsider's request uploads nothing
		current, err := s.books.GetOwned(ctx, id, authorID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperror.NewNotFound("book not found", err)
			}
			return nil, apperror.NewInternal("load book", err)
		}
		previousCover = current.CoverImage

		key, err := s.uploadCover(ctx, input.Cover)
		if err != nil {
			return nil, err
		}
		update.CoverImage = &key
	}

	if err := s.books.UpdateOwned(ctx, id, authorID, update); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.NewNotFound("book not found", err)
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperror.NewValidation("book already exists for the user", err)
		default:
			return nil, apperror.NewInternal("update book", err)
		}
	}

	if update.CoverImage != nil && previousCover != "" && previousCover != *update.CoverImage {
		if err := s.storage.Delete(ctx, previousCover); err != nil {
			s.logger.WithError(err).Warn("delete replaced cover")
		}
	}

	book, err := s.books.GetOwned(ctx, id, authorID)
	if err != nil {
		return nil, apperror.NewInternal("load book", err)
	}
	s.presentCover(ctx, book)
	return book, nil
}

func (s *bookService) Unpublish(ctx context.Context, authorID, id int64) error {
	// a single UPDATE keyed on (id, author_id); already-unpublished rows
	// still match, which makes the operation idempotent
	err := s.books.SetStatusOwned(ctx, id, authorID, domain.BookStatusUnpublished)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NewNotFound("book not found", err)
		}
		return apperror.NewInternal("unpublish book", err)
	}
	return nil
}

func (s *bookService) uploadCover(ctx context.Context, cover *CoverUpload) (string, error) {
	if s.storage == nil {
		return "", apperror.NewValidation("cover image uploads are not enabled", nil)
	}

	key := uuid.NewString() + strings.ToLower(filepath.Ext(cover.Filename))
	stored, err := s.storage.Upload(ctx, storage.UploadInput{
		Key:         key,
		Body:        cover.Body,
		ContentType: cover.ContentType,
	})
	if err != nil {
		return "", apperror.NewInternal("store cover image", err)
	}
	return stored, nil
}

// presentCover swaps a stored cover key for a time-limited download URL.
func (s *bookService) presentCover(ctx context.Context, book *domain.Book) {
	if s.storage == nil || book.CoverImage == "" {
		return
	}
	url, err := s.storage.PresignURL(ctx, book.CoverImage, coverURLTTL)
	if err != nil {
		s.logger.WithError(err).Warn("presign cover url")
		return
	}
	book.CoverImage = url
}

func (s *bookService) presentBooks(ctx context.Context, books []domain.Book) []domain.Book {
	for i := range books {
		s.presentCover(ctx, &books[i])
	}
	return books
}

func (s *bookService) isBlocked(pseudonym string) bool {
	for _, blocked := range s.blockedPseudonyms {
		if strings.EqualFold(strings.TrimSpace(blocked), pseudonym) {
			return true
		}
	}
	return false
}
