package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wookie-books/internal/apperror"
	"wookie-books/internal/domain"
	"wookie-books/internal/repository"
	"wookie-books/internal/storage"
)

// fakeBookRepo is an in-memory repository.BookRepository.
type fakeBookRepo struct {
	nextID int64
	books  map[int64]*domain.Book
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{books: map[int64]*domain.Book{}}
}

func (f *fakeBookRepo) Init(context.Context) error { return nil }

func (f *fakeBookRepo) Create(_ context.Context, book *domain.Book) (int64, error) {
	for _, existing := range f.books {
		if existing.Title == book.Title && existing.AuthorID == book.AuthorID {
			return 0, fmt.Errorf("insert book: %w", repository.ErrDuplicate)
		}
	}
	f.nextID++
	book.ID = f.nextID
	clone := *book
	f.books[book.ID] = &clone
	return book.ID, nil
}

func (f *fakeBookRepo) GetPublished(_ context.Context, id int64) (*domain.Book, error) {
	book, ok := f.books[id]
	if !ok || book.Status != domain.BookStatusPublished {
		return nil, fmt.Errorf("book: %w", repository.ErrNotFound)
	}
	clone := *book
	return &clone, nil
}

func (f *fakeBookRepo) GetOwned(_ context.Context, id, authorID int64) (*domain.Book, error) {
	book, ok := f.books[id]
	if !ok || book.AuthorID != authorID {
		return nil, fmt.Errorf("book: %w", repository.ErrNotFound)
	}
	clone := *book
	return &clone, nil
}

func matchesSearch(book *domain.Book, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(book.Title), needle) ||
		strings.Contains(strings.ToLower(book.Description), needle) ||
		strings.Contains(strings.ToLower(book.AuthorPseudonym), needle)
}

func (f *fakeBookRepo) ListPublished(_ context.Context, search string) ([]domain.Book, error) {
	var books []domain.Book
	for id := int64(1); id <= f.nextID; id++ {
		book, ok := f.books[id]
		if ok && book.Status == domain.BookStatusPublished && matchesSearch(book, search) {
			books = append(books, *book)
		}
	}
	return books, nil
}

func (f *fakeBookRepo) ListByAuthor(_ context.Context, authorID int64, status domain.BookStatus, search string) ([]domain.Book, error) {
	var books []domain.Book
	for id := int64(1); id <= f.nextID; id++ {
		book, ok := f.books[id]
		if ok && book.AuthorID == authorID && book.Status == status && matchesSearch(book, search) {
			books = append(books, *book)
		}
	}
	return books, nil
}

func (f *fakeBookRepo) UpdateOwned(_ context.Context, id, authorID int64, update repository.BookUpdate) error {
	book, ok := f.books[id]
	if !ok || book.AuthorID != authorID {
		return fmt.Errorf("book: %w", repository.ErrNotFound)
	}
	if update.Title != nil {
		book.Title = *update.Title
	}
	if update.Description != nil {
		book.Description = *update.Description
	}
	if update.CoverImage != nil {
		book.CoverImage = *update.CoverImage
	}
	if update.Price != nil {
		book.Price = *update.Price
	}
	return nil
}

func (f *fakeBookRepo) SetStatusOwned(_ context.Context, id, authorID int64, status domain.BookStatus) error {
	book, ok := f.books[id]
	if !ok || book.AuthorID != authorID {
		return fmt.Errorf("book: %w", repository.ErrNotFound)
	}
	book.Status = status
	return nil
}

func (f *fakeBookRepo) ExistsByTitleAndAuthor(_ context.Context, title string, authorID int64) (bool, error) {
	for _, book := range f.books {
		if book.Title == title && book.AuthorID == authorID {
			return true, nil
		}
	}
	return false, nil
}

// fakeStorage records uploads and presigns deterministic URLs.
type fakeStorage struct {
	objects map[string][]byte
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) Upload(_ context.Context, input storage.UploadInput) (string, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return "", err
	}
	f.objects[input.Key] = data
	return input.Key, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) PresignURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://cdn.test/" + key, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type bookFixture struct {
	users   *fakeUserRepo
	books   *fakeBookRepo
	storage *fakeStorage
	svc     BookService
	luke    int64
	vader   int64
}

func newBookFixture(t *testing.T, store storage.Service) *bookFixture {
	t.Helper()
	users := newFakeUserRepo()
	books := newFakeBookRepo()

	luke := &domain.User{Username: "luke", AuthorPseudonym: "Luke Skywalker", PasswordHash: "x"}
	vader := &domain.User{Username: "anakin", AuthorPseudonym: "Darth Vader", PasswordHash: "x"}
	_, err := users.Create(context.Background(), luke)
	require.NoError(t, err)
	_, err = users.Create(context.Background(), vader)
	require.NoError(t, err)

	f := &bookFixture{
		users: users,
		books: books,
		svc:   NewBookService(books, users, store, testLogger(), []string{"Darth Vader"}),
		luke:  luke.ID,
		vader: vader.ID,
	}
	if fs, ok := store.(*fakeStorage); ok {
		f.storage = fs
	}
	return f
}

func validInput() CreateBookInput {
	return CreateBookInput{Title: "A New Hope", Description: "It is a period of civil war.", Price: "9.99"}
}

func TestCreateBook(t *testing.T) {
	f := newBookFixture(t, nil)

	book, err := f.svc.Create(context.Background(), f.luke, validInput())
	require.NoError(t, err)
	assert.Equal(t, "A New Hope", book.Title)
	assert.Equal(t, domain.BookStatusPublished, book.Status)
	assert.Equal(t, f.luke, book.AuthorID)
	assert.Equal(t, "Luke Skywalker", book.AuthorPseudonym)
}

func TestCreateBookBlockedPseudonym(t *testing.T) {
	f := newBookFixture(t, nil)

	_, err := f.svc.Create(context.Background(), f.vader, validInput())
	assert.True(t, apperror.IsAuthorization(err), "expected authorization error, got %v", err)

	// the rule fires even when the payload is invalid
	_, err = f.svc.Create(context.Background(), f.vader, CreateBookInput{})
	assert.True(t, apperror.IsAuthorization(err))

	assert.Empty(t, f.books.books, "nothing may be persisted for a blocked author")
}

func TestCreateBookBlockedPseudonymCaseInsensitive(t *testing.T) {
	users := newFakeUserRepo()
	books := newFakeBookRepo()
	sidious := &domain.User{Username: "sheev", AuthorPseudonym: "DARTH VADER", PasswordHash: "x"}
	_, err := users.Create(context.Background(), sidious)
	require.NoError(t, err)

	svc := NewBookService(books, users, nil, testLogger(), []string{"Darth Vader"})
	_, err = svc.Create(context.Background(), sidious.ID, validInput())
	assert.True(t, apperror.IsAuthorization(err))
}

func TestCreateBookValidation(t *testing.T) {
	f := newBookFixture(t, nil)

	tests := []struct {
		name  string
		input CreateBookInput
	}{
		{"missing title", CreateBookInput{Description: "d", Price: "1.00"}},
		{"long title", CreateBookInput{Title: strings.Repeat("x", 256), Description: "d", Price: "1.00"}},
		{"missing description", CreateBookInput{Title: "t", Price: "1.00"}},
		{"missing price", CreateBookInput{Title: "t", Description: "d"}},
		{"non-numeric price", CreateBookInput{Title: "t", Description: "d", Price: "free"}},
		{"too many decimals", CreateBookInput{Title: "t", Description: "d", Price: "1.999"}},
		{"too many digits", CreateBookInput{Title: "t", Description: "d", Price: "123456.00"}},
		{"negative price", CreateBookInput{Title: "t", Description: "d", Price: "-1.00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.luke, tt.input)
			assert.True(t, apperror.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestCreateBookPriceFormats(t *testing.T) {
	f := newBookFixture(t, nil)

	for i, price := range []string{"9.99", "42", "0.5", "12345.67"} {
		input := validInput()
		input.Title = fmt.Sprintf("Book %d", i)
		input.Price = price
		_, err := f.svc.Create(context.Background(), f.luke, input)
		assert.NoError(t, err, "price %q must be accepted", price)
	}
}

func TestCreateBookDuplicateTitle(t *testing.T) {
	f := newBookFixture(t, nil)

	_, err := f.svc.Create(context.Background(), f.luke, validInput())
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), f.luke, validInput())
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "already exists")
}

func TestCreateBookCoverWithoutStorage(t *testing.T) {
	f := newBookFixture(t, nil)

	input := validInput()
	input.Cover = &CoverUpload{Filename: "cover.png", Body: strings.NewReader("png")}
	_, err := f.svc.Create(context.Background(), f.luke, input)
	assert.True(t, apperror.IsValidation(err))
}

func TestCreateBookUploadsCover(t *testing.T) {
	f := newBookFixture(t, newFakeStorage())

	input := validInput()
	input.Cover = &CoverUpload{Filename: "cover.png", ContentType: "image/png", Body: strings.NewReader("png-bytes")}
	book, err := f.svc.Create(context.Background(), f.luke, input)
	require.NoError(t, err)

	require.Len(t, f.storage.objects, 1)
	for key, data := range f.storage.objects {
		assert.True(t, strings.HasSuffix(key, ".png"))
		assert.Equal(t, "png-bytes", string(data))
		assert.Equal(t, "https://cdn.test/"+key, book.CoverImage)
	}
}

func TestUpdateBookPartial(t *testing.T) {
	f := newBookFixture(t, nil)

	created, err := f.svc.Create(context.Background(), f.luke, validInput())
	require.NoError(t, err)

	price := "4.99"
	updated, err := f.svc.Update(context.Background(), f.luke, created.ID, UpdateBookInput{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "4.99", updated.Price)
	assert.Equal(t, "A New Hope", updated.Title, "unset fields stay unchanged")
	assert.Equal(t, "It is a period of civil war.", updated.Description)
}

func TestUpdateBookReplacesCover(t *testing.T) {
	f := newBookFixture(t, newFakeStorage())

	input := validInput()
	input.Cover = &CoverUpload{Filename: "old.png", Body: strings.NewReader("old")}
	created, err := f.svc.Create(context.Background(), f.luke, input)
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), f.luke, created.ID, UpdateBookInput{
		Cover: &CoverUpload{Filename: "new.png", Body: strings.NewReader("new")},
	})
	require.NoError(t, err)

	assert.Len(t, f.storage.objects, 1, "the previous cover is removed")
	assert.Len(t, f.storage.deleted, 1)
}

func TestUpdateBookOwnership(t *testing.T) {
	f := newBookFixture(t, nil)

	created, err := f.svc.Create(context.Background(), f.luke, validInput())
	require.NoError(t, err)

	title := "Stolen"
	_, err = f.svc.Update(context.Background(), f.vader, created.ID, UpdateBookInput{Title: &title})
	assert.True(t, apperror.IsNotFound(err), "foreign books must look missing")

	_, err = f.svc.Update(context.Background(), f.luke, 999, UpdateBookInput{Title: &title})
	assert.True(t, apperror.IsNotFound(err))
}

func TestUnpublish(t *testing.T) {
	f := newBookFixture(t, nil)

	created, err := f.svc.Create(context.Background(), f.luke, validInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.Unpublish(context.Background(), f.luke, created.ID))

	_, err = f.svc.GetPublished(context.Background(), created.ID)
	assert.True(t, apperror.IsNotFound(err), "unpublished books leave the catalog")

	own, err := f.svc.ListOwn(context.Background(), f.luke, "")
	require.NoError(t, err)
	assert.Empty(t, own)

	unpublished, err := f.svc.ListOwnUnpublished(context.Background(), f.luke)
	require.NoError(t, err)
	require.Len(t, unpublished, 1)
	assert.Equal(t, created.ID, unpublished[0].ID)

	// second call is idempotent
	require.NoError(t, f.svc.Unpublish(context.Background(), f.luke, created.ID))

	err = f.svc.Unpublish(context.Background(), f.vader, created.ID)
	assert.True(t, apperror.IsNotFound(err))
	err = f.svc.Unpublish(context.Background(), f.luke, 999)
	assert.True(t, apperror.IsNotFound(err))
}

func TestGetOwnOwnership(t *testing.T) {
	f := newBookFixture(t, nil)

	created, err := f.svc.Create(context.Background(), f.luke, validInput())
	require.NoError(t, err)

	book, err := f.svc.GetOwn(context.Background(), f.luke, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, book.ID)

	_, errForeign := f.svc.GetOwn(context.Background(), f.vader, created.ID)
	_, errMissing := f.svc.GetOwn(context.Background(), f.luke, 999)
	assert.True(t, apperror.IsNotFound(errForeign))
	assert.True(t, apperror.IsNotFound(errMissing))
	assert.Equal(t, errForeign.Error(), errMissing.Error(), "no distinguishable signal for foreign rows")
}
