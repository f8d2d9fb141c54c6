package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"wookie-books/internal/domain"
	"wookie-books/internal/repository"
)

const createBooksTableTmpl = `
CREATE TABLE IF NOT EXISTS books (
	%s,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	author_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	cover_image TEXT NOT NULL DEFAULT '',
	price TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	UNIQUE (title, author_id)
);
CREATE INDEX IF NOT EXISTS idx_books_author_id ON books(author_id);
`

const bookColumns = `b.id, b.title, b.description, b.author_id, u.author_pseudonym, b.cover_image, b.price, b.status, b.created_at, b.updated_at`

type bookRow struct {
	ID              int64     `db:"id"`
	Title           string    `db:"title"`
	Description     string    `db:"description"`
	AuthorID        int64     `db:"author_id"`
	AuthorPseudonym string    `db:"author_pseudonym"`
	CoverImage      string    `db:"cover_image"`
	Price           string    `db:"price"`
	Status          string    `db:"status"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r bookRow) toDomain() domain.Book {
	return domain.Book{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		AuthorID:        r.AuthorID,
		AuthorPseudonym: r.AuthorPseudonym,
		CoverImage:      r.CoverImage,
		Price:           r.Price,
		Status:          domain.BookStatus(r.Status),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type BookRepository struct {
	db *sqlx.DB
}

func NewBookRepository(db *sqlx.DB) repository.BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) Init(ctx context.Context) error {
	ts := timestampType(r.db)
	stmt := fmt.Sprintf(createBooksTableTmpl, idColumn(r.db), ts, ts)
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create books table: %w", err)
	}
	return nil
}

func (r *BookRepository) Create(ctx context.Context, book *domain.Book) (int64, error) {
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now

	query := r.db.Rebind(`
INSERT INTO books (title, description, author_id, cover_image, price, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`)

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		book.Title,
		book.Description,
		book.AuthorID,
		book.CoverImage,
		book.Price,
		string(book.Status),
		book.CreatedAt,
		book.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert book: %w", repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert book: %w", err)
	}

	book.ID = id
	return id, nil
}

func (r *BookRepository) GetPublished(ctx context.Context, id int64) (*domain.Book, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM books b
JOIN users u ON u.id = b.author_id
WHERE b.id = ? AND b.status = ?`, bookColumns)

	return r.getOne(ctx, query, id, string(domain.BookStatusPublished))
}

func (r *BookRepository) GetOwned(ctx context.Context, id, authorID int64) (*domain.Book, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM books b
JOIN users u ON u.id = b.author_id
WHERE b.id = ? AND b.author_id = ?`, bookColumns)

	return r.getOne(ctx, query, id, authorID)
}

func (r *BookRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Book, error) {
	var row bookRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("book: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("query book: %w", err)
	}
	book := row.toDomain()
	return &book, nil
}

func (r *BookRepository) ListPublished(ctx context.Context, search string) ([]domain.Book, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM books b
JOIN users u ON u.id = b.author_id
WHERE b.status = ?`, bookColumns)
	args := []any{string(domain.BookStatusPublished)}

	query, args = appendSearch(query, args, search)
	query += ` ORDER BY b.id ASC`

	return r.list(ctx, query, args...)
}

func (r *BookRepository) ListByAuthor(ctx context.Context, authorID int64, status domain.BookStatus, search string) ([]domain.Book, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM books b
JOIN users u ON u.id = b.author_id
WHERE b.author_id = ? AND b.status = ?`, bookColumns)
	args := []any{authorID, string(status)}

	query, args = appendSearch(query, args, search)
	query += ` ORDER BY b.id ASC`

	return r.list(ctx, query, args...)
}

func appendSearch(query string, args []any, search string) (string, []any) {
	search = strings.TrimSpace(search)
	if search == "" {
		return query, args
	}
	pattern := "%" + strings.ToLower(search) + "%"
	query += ` AND (LOWER(b.title) LIKE ? OR LOWER(b.description) LIKE ? OR LOWER(u.author_pseudonym) LIKE ?)`
	return query, append(args, pattern, pattern, pattern)
}

func (r *BookRepository) list(ctx context.Context, query string, args ...any) ([]domain.Book, error) {
	var rows []bookRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}

	books := make([]domain.Book, len(rows))
	for i, row := range rows {
		books[i] = row.toDomain()
	}
	return books, nil
}

func (r *BookRepository) UpdateOwned(ctx context.Context, id, authorID int64, update repository.BookUpdate) error {
	set := []string{"updated_at=?"}
	args := []any{time.Now().UTC()}

	if update.Title != nil {
		set = append(set, "title=?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		set = append(set, "description=?")
		args = append(args, *update.Description)
	}
	if update.CoverImage != nil {
		set = append(set, "cover_image=?")
		args = append(args, *update.CoverImage)
	}
	if update.Price != nil {
		set = append(set, "price=?")
		args = append(args, *update.Price)
	}

	query := fmt.Sprintf(`UPDATE books SET %s WHERE id=? AND author_id=?`, strings.Join(set, ", "))
	args = append(args, id, authorID)

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update book: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("update book: %w", err)
	}
	return requireRow(res)
}

func (r *BookRepository) SetStatusOwned(ctx context.Context, id, authorID int64, status domain.BookStatus) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
UPDATE books
SET status=?, updated_at=?
WHERE id=? AND author_id=?`),
		string(status),
		time.Now().UTC(),
		id,
		authorID,
	)
	if err != nil {
		return fmt.Errorf("update book status: %w", err)
	}
	return requireRow(res)
}

func (r *BookRepository) ExistsByTitleAndAuthor(ctx context.Context, title string, authorID int64) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(1) FROM books WHERE title = ? AND author_id = ?`), title, authorID)
	if err != nil {
		return false, fmt.Errorf("count books: %w", err)
	}
	return count > 0, nil
}

func requireRow(res sql.Result) error {
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("book: %w", repository.ErrNotFound)
	}
	return nil
}
