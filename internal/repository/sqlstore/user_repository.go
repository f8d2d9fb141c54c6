package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"wookie-books/internal/domain"
	"wookie-books/internal/repository"
)

const createUsersTableTmpl = `
CREATE TABLE IF NOT EXISTS users (
	%s,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	author_pseudonym TEXT NOT NULL UNIQUE,
	created_at %s NOT NULL,
	updated_at %s NOT NULL
);
`

type userRow struct {
	ID              int64     `db:"id"`
	Username        string    `db:"username"`
	PasswordHash    string    `db:"password_hash"`
	AuthorPseudonym string    `db:"author_pseudonym"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:              r.ID,
		Username:        r.Username,
		PasswordHash:    r.PasswordHash,
		AuthorPseudonym: r.AuthorPseudonym,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	ts := timestampType(r.db)
	stmt := fmt.Sprintf(createUsersTableTmpl, idColumn(r.db), ts, ts)
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := r.db.Rebind(`
INSERT INTO users (username, password_hash, author_pseudonym, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`)

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		user.Username,
		user.PasswordHash,
		user.AuthorPseudonym,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert user: %w", repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	user.ID = id
	return id, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT id, username, password_hash, author_pseudonym, created_at, updated_at FROM users WHERE username = ?`, username)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, `SELECT id, username, password_hash, author_pseudonym, created_at, updated_at FROM users WHERE id = ?`, id)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	user := row.toDomain()
	return &user, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT COUNT(1) FROM users WHERE username = ?`, username)
}

func (r *UserRepository) ExistsByPseudonym(ctx context.Context, pseudonym string) (bool, error) {
	return r.exists(ctx, `SELECT COUNT(1) FROM users WHERE author_pseudonym = ?`, pseudonym)
}

func (r *UserRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), arg); err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	err := r.db.SelectContext(ctx, &rows, `
SELECT id, username, password_hash, author_pseudonym, created_at, updated_at
FROM users
ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}

	users := make([]domain.User, len(rows))
	for i, row := range rows {
		users[i] = row.toDomain()
	}
	return users, nil
}
