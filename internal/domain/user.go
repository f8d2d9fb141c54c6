package domain

import "time"

// User represents a registered author of the bookstore.
type User struct {
	ID              int64
	Username        string
	PasswordHash    string
	AuthorPseudonym string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
