package domain

import "time"

type BookStatus string

const (
	BookStatusPublished   BookStatus = "published"
	BookStatusUnpublished BookStatus = "unpublished"
)

// Book represents a book listed on the store. Unpublishing keeps the row
// but hides it from the public catalog and the owner's default listing.
type Book struct {
	ID              int64
	Title           string
	Description     string
	AuthorID        int64
	AuthorPseudonym string
	CoverImage      string
	Price           string
	Status          BookStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
