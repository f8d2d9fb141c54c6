package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"wookie-books/internal/apperror"
	"wookie-books/internal/domain"
	"wookie-books/internal/service"
)

type bookResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CoverImage  string `json:"cover_image"`
	Price       string `json:"price"`
}

func bookToResponse(book domain.Book) bookResponse {
	return bookResponse{
		ID:          book.ID,
		Title:       book.Title,
		Description: book.Description,
		CoverImage:  book.CoverImage,
		Price:       book.Price,
	}
}

func booksToResponse(books []domain.Book) []bookResponse {
	resp := make([]bookResponse, len(books))
	for i := range books {
		resp[i] = bookToResponse(books[i])
	}
	return resp
}

func (h *Handler) listBooks(c *gin.Context) {
	books, err := h.books.ListPublished(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booksToResponse(books))
}

func (h *Handler) getBook(c *gin.Context) {
	id, ok := h.bookID(c)
	if !ok {
		return
	}

	book, err := h.books.GetPublished(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookToResponse(*book))
}

func (h *Handler) listMyBooks(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}

	books, err := h.books.ListOwn(c.Request.Context(), userID, c.Query("search"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booksToResponse(books))
}

func (h *Handler) createBook(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}

	cover, closeCover, err := h.formCover(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer closeCover()

	input := service.CreateBookInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Price:       c.PostForm("price"),
		Cover:       cover,
	}

	book, err := h.books.Create(c.Request.Context(), userID, input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bookToResponse(*book))
}

func (h *Handler) getMyBook(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.bookID(c)
	if !ok {
		return
	}

	book, err := h.books.GetOwn(c.Request.Context(), userID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookToResponse(*book))
}

type updateBookRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Price       *string `json:"price"`
}

func (h *Handler) updateMyBook(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.bookID(c)
	if !ok {
		return
	}

	var input service.UpdateBookInput
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		cover, closeCover, err := h.formCover(c)
		if err != nil {
			h.writeError(c, err)
			return
		}
		defer closeCover()

		input.Title = optionalForm(c, "title")
		input.Description = optionalForm(c, "description")
		input.Price = optionalForm(c, "price")
		input.Cover = cover
	} else {
		var req updateBookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.writeError(c, apperror.NewValidation("invalid request body", err))
			return
		}
		input.Title = req.Title
		input.Description = req.Description
		input.Price = req.Price
	}

	book, err := h.books.Update(c.Request.Context(), userID, id, input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookToResponse(*book))
}

func (h *Handler) unpublishMyBook(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.bookID(c)
	if !ok {
		return
	}

	if err := h.books.Unpublish(c.Request.Context(), userID, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unpublished": id})
}

func (h *Handler) listMyUnpublishedBooks(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}

	books, err := h.books.ListOwnUnpublished(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booksToResponse(books))
}

func (h *Handler) caller(c *gin.Context) (int64, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		h.writeError(c, apperror.NewAuthentication("not authenticated", nil))
		return 0, false
	}
	return userID, true
}

func (h *Handler) bookID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(c, apperror.NewValidation("invalid book id", err))
		return 0, false
	}
	return id, true
}

// formCover extracts the optional cover_image file from a multipart form.
// The returned close func is safe to call even when there is no file.
func (h *Handler) formCover(c *gin.Context) (*service.CoverUpload, func(), error) {
	noop := func() {}

	header, err := c.FormFile("cover_image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		return nil, noop, apperror.NewValidation("invalid cover_image upload", err)
	}

	file, err := header.Open()
	if err != nil {
		return nil, noop, apperror.NewValidation("invalid cover_image upload", err)
	}

	cover := &service.CoverUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
	return cover, func() { _ = file.Close() }, nil
}

func optionalForm(c *gin.Context, field string) *string {
	if value, ok := c.GetPostForm(field); ok {
		return &value
	}
	return nil
}
