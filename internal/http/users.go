package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wookie-books/internal/apperror"
	"wookie-books/internal/domain"
)

type registerRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	AuthorPseudonym string `json:"author_pseudonym"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	Username        string `json:"username"`
	AuthorPseudonym string `json:"author_pseudonym"`
}

func userToResponse(user domain.User) userResponse {
	return userResponse{
		Username:        user.Username,
		AuthorPseudonym: user.AuthorPseudonym,
	}
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperror.NewValidation("invalid request body", err))
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password, req.AuthorPseudonym)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, userToResponse(*user))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperror.NewValidation("invalid request body", err))
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		h.writeError(c, apperror.NewInternal("issue token", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]userResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	c.JSON(http.StatusOK, resp)
}
