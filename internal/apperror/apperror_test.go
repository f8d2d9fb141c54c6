package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"validation", NewValidation("bad input", nil), http.StatusBadRequest},
		{"authentication", NewAuthentication("no token", nil), http.StatusUnauthorized},
		{"authorization", NewAuthorization("not yours", nil), http.StatusForbidden},
		{"not found", NewNotFound("missing", nil), http.StatusNotFound},
		{"internal", NewInternal("boom", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("row gone")
	err := NewNotFound("book not found", cause)

	assert.Equal(t, "book not found: row gone", err.Error())
	assert.Equal(t, "book not found", NewNotFound("book not found", nil).Error())
	assert.ErrorIs(t, err, cause)
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", NewAuthorization("blocked", nil))

	assert.True(t, IsAuthorization(err))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
	assert.False(t, IsAuthentication(err))
}
