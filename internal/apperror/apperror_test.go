package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  *AppError
		want int
	}{
		{NewAuthError("no", nil), http.StatusUnauthorized},
		{NewForbiddenError("no", nil), http.StatusForbidden},
		{NewNotFoundError("no", nil), http.StatusNotFound},
		{NewValidationError("no", nil), http.StatusUnprocessableEntity},
		{NewBadRequestError("no", nil), http.StatusBadRequest},
		{NewConflictError("no", nil), http.StatusConflict},
		{NewDatabaseError("no", nil), http.StatusInternalServerError},
		{NewInternalError("no", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.StatusCode(), tc.err.Message)
	}
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	plain := errors.New("boom")
	appErr := From(plain)
	assert.Equal(t, InternalError, appErr.Type)
	assert.ErrorIs(t, appErr, plain)
	assert.Equal(t, "Internal Server Error", appErr.ToResponse().Detail)
}

func TestFromFindsWrappedAppError(t *testing.T) {
	notFound := NewNotFoundError("Post not found", nil)
	wrapped := fmt.Errorf("loading post: %w", notFound)

	assert.Same(t, notFound, From(wrapped))
	assert.True(t, Is(wrapped, NotFoundError))
	assert.False(t, Is(wrapped, AuthError))
	assert.Equal(t, "Post not found", From(wrapped).ToResponse().Detail)
}
