package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Invalid("x", nil), http.StatusBadRequest},
		{Conflict("x"), http.StatusBadRequest},
		{Dependency("x", errors.New("y")), http.StatusInternalServerError},
		{Unauthorized("x", "no_token"), http.StatusUnauthorized},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound("x")), http.StatusNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestErrorUnwrapAndIs(t *testing.T) {
	cause := errors.New("connection refused")
	err := Dependency("failed to load client", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load client: connection refused", err.Error())
	assert.True(t, Is(err, CodeDatabase))
	assert.False(t, Is(nil, CodeDatabase))
	assert.Equal(t, CodeInternal, CodeOf(cause))
}
