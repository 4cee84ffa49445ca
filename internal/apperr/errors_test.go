package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("device not found"), http.StatusNotFound},
		{Conflict("User already exists"), http.StatusConflict},
		{Unauthorized("Unauthorized"), http.StatusUnauthorized},
		{Invalid("bad"), http.StatusBadRequest},
		{New(CodeForbidden, "no"), http.StatusForbidden},
		{Internal(errors.New("disk full")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HTTPStatus(c.err), c.err.Error())
	}
}

func TestWrappedErrorsKeepTheirCode(t *testing.T) {
	base := NotFound("device not found")
	wrapped := fmt.Errorf("update device: %w", base)

	assert.True(t, Is(wrapped, CodeNotFound))
	assert.Equal(t, "device not found", MessageOf(wrapped))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(wrapped))
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("bolt: database not open")
	err := Internal(cause)

	assert.Equal(t, "internal server error", MessageOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal server error", MessageOf(cause))
}
