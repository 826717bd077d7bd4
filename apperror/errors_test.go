package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Code]int{
		CodeNotFound:        http.StatusNotFound,
		CodeInvalidArgument: http.StatusBadRequest,
		CodeInvalidState:    http.StatusConflict,
		CodeForbidden:       http.StatusForbidden,
		CodeUnauthenticated: http.StatusUnauthorized,
		CodeInternal:        http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, New(code, "x").HTTPStatus, code)
	}
}

func TestCodeOfUnwrapsChains(t *testing.T) {
	err := fmt.Errorf("assign: %w", InvalidState("Report is not pending"))
	assert.True(t, Is(err, CodeInvalidState))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.False(t, Is(nil, CodeInternal))
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause)
	assert.Equal(t, "Server error", err.Message)
	assert.ErrorIs(t, err, cause)
}
