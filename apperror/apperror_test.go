package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"auth", NewAuthError("Authentication required", nil), http.StatusUnauthorized},
		{"invalid credentials", NewInvalidCredentialsError("Invalid credentials", nil), http.StatusUnauthorized},
		{"unauthorized", NewUnauthorizedError("nope", nil), http.StatusForbidden},
		{"not found", NewNotFoundError("missing", nil), http.StatusNotFound},
		{"validation", NewValidationError("bad", nil), http.StatusBadRequest},
		{"bad request", NewBadRequestError("bad", nil), http.StatusBadRequest},
		{"duplicate", NewDuplicateError("Username already exists", nil), http.StatusBadRequest},
		{"database", NewDatabaseError("db", nil), http.StatusInternalServerError},
		{"internal", NewInternalError("boom", nil), http.StatusInternalServerError},
		{"artifact", NewArtifactError("model", nil), http.StatusInternalServerError},
		{"unknown", NewAppError(UnknownError, "?", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestToResponse_HidesServerErrorDetails(t *testing.T) {
	err := NewDatabaseError("failed to insert into users", errors.New("pq: connection refused"))

	resp := err.ToResponse()

	assert.False(t, resp.Success)
	assert.Equal(t, GenericInternalMessage, resp.Error)
}

func TestToResponse_ClientErrorKeepsMessage(t *testing.T) {
	resp := NewDuplicateError("Username already exists", nil).ToResponse()

	assert.False(t, resp.Success)
	assert.Equal(t, "Username already exists", resp.Error)
}

func TestFromError_FindsWrappedAppError(t *testing.T) {
	inner := NewNotFoundError("Details for kiwi not found", nil)
	wrapped := fmt.Errorf("lookup: %w", inner)

	got, ok := FromError(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, got)

	_, ok = FromError(errors.New("plain"))
	assert.False(t, ok)

	_, ok = FromError(nil)
	assert.False(t, ok)
}

func TestTypeHelpers(t *testing.T) {
	assert.True(t, IsDuplicate(fmt.Errorf("x: %w", NewDuplicateError("dup", nil))))
	assert.True(t, IsInvalidCredentials(NewInvalidCredentialsError("bad", nil)))
	assert.True(t, IsAuthError(NewAuthError("auth", nil)))
	assert.True(t, IsNotFound(NewNotFoundError("nf", nil)))
	assert.True(t, IsValidationError(NewValidationError("v", nil)))
	assert.True(t, IsBadRequest(NewBadRequestError("b", nil)))
	assert.True(t, IsInternal(NewInternalError("i", nil)))
	assert.False(t, IsDuplicate(NewNotFoundError("nf", nil)))
}

func TestError_IncludesUnderlying(t *testing.T) {
	err := NewInternalError("predict failed", errors.New("feature count mismatch"))
	assert.Equal(t, "predict failed: feature count mismatch", err.Error())
	assert.Equal(t, "feature count mismatch", errors.Unwrap(err).Error())
}
