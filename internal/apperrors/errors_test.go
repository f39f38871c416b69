package apperrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pse-app/pse-sub001/internal/apperrors"
)

func TestAppError_IsMapsCodeToCategory(t *testing.T) {
	notFound := apperrors.NewNotFoundError("group")
	assert.ErrorIs(t, notFound, apperrors.ErrNotFound)
	assert.NotErrorIs(t, notFound, apperrors.ErrValidation)
	assert.Equal(t, "group not found", notFound.Error())

	invalid := apperrors.NewValidationFailedError("bad amount")
	assert.ErrorIs(t, invalid, apperrors.ErrValidation)

	conflict := apperrors.NewConflictError("duplicate")
	assert.ErrorIs(t, conflict, apperrors.ErrConflict)

	cause := errors.New("connection reset")
	internal := apperrors.NewAppError(http.StatusInternalServerError, "failed to commit transaction", cause)
	assert.ErrorIs(t, internal, apperrors.ErrInternal)
	assert.ErrorIs(t, internal, cause)
	assert.Equal(t, "failed to commit transaction: connection reset", internal.Error())
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"wrapped validation", fmt.Errorf("%w: unbalanced", apperrors.ErrValidation), http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("%w: user u1", apperrors.ErrNotFound), http.StatusNotFound},
		{"app error not found", apperrors.NewNotFoundError("user"), http.StatusNotFound},
		{"app error conflict", apperrors.NewConflictError("dup"), http.StatusConflict},
		{"storage", apperrors.NewAppError(http.StatusInternalServerError, "query failed", errors.New("boom")), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperrors.StatusCode(tt.err))
		})
	}
}
