package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func TestToDomainError_PassesThroughDomainErrors(t *testing.T) {
	original := NewForbidden("nope")
	wrapped := fmt.Errorf("handler: %w", original)

	got := ToDomainError(wrapped)
	require.Equal(t, http.StatusForbidden, got.HTTPStatus)
	require.Equal(t, "FORBIDDEN", got.Code)
	require.Equal(t, "nope", got.Message)
}

func TestToDomainError_FiberErrors(t *testing.T) {
	got := ToDomainError(fiber.NewError(http.StatusRequestEntityTooLarge, "Request Entity Too Large"))
	require.Equal(t, http.StatusRequestEntityTooLarge, got.HTTPStatus)
	require.Equal(t, "VALIDATION_FAILED", got.Code)

	got = ToDomainError(fiber.ErrNotFound)
	require.Equal(t, http.StatusNotFound, got.HTTPStatus)
	require.Equal(t, "NOT_FOUND", got.Code)
}

func TestToDomainError_NoRowsIsNotFound(t *testing.T) {
	got := ToDomainError(fmt.Errorf("get task: %w", pgx.ErrNoRows))
	require.Equal(t, http.StatusNotFound, got.HTTPStatus)
}

func TestToDomainError_UnknownErrorsHideDetail(t *testing.T) {
	cause := errors.New("connection reset by peer")
	got := ToDomainError(cause)
	require.Equal(t, http.StatusInternalServerError, got.HTTPStatus)
	require.Equal(t, "internal server error", got.Message)
	require.ErrorIs(t, got, cause)
}

func TestMapError_Nil(t *testing.T) {
	require.NoError(t, MapError(nil))
	require.Nil(t, ToDomainError(nil))
}
