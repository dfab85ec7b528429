package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/profile-images/internal/scrape"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrHistoryUnavailable is returned when the server runs without a database.
var ErrHistoryUnavailable = errors.New("extraction history is not configured")

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var validationErr *ErrValidation
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.As(err, &validationErr), errors.Is(err, scrape.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, ErrHistoryUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, scrape.ErrSessionFailed), errors.Is(err, scrape.ErrFetchFailed):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
