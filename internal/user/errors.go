package user

import (
	"errors"
	"net/http"
)

// Sentinel errors shared across the service, middleware, and handlers.
// Handlers map them to HTTP statuses at a single boundary via HTTPStatus.
var (
	ErrValidation         = errors.New("all fields are required")
	ErrAlreadyExists      = errors.New("user already exists")
	ErrNotFound           = errors.New("user does not exist")
	ErrBlocked            = errors.New("account is blocked")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("missing refresh token")
	ErrTokenExpired       = errors.New("expired token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenReuse         = errors.New("refresh token reuse detected")
	ErrForbidden          = errors.New("insufficient permissions")
)

// HTTPStatus maps a domain error to its response status. Anything outside
// the taxonomy is a store or infrastructure failure and maps to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBlocked), errors.Is(err, ErrTokenReuse), errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrMissingToken),
		errors.Is(err, ErrTokenExpired), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
