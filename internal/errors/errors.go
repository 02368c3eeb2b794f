package errors

import (
	"errors"
	"net/http"
)

// Kinds of failure. Match with errors.Is; the handler layer maps them to status codes.
var (
	ErrValidation      = errors.New("validation error")
	ErrMissingToken    = errors.New("missing subscription token")
	ErrUnknownToken    = errors.New("unknown subscription token")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrStorage         = errors.New("storage failure")
	ErrNotification    = errors.New("notification failure")
	ErrInternal        = errors.New("internal failure")
	ErrPartialDelivery = errors.New("partial delivery")

	// ErrNotFound is returned by stores when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
)

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode.
// Message is shown to the client, Err is the kind (and optionally the cause).
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

func (e *ErrorWithStatusCode) Unwrap() error {
	return e.Err
}

func Validation(message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusBadRequest, Err: ErrValidation}
}

func MissingToken() error {
	return &ErrorWithStatusCode{Message: "Missing subscription token", StatusCode: http.StatusBadRequest, Err: ErrMissingToken}
}

// UnknownToken is deliberately generic: callers must not learn whether a token ever existed.
func UnknownToken() error {
	return &ErrorWithStatusCode{Message: "Invalid subscription token", StatusCode: http.StatusUnauthorized, Err: ErrUnknownToken}
}

func Unauthorized() error {
	return &ErrorWithStatusCode{Message: "Invalid credentials", StatusCode: http.StatusUnauthorized, Err: ErrUnauthorized}
}

func Storage() error {
	return &ErrorWithStatusCode{Message: "Internal server error", StatusCode: http.StatusInternalServerError, Err: ErrStorage}
}

func Notification() error {
	return &ErrorWithStatusCode{Message: "Failed to send email", StatusCode: http.StatusInternalServerError, Err: ErrNotification}
}

func Internal() error {
	return &ErrorWithStatusCode{Message: "Internal server error", StatusCode: http.StatusInternalServerError, Err: ErrInternal}
}

func PartialDelivery() error {
	return &ErrorWithStatusCode{Message: "Newsletter was not delivered to every subscriber", StatusCode: http.StatusBadGateway, Err: ErrPartialDelivery}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StatusCode returns the HTTP status for err, 500 for anything untyped.
func StatusCode(err error) int {
	var e *ErrorWithStatusCode
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}
