package handler

import (
	"errors"
	"net/http"
)

// ErrNilResponse indicates a handler returned nil instead of a Response.
var ErrNilResponse = errors.New("handler returned nil response")

// HTTPError is a transport-level error with a status code and a stable key.
type HTTPError struct {
	Code    int
	Key     string
	Message string
}

func (e HTTPError) Error() string {
	return e.Key
}

var (
	ErrBadRequest           = HTTPError{Code: http.StatusBadRequest, Key: "bad_request", Message: "The request could not be understood."}
	ErrUnauthorized         = HTTPError{Code: http.StatusUnauthorized, Key: "unauthorized", Message: "Missing or invalid credentials."}
	ErrNotFound             = HTTPError{Code: http.StatusNotFound, Key: "not_found", Message: "Resource not found."}
	ErrMethodNotAllowed     = HTTPError{Code: http.StatusMethodNotAllowed, Key: "method_not_allowed", Message: "Method not allowed."}
	ErrRequestTooLarge      = HTTPError{Code: http.StatusRequestEntityTooLarge, Key: "request_too_large", Message: "Request body is too large."}
	ErrUnsupportedMediaType = HTTPError{Code: http.StatusUnsupportedMediaType, Key: "unsupported_media_type", Message: "Expected a JSON body."}
	ErrTooManyRequests      = HTTPError{Code: http.StatusTooManyRequests, Key: "rate_limited", Message: "Too many requests. Please slow down."}
	ErrInternal             = HTTPError{Code: http.StatusInternalServerError, Key: "internal_error", Message: "Something went wrong. Please try again."}
	ErrServiceUnavailable   = HTTPError{Code: http.StatusServiceUnavailable, Key: "service_unavailable", Message: "Service temporarily unavailable."}
)
