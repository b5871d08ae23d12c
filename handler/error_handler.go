package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/storefront/pkg/binder"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/validator"
)

// ErrorMapper translates a domain error into a status and client-facing
// detail. ok is false when the mapper does not recognise err.
type ErrorMapper func(err error) (status int, detail ErrorDetail, ok bool)

// NewErrorHandler renders every error as a JSON failure envelope. Mappers are
// tried in order before the built-in rules for validation, binding and
// HTTPError values. Anything unmatched is logged and reported as a generic
// 500.
func NewErrorHandler(log *slog.Logger, mappers ...ErrorMapper) ErrorHandler[Context] {
	if log == nil {
		log = logger.Discard()
	}
	mappers = append(mappers, mapValidation, mapBinding)

	return func(ctx Context, err error) {
		w, r := ctx.ResponseWriter(), ctx.Request()

		for _, m := range mappers {
			status, detail, ok := m(err)
			if !ok {
				continue
			}
			if status >= http.StatusInternalServerError {
				log.ErrorContext(ctx, "request failed",
					logger.Handler(r.URL.Path),
					slog.String("code", detail.Code),
					logger.Error(err),
				)
			}
			_ = Fail(status, detail).Render(w, r)
			return
		}

		var httpErr HTTPError
		if !errors.As(err, &httpErr) || httpErr.Code >= http.StatusInternalServerError {
			log.ErrorContext(ctx, "request failed",
				logger.Handler(r.URL.Path),
				logger.Error(err),
			)
		}
		_ = JSONError(err).Render(w, r)
	}
}

func mapValidation(err error) (int, ErrorDetail, bool) {
	ve := validator.ExtractValidationErrors(err)
	if ve == nil {
		return 0, ErrorDetail{}, false
	}
	return http.StatusBadRequest, ErrorDetail{
		Code:    "validation_error",
		Message: "Some fields are invalid.",
		Details: ve.Fields(),
	}, true
}

func mapBinding(err error) (int, ErrorDetail, bool) {
	var he HTTPError
	switch {
	case errors.Is(err, binder.ErrBodyTooLarge):
		he = ErrRequestTooLarge
	case errors.Is(err, binder.ErrMissingContentType), errors.Is(err, binder.ErrUnsupportedMediaType):
		he = ErrUnsupportedMediaType
	case errors.Is(err, binder.ErrFailedToParseJSON):
		he = ErrBadRequest
	default:
		return 0, ErrorDetail{}, false
	}
	return he.Code, ErrorDetail{Code: he.Key, Message: he.Message}, true
}
