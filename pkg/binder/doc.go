// Package binder decodes HTTP request bodies into typed request structs for
// handler.Wrap.
//
//	http.HandleFunc("/otp/request", handler.Wrap(h.requestCode,
//		handler.WithBinder[handler.Context, RequestCodeRequest](binder.JSON()),
//	))
//
// Errors wrap ErrMissingContentType, ErrUnsupportedMediaType,
// ErrBodyTooLarge or ErrFailedToParseJSON so error handlers can map them to
// status codes.
package binder
