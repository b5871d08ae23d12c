// Package handler adapts typed request handlers to net/http.
//
// Handlers receive a Context and a decoded request value and return a
// Response. Wrap runs the binders, calls the handler and renders the result;
// any error goes to the configured ErrorHandler.
//
// Every JSON response uses one envelope:
//
//	{"ok": true, "data": {...}}
//	{"ok": false, "error": {"code": "otp.code_expired", "message": "..."}}
//
// NewErrorHandler maps validator.ValidationErrors to 400 with per-field
// details, binder errors to 400, 413 or 415, HTTPError values to their own
// status and everything else to a generic 500. Domain packages plug in their
// own ErrorMapper.
package handler
