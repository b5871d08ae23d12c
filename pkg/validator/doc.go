// Package validator provides rule-based input validation.
//
// A Rule pairs a check with the error reported when it fails. Apply runs all
// rules and collects failures into ValidationErrors, so a handler can report
// every invalid field at once:
//
//	err := validator.Apply(
//		validator.Required("email", req.Email),
//		validator.ValidEmail("email", req.Email),
//	)
package validator
