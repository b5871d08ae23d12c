// Package environment names the runtime modes of the service.
//
// The mode is parsed once from APP_ENV at startup and passed explicitly to the
// components that behave differently in production, such as the email
// gateway which may only fall back to its log-only stub outside production.
package environment
