package otp

import "errors"

// Class groups failures by how callers are expected to react to them.
type Class uint8

const (
	ClassUnknown Class = iota
	ClassValidation
	ClassNotFound
	ClassExpired
	ClassRateLimit
	ClassDelivery
	ClassStorage
)

func (c Class) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassNotFound:
		return "not_found"
	case ClassExpired:
		return "expired"
	case ClassRateLimit:
		return "rate_limit"
	case ClassDelivery:
		return "delivery"
	case ClassStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is a classified OTP failure. Reason is stable and machine-readable,
// Message is safe to show to end users.
type Error struct {
	Class   Class
	Reason  string
	Message string
}

func (e *Error) Error() string {
	return e.Reason
}

func newError(class Class, reason, message string) *Error {
	return &Error{Class: class, Reason: reason, Message: message}
}

// Validation errors
var (
	ErrInvalidInput       = newError(ClassValidation, "otp.invalid_input", "Email and code are required")
	ErrInvalidPurpose     = newError(ClassValidation, "otp.invalid_purpose", "Unsupported verification purpose")
	ErrInvalidCode        = newError(ClassValidation, "otp.invalid_code", "Invalid code")
	ErrPasswordTooShort   = newError(ClassValidation, "otp.password_too_short", "Password is too short")
	ErrPasswordTooLong    = newError(ClassValidation, "otp.password_too_long", "Password is too long")
	ErrResetNotAuthorized = newError(ClassValidation, "otp.reset_not_authorized", "Password reset was not verified")
)

// Lookup errors
var (
	ErrNoCodeRequested = newError(ClassNotFound, "otp.no_code_requested", "No code was requested for this email")
	ErrAccountNotFound = newError(ClassNotFound, "otp.account_not_found", "No account found for this email")
)

// Expiry errors
var (
	ErrCodeExpired    = newError(ClassExpired, "otp.code_expired", "Code expired, request a new one")
	ErrSessionExpired = newError(ClassExpired, "otp.session_expired", "Reset session expired, start again")
)

// Rate limit errors
var (
	ErrThrottled       = newError(ClassRateLimit, "otp.throttled", "Please wait before requesting another code")
	ErrTooManyAttempts = newError(ClassRateLimit, "otp.too_many_attempts", "Too many attempts, request a new code")
)

// Infrastructure errors
var (
	ErrDeliveryFailed      = newError(ClassDelivery, "otp.delivery_failed", "Failed to send the code, try again")
	ErrStorage             = newError(ClassStorage, "otp.storage_unavailable", "Service temporarily unavailable")
	ErrIdentityUnavailable = newError(ClassStorage, "otp.identity_unavailable", "Service temporarily unavailable")
)

// Store-level errors returned by Store implementations.
var (
	ErrRecordNotFound  = errors.New("otp record not found")
	ErrVersionConflict = errors.New("otp record version conflict")
)

// Identity provider errors.
var (
	ErrSubjectNotFound = errors.New("identity subject not found")
)

// Classify returns the class of err, or ClassUnknown when err is not an OTP error.
func Classify(err error) Class {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ClassUnknown
}

// AsError extracts the classified OTP error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
