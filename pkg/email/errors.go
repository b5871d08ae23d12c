package email

import "errors"

var (
	ErrFailedToSendEmail = errors.New("mailer.errors.failed_to_send_email")
	ErrInvalidConfig     = errors.New("mailer.errors.invalid_config")
	ErrInvalidParams     = errors.New("mailer.errors.invalid_params")
	ErrNoProviders       = errors.New("mailer.errors.no_providers_configured")
	ErrEndpointNotFound  = errors.New("mailer.errors.endpoint_not_found")
)
