package otp

import (
	"context"
	"time"

	"github.com/dmitrymomot/storefront/pkg/email/templates"
)

// Message is the rendered email carrying a code.
type Message struct {
	Subject string
	HTML    string
}

// MessageBuilder renders the email for a freshly generated code.
type MessageBuilder func(ctx context.Context, purpose Purpose, code string, params IssueParams, ttl time.Duration) (Message, error)

// DefaultMessage renders the built-in templates.
func DefaultMessage(ctx context.Context, purpose Purpose, code string, params IssueParams, ttl time.Duration) (Message, error) {
	data := templates.OTPEmail{
		DisplayName: params.DisplayName,
		Code:        code,
		ValidFor:    ttl,
	}

	var subject string
	switch purpose {
	case PurposePasswordReset:
		subject = "Your password reset code"
		data.Heading = "Reset your password"
		data.Intro = "Enter this code to continue resetting your password."
	default:
		subject = "Your verification code"
		data.Heading = "Verify your email"
		data.Intro = "Enter this code to confirm your email address."
	}

	html, err := templates.Render(ctx, templates.OTPCode(data))
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: subject, HTML: html}, nil
}
