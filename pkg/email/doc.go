// Package email delivers transactional email through an ordered chain of
// providers.
//
// Gateway is the entry point. It validates the message, then tries each
// configured provider with its own timeout and returns on the first success:
//
//   - HTTPSender posts to a JSON email API with a bearer token and retries
//     once against a fallback URL when the primary URL answers 404.
//   - the Postmark client sends through github.com/mrz1836/postmark.
//
// Outside production a message nobody could deliver is handed to DevSender,
// which logs it and optionally writes it to EMAIL_DEV_DIR. In production the
// failures of every provider are joined with ErrFailedToSendEmail.
//
//	gw, err := email.NewGatewayFromConfig(cfg, environment.Parse(appEnv), log)
//	if err != nil {
//		return err
//	}
//	err = gw.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "user@example.com",
//		Subject:  "Your code",
//		BodyHTML: html,
//	})
//
// The templates subpackage renders the HTML bodies with templ.
package email
