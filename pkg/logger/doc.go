// Package logger builds *slog.Logger instances for the storefront functions.
//
// New applies functional options (format, level, output, static attributes,
// context extractors) and wraps the chosen slog handler with
// LogHandlerDecorator, which injects request-scoped values such as the
// request id on every record.
//
// The attribute helpers in attr.go keep key names consistent across
// packages. Recipient masks email addresses; OTP codes and their hashes are
// never passed to the logger.
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Production, "storefront-functions"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "otp issued", logger.Purpose(purpose), logger.Recipient(email))
package logger
