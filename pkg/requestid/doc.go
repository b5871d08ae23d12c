// Package requestid attaches a correlation id to every HTTP request.
//
// Incoming X-Request-ID values are reused when they are short and contain
// only letters, digits, dashes and underscores; anything else is replaced
// with a fresh UUID. The id is echoed back in the response header and is
// available through FromContext. LoggerExtractor plugs it into
// logger.WithContextExtractors so request-scoped log lines carry it.
package requestid
