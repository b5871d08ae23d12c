// Package otp issues and verifies short numeric one-time codes sent by email.
//
// Service implements three operations:
//
//   - Issue generates a code, stores its salted HMAC and emails the plaintext.
//     A new code replaces the previous one for the same purpose and
//     recipient, but not sooner than the throttle interval.
//   - Verify checks a submitted code against the record. Expired records and
//     records that used up their attempts are deleted. A matching signup code
//     deletes the record; a matching password reset code marks it verified.
//   - CompleteReset sets a new password through the IdentityProvider within a
//     short grace window after verification and consumes the record.
//
// Records live in a Store. Every write is a compare-and-swap on
// Record.Version so concurrent requests for the same recipient cannot lose
// attempt increments or consume a reset twice. MemoryStore, MongoStore and
// RedisStore implement Store.
//
// Failures are *Error values grouped by Class, which transports map to status
// codes:
//
//	switch otp.Classify(err) {
//	case otp.ClassRateLimit:
//		// 429
//	case otp.ClassDelivery, otp.ClassStorage:
//		// 500
//	default:
//		// 400
//	}
package otp
