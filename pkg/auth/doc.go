// Package auth is the identity provider behind OTP-based password reset.
//
// IdentityService resolves an email address to a stable subject id and
// stores new password credentials as bcrypt hashes. User documents live in
// MongoDB (MongoStorage); MemoryStorage serves development and tests.
//
//	users := auth.NewMongoStorage(db)
//	identity := auth.NewIdentityService(users, auth.WithIdentityLogger(log))
//	svc := otp.NewService(store, gateway, identity)
package auth
