package otp

import (
	"context"
	"time"
)

// Purpose separates record namespaces so one recipient can hold a signup
// code and a reset code at the same time.
type Purpose string

const (
	PurposeSignup        Purpose = "signup_verification"
	PurposePasswordReset Purpose = "password_reset"
)

func (p Purpose) String() string {
	return string(p)
}

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposeSignup || p == PurposePasswordReset
}

// Record is the persisted state of one issued code.
// CodeHash must never be logged or returned to callers.
type Record struct {
	Purpose    Purpose    `json:"purpose" bson:"purpose"`
	Recipient  string     `json:"recipient" bson:"recipient"`
	CodeHash   string     `json:"code_hash" bson:"code_hash"`
	Salt       string     `json:"salt" bson:"salt"`
	Attempts   int        `json:"attempts" bson:"attempts"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at" bson:"expires_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty" bson:"verified_at,omitempty"`
	SubjectID  string     `json:"subject_id,omitempty" bson:"subject_id,omitempty"`
	Version    int64      `json:"version" bson:"version"`
	PurgeAt    time.Time  `json:"purge_at" bson:"purge_at"`
}

// Key returns the store key of the record.
func (r *Record) Key() string {
	return RecordKey(r.Purpose, r.Recipient)
}

// Expired reports whether the code can no longer be verified at now.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Verified reports whether the reset record passed verification.
func (r *Record) Verified() bool {
	return r.VerifiedAt != nil && !r.VerifiedAt.IsZero()
}

func (r *Record) clone() *Record {
	c := *r
	if r.VerifiedAt != nil {
		v := *r.VerifiedAt
		c.VerifiedAt = &v
	}
	return &c
}

// RecordKey builds the unique key for a (purpose, recipient) pair.
func RecordKey(purpose Purpose, recipient string) string {
	return string(purpose) + ":" + recipient
}

// IssueParams carries optional display data for the outgoing email.
type IssueParams struct {
	DisplayName string
}

// IdentityProvider resolves and updates accounts in the external identity system.
type IdentityProvider interface {
	// FindSubject returns the durable subject id for an email,
	// or ErrSubjectNotFound when no account exists.
	FindSubject(ctx context.Context, email string) (string, error)
	// SetCredential replaces the password of the subject.
	SetCredential(ctx context.Context, subjectID, password string) error
}

// Config controls the OTP rules.
type Config struct {
	CodeLength              int           `env:"OTP_CODE_LENGTH" envDefault:"4"`
	SaltBytes               int           `env:"OTP_SALT_BYTES" envDefault:"16"`
	SignupTTL               time.Duration `env:"OTP_SIGNUP_TTL" envDefault:"10m"`
	ResetTTL                time.Duration `env:"OTP_RESET_TTL" envDefault:"1m"`
	ThrottleInterval        time.Duration `env:"OTP_THROTTLE_INTERVAL" envDefault:"60s"`
	MaxAttempts             int           `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`
	ResetGrace              time.Duration `env:"OTP_RESET_GRACE" envDefault:"60s"`
	MinPasswordLength       int           `env:"OTP_MIN_PASSWORD_LENGTH" envDefault:"6"`
	DeleteOnDeliveryFailure bool          `env:"OTP_DELETE_ON_DELIVERY_FAILURE" envDefault:"true"`
}

// DefaultConfig returns the production rules.
func DefaultConfig() Config {
	return Config{
		CodeLength:              4,
		SaltBytes:               16,
		SignupTTL:               10 * time.Minute,
		ResetTTL:                time.Minute,
		ThrottleInterval:        60 * time.Second,
		MaxAttempts:             5,
		ResetGrace:              60 * time.Second,
		MinPasswordLength:       6,
		DeleteOnDeliveryFailure: true,
	}
}

// TTL returns the code lifetime for purpose.
func (c Config) TTL(purpose Purpose) time.Duration {
	if purpose == PurposePasswordReset {
		return c.ResetTTL
	}
	return c.SignupTTL
}

// withDefaults fills zero values so a partially populated Config stays usable.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CodeLength <= 0 {
		c.CodeLength = d.CodeLength
	}
	if c.SaltBytes <= 0 {
		c.SaltBytes = d.SaltBytes
	}
	if c.SignupTTL <= 0 {
		c.SignupTTL = d.SignupTTL
	}
	if c.ResetTTL <= 0 {
		c.ResetTTL = d.ResetTTL
	}
	if c.ThrottleInterval <= 0 {
		c.ThrottleInterval = d.ThrottleInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.ResetGrace <= 0 {
		c.ResetGrace = d.ResetGrace
	}
	if c.MinPasswordLength <= 0 {
		c.MinPasswordLength = d.MinPasswordLength
	}
	return c
}
