package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/storefront/pkg/email"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/sanitizer"
	"github.com/dmitrymomot/storefront/pkg/validator"
)

// maxCASRounds bounds how often an operation re-reads a record after losing
// a version race.
const maxCASRounds = 3

// purgeDelay keeps finished records around a little longer so backends with
// coarse expiry never drop a record that is still usable.
const purgeDelay = time.Hour

// MaxPasswordBytes is the longest credential bcrypt can hash.
const MaxPasswordBytes = 72

// Service issues and verifies one-time codes and completes password resets.
// It is safe for concurrent use; all shared state lives in the Store.
type Service struct {
	store    Store
	mailer   email.EmailSender
	identity IdentityProvider
	cfg      Config
	message  MessageBuilder
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithConfig overrides the default rules. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg.withDefaults()
	}
}

// WithLogger sets a custom logger for the service
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMessageBuilder replaces the email renderer.
func WithMessageBuilder(b MessageBuilder) Option {
	return func(s *Service) {
		if b != nil {
			s.message = b
		}
	}
}

// NewService creates the OTP service.
func NewService(store Store, mailer email.EmailSender, identity IdentityProvider, opts ...Option) *Service {
	s := &Service{
		store:    store,
		mailer:   mailer,
		identity: identity,
		cfg:      DefaultConfig(),
		message:  DefaultMessage,
		logger:   logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue generates a code for (purpose, recipient), stores it replacing any
// previous record and emails it.
//
// A new code is refused with ErrThrottled while the previous one is younger
// than the throttle interval. For password resets an already expired record
// never blocks a new code.
func (s *Service) Issue(ctx context.Context, purpose Purpose, recipient string, params IssueParams) error {
	if !purpose.Valid() {
		return ErrInvalidPurpose
	}
	recipient, err := normalizeRecipient(recipient)
	if err != nil {
		return err
	}

	log := s.logger.With(logger.Component("otp"), logger.Purpose(purpose), logger.Recipient(recipient))

	if purpose == PurposePasswordReset {
		if _, err := s.findSubject(ctx, recipient); err != nil {
			return err
		}
	}

	now := s.now()

	var expected int64
	existing, err := s.store.Get(ctx, purpose, recipient)
	switch {
	case errors.Is(err, ErrRecordNotFound):
	case err != nil:
		return storageError(err)
	default:
		if s.throttled(existing, now) {
			return ErrThrottled
		}
		expected = existing.Version
	}

	code, err := GenerateCode(s.cfg.CodeLength)
	if err != nil {
		return storageError(err)
	}
	salt, err := GenerateSalt(s.cfg.SaltBytes)
	if err != nil {
		return storageError(err)
	}

	ttl := s.cfg.TTL(purpose)
	rec := &Record{
		Purpose:   purpose,
		Recipient: recipient,
		CodeHash:  HashCode(code, salt),
		Salt:      salt,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	rec.PurgeAt = s.purgeAt(rec)

	if err := s.store.Put(ctx, rec, expected); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return ErrThrottled
		}
		return storageError(err)
	}

	if err := s.deliver(ctx, rec, code, params, ttl); err != nil {
		log.ErrorContext(ctx, "otp delivery failed", logger.Error(err))
		if s.cfg.DeleteOnDeliveryFailure {
			s.discardQuietly(ctx, rec, log)
		}
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	log.InfoContext(ctx, "otp issued", slog.Time("expires_at", rec.ExpiresAt))
	return nil
}

// Verify checks a submitted code.
//
// Checks run in order: the record must exist, must not be expired and must
// have fewer than MaxAttempts failed attempts; expired and exhausted records
// are deleted. A matching signup code deletes the record. A matching reset
// code marks the record verified and binds the account subject so that
// CompleteReset can run. A wrong code increments the attempt counter.
func (s *Service) Verify(ctx context.Context, purpose Purpose, recipient, code string) error {
	if !purpose.Valid() {
		return ErrInvalidPurpose
	}
	recipient, err := normalizeRecipient(recipient)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrInvalidInput
	}

	log := s.logger.With(logger.Component("otp"), logger.Purpose(purpose), logger.Recipient(recipient))

	for range maxCASRounds {
		err = s.verifyOnce(ctx, purpose, recipient, code, log)
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
	}

	log.WarnContext(ctx, "otp verify lost every version race")
	return storageError(err)
}

func (s *Service) verifyOnce(ctx context.Context, purpose Purpose, recipient, code string, log *slog.Logger) error {
	rec, err := s.store.Get(ctx, purpose, recipient)
	if errors.Is(err, ErrRecordNotFound) {
		return ErrNoCodeRequested
	}
	if err != nil {
		return storageError(err)
	}

	now := s.now()

	if rec.Expired(now) {
		if err := s.discard(ctx, rec); err != nil {
			return err
		}
		log.InfoContext(ctx, "otp expired")
		return ErrCodeExpired
	}

	if rec.Attempts >= s.cfg.MaxAttempts {
		if err := s.discard(ctx, rec); err != nil {
			return err
		}
		log.WarnContext(ctx, "otp attempts exhausted", slog.Int("attempts", rec.Attempts))
		return ErrTooManyAttempts
	}

	if !CompareHash(code, rec.Salt, rec.CodeHash) {
		rec.Attempts++
		if err := s.store.Put(ctx, rec, rec.Version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return err
			}
			return storageError(err)
		}
		log.InfoContext(ctx, "otp mismatch", logger.Attempt(rec.Attempts))
		return ErrInvalidCode
	}

	if purpose != PurposePasswordReset {
		if err := s.store.Delete(ctx, purpose, recipient, rec.Version); err != nil {
			switch {
			case errors.Is(err, ErrVersionConflict):
				return err
			case errors.Is(err, ErrRecordNotFound):
				return ErrNoCodeRequested
			default:
				return storageError(err)
			}
		}
		log.InfoContext(ctx, "otp verified")
		return nil
	}

	if rec.Verified() {
		return nil
	}

	subjectID, err := s.findSubject(ctx, recipient)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			if derr := s.discard(ctx, rec); derr != nil {
				return derr
			}
		}
		return err
	}

	verifiedAt := now
	rec.VerifiedAt = &verifiedAt
	rec.SubjectID = subjectID
	rec.PurgeAt = s.purgeAt(rec)

	if err := s.store.Put(ctx, rec, rec.Version); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return err
		}
		return storageError(err)
	}

	log.InfoContext(ctx, "password reset verified", logger.SubjectID(subjectID))
	return nil
}

// CompleteReset sets a new password for a verified reset.
//
// The password policy is checked first and never consumes the reset. The
// reset must have been verified no longer than ResetGrace ago; a lapsed reset
// is deleted and reported as ErrSessionExpired. A valid reset is claimed by
// deleting its record before the identity provider is called, so it can be
// used at most once.
func (s *Service) CompleteReset(ctx context.Context, recipient, newPassword string) error {
	recipient, err := normalizeRecipient(recipient)
	if err != nil {
		return err
	}
	if newPassword == "" {
		return ErrInvalidInput
	}
	if err := validator.Apply(validator.MinLen("newCredential", newPassword, s.cfg.MinPasswordLength)); err != nil {
		return fmt.Errorf("%w: %w", ErrPasswordTooShort, err)
	}
	if len(newPassword) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}

	log := s.logger.With(
		logger.Component("otp"),
		logger.Purpose(PurposePasswordReset),
		logger.Recipient(recipient),
	)

	rec, err := s.store.Get(ctx, PurposePasswordReset, recipient)
	if errors.Is(err, ErrRecordNotFound) {
		return ErrResetNotAuthorized
	}
	if err != nil {
		return storageError(err)
	}

	if !rec.Verified() || rec.SubjectID == "" {
		return ErrResetNotAuthorized
	}

	if s.now().Sub(*rec.VerifiedAt) > s.cfg.ResetGrace {
		if err := s.discard(ctx, rec); err != nil && !errors.Is(err, ErrVersionConflict) {
			return err
		}
		log.InfoContext(ctx, "password reset session expired")
		return ErrSessionExpired
	}

	if err := s.store.Delete(ctx, PurposePasswordReset, recipient, rec.Version); err != nil {
		if errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrRecordNotFound) {
			return ErrResetNotAuthorized
		}
		return storageError(err)
	}

	if err := s.identity.SetCredential(ctx, rec.SubjectID, newPassword); err != nil {
		log.ErrorContext(ctx, "failed to set credential", logger.SubjectID(rec.SubjectID), logger.Error(err))
		return fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
	}

	log.InfoContext(ctx, "password reset completed", logger.SubjectID(rec.SubjectID))
	return nil
}

func (s *Service) throttled(rec *Record, now time.Time) bool {
	if now.Sub(rec.CreatedAt) >= s.cfg.ThrottleInterval {
		return false
	}
	if rec.Purpose == PurposePasswordReset && !now.Before(rec.ExpiresAt) {
		return false
	}
	return true
}

func (s *Service) purgeAt(rec *Record) time.Time {
	end := rec.ExpiresAt
	if rec.Verified() {
		if grace := rec.VerifiedAt.Add(s.cfg.ResetGrace); grace.After(end) {
			end = grace
		}
	}
	return end.Add(purgeDelay)
}

func (s *Service) deliver(ctx context.Context, rec *Record, code string, params IssueParams, ttl time.Duration) error {
	msg, err := s.message(ctx, rec.Purpose, code, params, ttl)
	if err != nil {
		return fmt.Errorf("render message: %w", err)
	}
	return s.mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:   rec.Recipient,
		Subject:  msg.Subject,
		BodyHTML: msg.HTML,
		Tag:      string(rec.Purpose),
	})
}

func (s *Service) findSubject(ctx context.Context, recipient string) (string, error) {
	id, err := s.identity.FindSubject(ctx, recipient)
	switch {
	case errors.Is(err, ErrSubjectNotFound):
		return "", ErrAccountNotFound
	case err != nil:
		return "", fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
	case id == "":
		return "", ErrAccountNotFound
	}
	return id, nil
}

// discard deletes rec at its current version. A record that is already gone
// counts as deleted; a version conflict is returned so the caller can retry.
func (s *Service) discard(ctx context.Context, rec *Record) error {
	err := s.store.Delete(ctx, rec.Purpose, rec.Recipient, rec.Version)
	switch {
	case err == nil, errors.Is(err, ErrRecordNotFound):
		return nil
	case errors.Is(err, ErrVersionConflict):
		return err
	default:
		return storageError(err)
	}
}

func (s *Service) discardQuietly(ctx context.Context, rec *Record, log *slog.Logger) {
	if err := s.discard(ctx, rec); err != nil && !errors.Is(err, ErrVersionConflict) {
		log.ErrorContext(ctx, "failed to delete undelivered otp", logger.Error(err))
	}
}

func normalizeRecipient(recipient string) (string, error) {
	recipient = sanitizer.NormalizeEmail(recipient)
	if err := validator.Apply(
		validator.Required("email", recipient),
		validator.ValidEmail("email", recipient),
	); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return recipient, nil
}

func storageError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
