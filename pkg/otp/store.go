package otp

import "context"

// Store persists OTP records keyed by (purpose, recipient).
//
// Writes are compare-and-swap on Record.Version: Put with expectedVersion 0
// requires the key to be absent, any other value requires the stored record
// to be at exactly that version. Put increments the version on success.
// A mismatch returns ErrVersionConflict.
type Store interface {
	// Get returns the record or ErrRecordNotFound.
	Get(ctx context.Context, purpose Purpose, recipient string) (*Record, error)
	// Put stores rec when the current version equals expectedVersion.
	// On success rec.Version holds the new version.
	Put(ctx context.Context, rec *Record, expectedVersion int64) error
	// Delete removes the record when its version equals expectedVersion.
	// Deleting a missing record returns ErrRecordNotFound.
	Delete(ctx context.Context, purpose Purpose, recipient string, expectedVersion int64) error
}
