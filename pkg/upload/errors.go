package upload

import "errors"

var (
	ErrInvalidConfig      = errors.New("invalid upload configuration")
	ErrFailedToLoadConfig = errors.New("failed to load AWS config")
	ErrPresignFailed      = errors.New("failed to presign upload")
	ErrAccessDenied       = errors.New("access denied")
	ErrOperationTimeout   = errors.New("operation timed out")
	ErrOperationCanceled  = errors.New("operation canceled")
)
