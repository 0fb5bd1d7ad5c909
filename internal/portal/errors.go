package portal

import "errors"

// Sentinel errors surfaced by the coordinator and its collaborators. Callers
// match them with errors.Is; the API layer maps them onto HTTP statuses.
var (
	// ErrNotFound signals an unknown order id.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidTransition signals an operation illegal for the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnsupportedFormat signals a file extension outside the service's
	// accepted set, or an unknown service type. Raised before any side effect.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrStorageFailure signals an object storage failure. Retryable by the
	// caller; never retried internally.
	ErrStorageFailure = errors.New("object storage failure")
	// ErrProviderUnavailable signals a transcription provider failure or
	// rejection. Retryable by the caller; never retried internally.
	ErrProviderUnavailable = errors.New("transcription provider unavailable")
)
