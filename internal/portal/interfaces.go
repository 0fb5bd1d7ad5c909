package portal

import (
	"context"
	"io"
	"time"
)

// Mutation is applied to a copy of an order inside OrderStore.Update. It
// signals the requested transition through Order.Transition; returning an
// error aborts the update with no visible change.
type Mutation func(*Order) error

// ListFilter narrows OrderStore.List results. Zero values match everything.
type ListFilter struct {
	Status   Status
	ClientID string
}

// OrderStore owns the authoritative order collection. Update must be atomic
// with respect to concurrent callers for the same id: of two mutually
// exclusive transitions at most one succeeds. Reads may proceed concurrently
// with unrelated writes but never observe a partially applied order.
type OrderStore interface {
	Create(ctx context.Context, order Order) error
	Get(ctx context.Context, id string) (Order, error)
	Update(ctx context.Context, id string, apply Mutation) (Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, error)
}

// Upload carries the byte stream and metadata for an object store put.
type Upload struct {
	ContentType string
	Metadata    map[string]string
	Body        io.Reader
	Size        int64
}

// PutResult reports where an upload landed.
type PutResult struct {
	Key  string
	Size int64
}

// ObjectStore abstracts blob storage: store bytes under a key and produce a
// time-limited retrieval URL for one. Failures are reported, not retried.
type ObjectStore interface {
	Put(ctx context.Context, key string, upload Upload) (PutResult, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ProviderStatus is the provider-side state of an external transcription job.
type ProviderStatus string

// Provider job states reported by poll and callback payloads.
const (
	ProviderInProgress ProviderStatus = "in_progress"
	ProviderCompleted  ProviderStatus = "completed"
)

// StartResult carries the opaque handle the provider returns for a started job.
type StartResult struct {
	Handle string
}

// PollResult is the provider's answer to a status poll.
type PollResult struct {
	Status     ProviderStatus
	Transcript string
}

// TranscriptionProvider abstracts the external transcription service.
type TranscriptionProvider interface {
	Start(ctx context.Context, sourceURL, callbackURL string) (StartResult, error)
	Poll(ctx context.Context, handle string) (PollResult, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces order ids and unique object names.
type IDGenerator interface {
	NewOrderID() (string, error)
	NewObjectName() (string, error)
}
