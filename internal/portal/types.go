// Package portal defines core types shared across subsystems.
package portal

import (
	"fmt"
	"time"
)

// Status represents the lifecycle state of an order.
type Status string

// Order status values persisted in the order store.
const (
	StatusPending      Status = "pending"
	StatusAssigned     Status = "assigned"
	StatusTranscribing Status = "transcribing"
	StatusReady        Status = "ready"
	StatusCompleted    Status = "completed"
	StatusCancelled    Status = "cancelled"
)

// transitions lists the edges of the order state machine. Cancellation is
// reachable from every non-terminal state; completed and cancelled accept
// nothing further.
var transitions = map[Status][]Status{
	StatusPending:      {StatusAssigned, StatusCancelled},
	StatusAssigned:     {StatusTranscribing, StatusCancelled},
	StatusTranscribing: {StatusReady, StatusCancelled},
	StatusReady:        {StatusCompleted, StatusCancelled},
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusTranscribing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are accepted from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether the edge s -> to exists in the state machine.
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ServiceType is the closed set of services an order can be placed against.
type ServiceType string

// Supported service types.
const (
	ServiceTranscriptCleanup ServiceType = "transcript_cleanup"
	ServiceCaptionsCleanup   ServiceType = "captions_cleanup"
	ServiceDubbingVoiceover  ServiceType = "dubbing_voiceover"
)

// Valid reports whether t is a known service type.
func (t ServiceType) Valid() bool {
	switch t {
	case ServiceTranscriptCleanup, ServiceCaptionsCleanup, ServiceDubbingVoiceover:
		return true
	default:
		return false
	}
}

// Order represents a single client file submission tracked through the
// transcription lifecycle.
type Order struct {
	ID                  string      `json:"id"`
	ServiceType         ServiceType `json:"service_type"`
	OriginalFilename    string      `json:"original_filename"`
	StorageKey          string      `json:"storage_key,omitempty"`
	FileSize            int64       `json:"file_size"`
	FileType            string      `json:"file_type"`
	ClientID            string      `json:"client_id"`
	Instructions        string      `json:"instructions,omitempty"`
	Status              Status      `json:"status"`
	AssignedWorker      string      `json:"assigned_worker,omitempty"`
	TranscriptionHandle string      `json:"transcription_handle,omitempty"`
	Transcript          string      `json:"transcript,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	StartedAt           *time.Time  `json:"started_at,omitempty"`
	CompletedAt         *time.Time  `json:"completed_at,omitempty"`
}

// Transition moves the order to the requested status, enforcing the state
// machine. On an illegal edge the order is left untouched and the returned
// error wraps ErrInvalidTransition. Entry into transcribing stamps StartedAt;
// entry into ready stamps CompletedAt.
func (o *Order) Transition(to Status, now time.Time) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !o.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	o.Status = to
	switch to {
	case StatusTranscribing:
		if o.StartedAt == nil {
			ts := now
			o.StartedAt = &ts
		}
	case StatusReady:
		if o.CompletedAt == nil {
			ts := now
			o.CompletedAt = &ts
		}
	}
	return nil
}
