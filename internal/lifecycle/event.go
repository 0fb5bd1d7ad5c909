package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/forgemedia/portal/internal/portal"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported lifecycle stages.
const (
	StageOrderCreated       Stage = "ORDER_CREATED"
	StageOrderAssigned      Stage = "ORDER_ASSIGNED"
	StageTranscriptionStart Stage = "TRANSCRIPTION_START"
	StageTranscriptionDone  Stage = "TRANSCRIPTION_DONE"
	StageOrderCompleted     Stage = "ORDER_COMPLETED"
	StageOrderCancelled     Stage = "ORDER_CANCELLED"
	StageCallbackDiscarded  Stage = "CALLBACK_DISCARDED"
)

// Event captures a single milestone in an order's lifecycle.
type Event struct {
	// OrderID identifies the order the milestone belongs to.
	OrderID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// ServiceType is the order's service, for partitioned metrics.
	ServiceType portal.ServiceType
	// From and To record the status edge for transition stages.
	From portal.Status
	To   portal.Status
	// Worker optionally names the assigned worker.
	Worker string
	// Note lets emitters attach low-volume debug context (e.g. discard reason).
	Note string
	// Dur captures elapsed time for completion stages.
	Dur time.Duration
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.OrderID == "" {
		return errors.New("order id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageOrderCreated:
		if !e.ServiceType.Valid() {
			return fmt.Errorf("order created requires a valid service type, got %q", e.ServiceType)
		}
	case StageOrderAssigned, StageTranscriptionStart, StageTranscriptionDone,
		StageOrderCompleted, StageOrderCancelled:
		if e.To == "" {
			return fmt.Errorf("stage %s requires a target status", e.Stage)
		}
	case StageCallbackDiscarded:
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
