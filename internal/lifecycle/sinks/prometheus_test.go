package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/forgemedia/portal/internal/lifecycle"
	"github.com/forgemedia/portal/internal/portal"
)

// TestPrometheusSinkRecordsMetrics ensures counters and histograms are incremented from events.
func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	orderID := "ORD-0198f0aa-0000-7000-8000-000000000001"
	now := time.Now().UTC()
	batch := []lifecycle.Event{
		{OrderID: orderID, TS: now, Stage: lifecycle.StageOrderCreated, ServiceType: portal.ServiceDubbingVoiceover},
		{
			OrderID: orderID, TS: now.Add(time.Second), Stage: lifecycle.StageOrderAssigned,
			From: portal.StatusPending, To: portal.StatusAssigned,
		},
		{
			OrderID: orderID, TS: now.Add(2 * time.Second), Stage: lifecycle.StageTranscriptionDone,
			ServiceType: portal.ServiceDubbingVoiceover,
			From:        portal.StatusTranscribing, To: portal.StatusReady,
			Dur: 42 * time.Second,
		},
		{
			OrderID: orderID, TS: now.Add(3 * time.Second), Stage: lifecycle.StageOrderCompleted,
			From: portal.StatusReady, To: portal.StatusCompleted,
		},
		{OrderID: orderID, TS: now.Add(4 * time.Second), Stage: lifecycle.StageCallbackDiscarded, Note: "stale"},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.ordersCreated.WithLabelValues(string(portal.ServiceDubbingVoiceover))))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.transitions.WithLabelValues("pending", "assigned")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.transitions.WithLabelValues("transcribing", "ready")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.transitions.WithLabelValues("ready", "completed")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.ordersActive))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.callbacksDropped))
	require.Equal(t, 1, testutil.CollectAndCount(sink.transcription, "portal_transcription_seconds"))
}

// TestPrometheusSinkDuplicateRegistration surfaces registry conflicts as errors.
func TestPrometheusSinkDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
