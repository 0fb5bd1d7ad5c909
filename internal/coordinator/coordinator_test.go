package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgemedia/portal/internal/lifecycle"
	notifymem "github.com/forgemedia/portal/internal/notify/memory"
	objectmem "github.com/forgemedia/portal/internal/objectstore/memory"
	"github.com/forgemedia/portal/internal/portal"
	providermem "github.com/forgemedia/portal/internal/provider/memory"
	storemem "github.com/forgemedia/portal/internal/store/memory"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewOrderID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("ORD-%04d", g.n), nil
}

func (g *seqIDs) NewObjectName() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return "obj", nil
}

type captureEmitter struct {
	mu     sync.Mutex
	events []lifecycle.Event
}

func (e *captureEmitter) Emit(evt lifecycle.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, evt)
}

func (e *captureEmitter) Stages() []lifecycle.Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]lifecycle.Stage, 0, len(e.events))
	for _, evt := range e.events {
		out = append(out, evt.Stage)
	}
	return out
}

type fixture struct {
	co       *Coordinator
	orders   *storemem.OrderStore
	objects  *objectmem.ObjectStore
	provider *providermem.Provider
	notifier *notifymem.Notifier
	emitter  *captureEmitter
	clock    *fixedClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orders:   storemem.NewOrderStore(),
		objects:  objectmem.NewObjectStore(),
		provider: providermem.New(),
		notifier: notifymem.New(),
		emitter:  &captureEmitter{},
		clock:    &fixedClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)},
	}
	f.co = New(f.orders, f.objects, f.provider, f.clock, &seqIDs{}, f.emitter, f.notifier, Config{
		CallbackBaseURL: "https://portal.example.com",
		CallbackToken:   "cb-secret",
	}, nil)
	return f
}

func submitOrder(t *testing.T, f *fixture) portal.Order {
	t.Helper()
	order, err := f.co.Submit(context.Background(), SubmitRequest{
		ServiceType:  portal.ServiceDubbingVoiceover,
		ClientID:     "client-7",
		Filename:     "meeting.MP4",
		Instructions: "speaker labels please",
		Content:      strings.NewReader("fake video bytes"),
		Size:         16,
	})
	require.NoError(t, err)
	return order
}

func TestSubmit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	order := submitOrder(t, f)
	require.Equal(t, portal.StatusPending, order.Status)
	require.Equal(t, "client-7", order.ClientID)
	require.Equal(t, "mp4", order.FileType)
	require.Equal(t, int64(16), order.FileSize)
	require.Equal(t, "uploads/"+order.ID+"/obj.mp4", order.StorageKey)
	require.Equal(t, f.clock.Now(), order.CreatedAt)

	stored, ok := f.objects.Get(order.StorageKey)
	require.True(t, ok)
	require.Equal(t, "video/mp4", stored.ContentType)
	require.Equal(t, order.ID, stored.Metadata["order_id"])

	require.Equal(t, []lifecycle.Stage{lifecycle.StageOrderCreated}, f.emitter.Stages())
}

func TestSubmit_DefaultsClientID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	order, err := f.co.Submit(context.Background(), SubmitRequest{
		ServiceType: portal.ServiceCaptionsCleanup,
		Filename:    "show.srt",
		Content:     strings.NewReader("1\n00:00 --> 00:01\nhi\n"),
	})
	require.NoError(t, err)
	require.Equal(t, DefaultClientID, order.ClientID)
}

func TestSubmit_UnsupportedFormatCreatesNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.co.Submit(context.Background(), SubmitRequest{
		ServiceType: portal.ServiceTranscriptCleanup,
		Filename:    "notes.exe",
		Content:     strings.NewReader("x"),
	})
	require.ErrorIs(t, err, portal.ErrUnsupportedFormat)

	_, err = f.co.Submit(context.Background(), SubmitRequest{
		ServiceType: portal.ServiceType("mystery"),
		Filename:    "a.mp4",
		Content:     strings.NewReader("x"),
	})
	require.ErrorIs(t, err, portal.ErrUnsupportedFormat)

	orders, err := f.co.List(context.Background(), portal.ListFilter{})
	require.NoError(t, err)
	require.Empty(t, orders)
	require.Zero(t, f.objects.Len())
	require.Empty(t, f.emitter.Stages())
}

func TestAssignAndStart(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	order := submitOrder(t, f)

	assigned, err := f.co.Assign(ctx, order.ID, "worker-3")
	require.NoError(t, err)
	require.Equal(t, portal.StatusAssigned, assigned.Status)
	require.Equal(t, "worker-3", assigned.AssignedWorker)

	f.clock.Advance(time.Minute)
	started, err := f.co.StartTranscription(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, portal.StatusTranscribing, started.Status)
	require.NotEmpty(t, started.TranscriptionHandle)
	require.NotNil(t, started.StartedAt)
	require.Equal(t, f.clock.Now(), *started.StartedAt)

	cb := f.provider.CallbackURL(started.TranscriptionHandle)
	require.Equal(t, "https://portal.example.com/api/callbacks/transcription/"+order.ID+"?token=cb-secret", cb)
}

func TestStart_RequiresAssigned(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	order := submitOrder(t, f)

	_, err := f.co.StartTranscription(context.Background(), order.ID)
	require.ErrorIs(t, err, portal.ErrInvalidTransition)
}

func TestStart_ProviderDown(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	order := submitOrder(t, f)
	_, err := f.co.Assign(ctx, order.ID, "worker-1")
	require.NoError(t, err)

	f.provider.FailNext(true)
	_, err = f.co.StartTranscription(ctx, order.ID)
	require.ErrorIs(t, err, portal.ErrProviderUnavailable)

	// Order stays assigned so the start can be retried.
	got, err := f.co.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, portal.StatusAssigned, got.Status)
}

func startTranscribing(t *testing.T, f *fixture) portal.Order {
	t.Helper()
	ctx := context.Background()
	order := submitOrder(t, f)
	_, err := f.co.Assign(ctx, order.ID, "worker-1")
	require.NoError(t, err)
	started, err := f.co.StartTranscription(ctx, order.ID)
	require.NoError(t, err)
	return started
}

func TestReconcile_CompletesOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	order := startTranscribing(t, f)

	// Provider still working: reconcile is a no-op.
	got, err := f.co.Reconcile(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, portal.StatusTranscribing, got.Status)

	f.provider.SetResult(order.TranscriptionHandle, portal.PollResult{
		Status:     portal.ProviderCompleted,
		Transcript: "hello from the provider",
	})
	f.clock.Advance(42 * time.Second)

	got, err = f.co.Reconcile(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, portal.StatusReady, got.Status)
	require.Equal(t, "hello from the provider", got.Transcript)
	require.NotNil(t, got.CompletedAt)

	msgs := f.notifier.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, order.ID, msgs[0].OrderID)
}

func TestReconcile_NonTranscribingIsNoOp(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	order := submitOrder(t, f)

	got, err := f.co.Reconcile(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, portal.StatusPending, got.Status)
}

func TestIngestCallback_Completes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	order := startTranscribing(t, f)

	got, err := f.co.IngestCallback(ctx, order.ID, portal.ProviderCompleted, "callback transcript")
	require.NoError(t, err)
	require.Equal(t, portal.StatusReady, got.Status)
	require.Equal(t, "callback transcript", got.Transcript)
	require.Len(t, f.notifier.Messages(), 1)
}

func TestIngestCallback_DuplicateIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	order := startTranscribing(t, f)

	first, err := f.co.IngestCallback(ctx, order.ID, portal.ProviderCompleted, "first transcript")
	require.NoError(t, err)
	require.Equal(t, portal.StatusReady, first.Status)

	second, err := f.co.IngestCallback(ctx, order.ID, portal.ProviderCompleted, "second transcript")
	require.NoError(t, err)
	require.Equal(t, portal.StatusReady, second.Status)
	require.Equal(t, "first transcript", second.Transcript)

	// Exactly one completion: one notification, one TRANSCRIPTION_DONE,
	// and a discard marker for the duplicate.
	require.Len(t, f.notifier.Messages(), 1)
	stages := f.emitter.Stages()
	require.Contains(t, stages, lifecycle.StageCallbackDiscarded)
	done := 0
	for _, s := range stages {
		if s == lifecycle.StageTranscriptionDone {
			done++
		}
	}
	require.Equal(t, 1, done)
}

func TestIngestCallback_InProgressDiscarded(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	order := startTranscribing(t, f)

	got, err := f.co.IngestCallback(ctx, order.ID, portal.ProviderInProgress, "")
	require.NoError(t, err)
	require.Equal(t, portal.StatusTranscribing, got.Status)
	require.Contains(t, f.emitter.Stages(), lifecycle.StageCallbackDiscarded)
}

func TestIngestCallback_UnknownOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.co.IngestCallback(context.Background(), "ORD-missing", portal.ProviderCompleted, "x")
	require.ErrorIs(t, err, portal.ErrNotFound)
	require.Contains(t, f.emitter.Stages(), lifecycle.StageCallbackDiscarded)
}

func TestReconcileAndCallbackRace_OneCompletionWins(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	order := startTranscribing(t, f)
	f.provider.SetResult(order.TranscriptionHandle, portal.PollResult{
		Status:     portal.ProviderCompleted,
		Transcript: "poll transcript",
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.co.Reconcile(ctx, order.ID)
			require.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.co.IngestCallback(ctx, order.ID, portal.ProviderCompleted, "callback transcript")
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := f.co.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, portal.StatusReady, got.Status)
	require.Contains(t, []string{"poll transcript", "callback transcript"}, got.Transcript)
	require.Len(t, f.notifier.Messages(), 1)
}

func TestFinalize(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	order := startTranscribing(t, f)
	_, err := f.co.IngestCallback(ctx, order.ID, portal.ProviderCompleted, "done")
	require.NoError(t, err)

	final, err := f.co.Finalize(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, portal.StatusCompleted, final.Status)

	_, err = f.co.Finalize(ctx, order.ID)
	require.ErrorIs(t, err, portal.ErrInvalidTransition)
}

func TestCancel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	order := startTranscribing(t, f)

	cancelled, err := f.co.Cancel(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, portal.StatusCancelled, cancelled.Status)

	// The abandoned provider job's late callback is discarded.
	got, err := f.co.IngestCallback(ctx, order.ID, portal.ProviderCompleted, "too late")
	require.NoError(t, err)
	require.Equal(t, portal.StatusCancelled, got.Status)
	require.Empty(t, got.Transcript)
	require.Empty(t, f.notifier.Messages())

	_, err = f.co.Cancel(ctx, order.ID)
	require.ErrorIs(t, err, portal.ErrInvalidTransition)
}

func TestDownloadLink(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	order := startTranscribing(t, f)

	_, err := f.co.DownloadLink(ctx, order.ID)
	require.ErrorIs(t, err, portal.ErrInvalidTransition)

	_, err = f.co.IngestCallback(ctx, order.ID, portal.ProviderCompleted, "done")
	require.NoError(t, err)

	url, err := f.co.DownloadLink(ctx, order.ID)
	require.NoError(t, err)
	require.Contains(t, url, order.StorageKey)

	_, err = f.co.DownloadLink(ctx, "ORD-missing")
	require.ErrorIs(t, err, portal.ErrNotFound)
}

func TestList_FiltersByStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	a := submitOrder(t, f)
	f.clock.Advance(time.Second)
	b := submitOrder(t, f)
	_, err := f.co.Assign(ctx, b.ID, "worker-9")
	require.NoError(t, err)

	pending, err := f.co.List(ctx, portal.ListFilter{Status: portal.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, a.ID, pending[0].ID)

	all, err := f.co.List(ctx, portal.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
}
