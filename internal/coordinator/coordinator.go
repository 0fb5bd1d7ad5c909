// Package coordinator implements the order lifecycle: intake, worker
// assignment, transcription hand-off, convergence on completion, and
// download links. All status changes funnel through OrderStore.Update so
// concurrent operations on one order serialize on the store.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/forgemedia/portal/internal/catalog"
	"github.com/forgemedia/portal/internal/lifecycle"
	"github.com/forgemedia/portal/internal/notify"
	"github.com/forgemedia/portal/internal/portal"
)

// DefaultClientID is attributed to submissions that carry no client identity.
const DefaultClientID = "demo-client-1"

// errAlreadySettled marks a completion attempt against an order that is no
// longer transcribing. It never escapes the package; callers treat it as a
// successful no-op.
var errAlreadySettled = errors.New("order already settled")

// Config carries the tunables the coordinator needs beyond its collaborators.
type Config struct {
	// CallbackBaseURL is the externally reachable base for provider
	// callbacks, e.g. https://portal.example.com.
	CallbackBaseURL string
	// CallbackToken, when set, is appended to callback URLs as ?token= and
	// verified by the API layer.
	CallbackToken string
	// SourceTTL bounds the presigned URL handed to the provider (default 15m).
	SourceTTL time.Duration
	// DownloadTTL bounds client download links (default 1h).
	DownloadTTL time.Duration
}

// Coordinator drives orders through their lifecycle.
type Coordinator struct {
	orders   portal.OrderStore
	objects  portal.ObjectStore
	provider portal.TranscriptionProvider
	clock    portal.Clock
	ids      portal.IDGenerator
	emitter  lifecycle.Emitter
	notifier notify.Notifier
	cfg      Config
	logger   *zap.Logger
}

// New wires a Coordinator. Emitter and notifier may be nil.
func New(
	orders portal.OrderStore,
	objects portal.ObjectStore,
	provider portal.TranscriptionProvider,
	clock portal.Clock,
	ids portal.IDGenerator,
	emitter lifecycle.Emitter,
	notifier notify.Notifier,
	cfg Config,
	logger *zap.Logger,
) *Coordinator {
	if emitter == nil {
		emitter = lifecycle.NopEmitter{}
	}
	if notifier == nil {
		notifier = notify.NoOp{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SourceTTL <= 0 {
		cfg.SourceTTL = 15 * time.Minute
	}
	if cfg.DownloadTTL <= 0 {
		cfg.DownloadTTL = time.Hour
	}
	cfg.CallbackBaseURL = strings.TrimRight(cfg.CallbackBaseURL, "/")
	return &Coordinator{
		orders:   orders,
		objects:  objects,
		provider: provider,
		clock:    clock,
		ids:      ids,
		emitter:  emitter,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// SubmitRequest carries a client upload.
type SubmitRequest struct {
	ServiceType  portal.ServiceType
	ClientID     string
	Filename     string
	Instructions string
	Content      io.Reader
	Size         int64
}

// Submit validates the upload against the service catalog, stores the file,
// and creates a pending order. Validation failures happen before any side
// effect; a storage failure leaves no order behind.
func (c *Coordinator) Submit(ctx context.Context, req SubmitRequest) (portal.Order, error) {
	svc, ok := catalog.Lookup(req.ServiceType)
	if !ok {
		return portal.Order{}, fmt.Errorf("%w: unknown service type %q", portal.ErrUnsupportedFormat, req.ServiceType)
	}
	ext := catalog.NormalizeExtension(req.Filename)
	if !svc.Accepts(ext) {
		return portal.Order{}, fmt.Errorf("%w: %s does not accept %q files", portal.ErrUnsupportedFormat, svc.ID, ext)
	}

	orderID, err := c.ids.NewOrderID()
	if err != nil {
		return portal.Order{}, fmt.Errorf("generate order id: %w", err)
	}
	objectName, err := c.ids.NewObjectName()
	if err != nil {
		return portal.Order{}, fmt.Errorf("generate object name: %w", err)
	}
	clientID := req.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}

	key := fmt.Sprintf("uploads/%s/%s.%s", orderID, objectName, ext)
	put, err := c.objects.Put(ctx, key, portal.Upload{
		ContentType: catalog.ContentType(ext),
		Metadata: map[string]string{
			"order_id":          orderID,
			"client_id":         clientID,
			"original_filename": req.Filename,
		},
		Body: req.Content,
		Size: req.Size,
	})
	if err != nil {
		return portal.Order{}, fmt.Errorf("%w: put %s: %v", portal.ErrStorageFailure, key, err)
	}

	now := c.clock.Now().UTC()
	order := portal.Order{
		ID:               orderID,
		ServiceType:      req.ServiceType,
		OriginalFilename: req.Filename,
		StorageKey:       put.Key,
		FileSize:         put.Size,
		FileType:         ext,
		ClientID:         clientID,
		Instructions:     req.Instructions,
		Status:           portal.StatusPending,
		CreatedAt:        now,
	}
	if err := c.orders.Create(ctx, order); err != nil {
		return portal.Order{}, fmt.Errorf("create order: %w", err)
	}

	c.emitter.Emit(lifecycle.Event{
		OrderID:     order.ID,
		TS:          now,
		Stage:       lifecycle.StageOrderCreated,
		ServiceType: order.ServiceType,
	})
	c.logger.Info("order submitted",
		zap.String("order_id", order.ID),
		zap.String("service_type", string(order.ServiceType)),
		zap.String("client_id", order.ClientID),
		zap.Int64("file_size", order.FileSize))
	return order, nil
}

// Assign moves a pending order to assigned and records the worker.
func (c *Coordinator) Assign(ctx context.Context, orderID, worker string) (portal.Order, error) {
	now := c.clock.Now().UTC()
	order, err := c.orders.Update(ctx, orderID, func(o *portal.Order) error {
		if err := o.Transition(portal.StatusAssigned, now); err != nil {
			return err
		}
		o.AssignedWorker = worker
		return nil
	})
	if err != nil {
		return portal.Order{}, err
	}
	c.emitter.Emit(lifecycle.Event{
		OrderID:     order.ID,
		TS:          now,
		Stage:       lifecycle.StageOrderAssigned,
		ServiceType: order.ServiceType,
		From:        portal.StatusPending,
		To:          portal.StatusAssigned,
		Worker:      worker,
	})
	return order, nil
}

// StartTranscription hands an assigned order to the provider: it presigns the
// stored file, starts the external job with a callback URL, and only then
// records the transcribing status plus the provider handle. If the status
// changed between the provider call and the update, the order is left to the
// reconciler to converge.
func (c *Coordinator) StartTranscription(ctx context.Context, orderID string) (portal.Order, error) {
	current, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return portal.Order{}, err
	}
	if current.Status != portal.StatusAssigned {
		return portal.Order{}, fmt.Errorf("%w: start requires assigned, order is %s", portal.ErrInvalidTransition, current.Status)
	}

	sourceURL, err := c.objects.PresignGet(ctx, current.StorageKey, c.cfg.SourceTTL)
	if err != nil {
		return portal.Order{}, fmt.Errorf("%w: presign %s: %v", portal.ErrStorageFailure, current.StorageKey, err)
	}
	start, err := c.provider.Start(ctx, sourceURL, c.callbackURL(orderID))
	if err != nil {
		return portal.Order{}, err
	}

	now := c.clock.Now().UTC()
	order, err := c.orders.Update(ctx, orderID, func(o *portal.Order) error {
		if err := o.Transition(portal.StatusTranscribing, now); err != nil {
			return err
		}
		o.TranscriptionHandle = start.Handle
		return nil
	})
	if err != nil {
		c.logger.Warn("provider job started but order moved on",
			zap.String("order_id", orderID),
			zap.String("handle", start.Handle),
			zap.Error(err))
		return portal.Order{}, err
	}
	c.emitter.Emit(lifecycle.Event{
		OrderID:     order.ID,
		TS:          now,
		Stage:       lifecycle.StageTranscriptionStart,
		ServiceType: order.ServiceType,
		From:        portal.StatusAssigned,
		To:          portal.StatusTranscribing,
		Worker:      order.AssignedWorker,
	})
	return order, nil
}

// Reconcile polls the provider for a transcribing order and settles it if the
// external job finished. Orders in any other status are returned unchanged;
// reconcile never fails an order for being already settled.
func (c *Coordinator) Reconcile(ctx context.Context, orderID string) (portal.Order, error) {
	current, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return portal.Order{}, err
	}
	if current.Status != portal.StatusTranscribing {
		return current, nil
	}
	poll, err := c.provider.Poll(ctx, current.TranscriptionHandle)
	if err != nil {
		return portal.Order{}, err
	}
	if poll.Status != portal.ProviderCompleted {
		return current, nil
	}
	return c.complete(ctx, orderID, poll.Transcript, "reconcile")
}

// IngestCallback applies a provider completion callback. Callbacks are
// always accepted: unknown orders, stale callbacks, and non-completed
// payloads are discarded with an audit event rather than an error.
func (c *Coordinator) IngestCallback(ctx context.Context, orderID string, status portal.ProviderStatus, transcript string) (portal.Order, error) {
	if status != portal.ProviderCompleted {
		c.discardCallback(orderID, fmt.Sprintf("ignoring callback with status %q", status))
		return c.orders.Get(ctx, orderID)
	}
	order, err := c.complete(ctx, orderID, transcript, "callback")
	switch {
	case errors.Is(err, portal.ErrNotFound):
		c.discardCallback(orderID, "callback for unknown order")
		return portal.Order{}, err
	case err != nil:
		return portal.Order{}, err
	}
	return order, nil
}

// complete converges a transcribing order to ready. It is idempotent: a
// second completion attempt finds the order settled and returns it as-is.
func (c *Coordinator) complete(ctx context.Context, orderID, transcript, via string) (portal.Order, error) {
	now := c.clock.Now().UTC()
	order, err := c.orders.Update(ctx, orderID, func(o *portal.Order) error {
		if o.Status != portal.StatusTranscribing {
			return errAlreadySettled
		}
		if err := o.Transition(portal.StatusReady, now); err != nil {
			return err
		}
		o.Transcript = transcript
		return nil
	})
	if errors.Is(err, errAlreadySettled) {
		settled, getErr := c.orders.Get(ctx, orderID)
		if getErr != nil {
			return portal.Order{}, getErr
		}
		c.discardCallback(orderID, fmt.Sprintf("%s completion discarded, order is %s", via, settled.Status))
		return settled, nil
	}
	if err != nil {
		return portal.Order{}, err
	}

	var dur time.Duration
	if order.StartedAt != nil && order.CompletedAt != nil {
		dur = order.CompletedAt.Sub(*order.StartedAt)
	}
	c.emitter.Emit(lifecycle.Event{
		OrderID:     order.ID,
		TS:          now,
		Stage:       lifecycle.StageTranscriptionDone,
		ServiceType: order.ServiceType,
		From:        portal.StatusTranscribing,
		To:          portal.StatusReady,
		Note:        via,
		Dur:         dur,
	})
	c.logger.Info("transcription completed",
		zap.String("order_id", order.ID),
		zap.String("via", via),
		zap.Duration("dur", dur))

	if err := c.notifier.Notify(ctx, notify.Message{
		OrderID:     order.ID,
		ClientID:    order.ClientID,
		ServiceType: order.ServiceType,
		Handle:      order.TranscriptionHandle,
		CompletedAt: now,
	}); err != nil {
		// Notification is best effort; the order is already settled.
		c.logger.Warn("completion notification failed", zap.String("order_id", order.ID), zap.Error(err))
	}
	return order, nil
}

// Finalize closes out a ready order as completed (delivered to the client).
func (c *Coordinator) Finalize(ctx context.Context, orderID string) (portal.Order, error) {
	now := c.clock.Now().UTC()
	order, err := c.orders.Update(ctx, orderID, func(o *portal.Order) error {
		return o.Transition(portal.StatusCompleted, now)
	})
	if err != nil {
		return portal.Order{}, err
	}
	c.emitter.Emit(lifecycle.Event{
		OrderID:     order.ID,
		TS:          now,
		Stage:       lifecycle.StageOrderCompleted,
		ServiceType: order.ServiceType,
		From:        portal.StatusReady,
		To:          portal.StatusCompleted,
	})
	return order, nil
}

// Cancel aborts a non-terminal order. An external transcription job that is
// already running is abandoned, not stopped; its late callback will be
// discarded.
func (c *Coordinator) Cancel(ctx context.Context, orderID string) (portal.Order, error) {
	now := c.clock.Now().UTC()
	var from portal.Status
	order, err := c.orders.Update(ctx, orderID, func(o *portal.Order) error {
		from = o.Status
		return o.Transition(portal.StatusCancelled, now)
	})
	if err != nil {
		return portal.Order{}, err
	}
	c.emitter.Emit(lifecycle.Event{
		OrderID:     order.ID,
		TS:          now,
		Stage:       lifecycle.StageOrderCancelled,
		ServiceType: order.ServiceType,
		From:        from,
		To:          portal.StatusCancelled,
	})
	return order, nil
}

// DownloadLink produces a presigned URL for the stored file of a ready or
// completed order.
func (c *Coordinator) DownloadLink(ctx context.Context, orderID string) (string, error) {
	order, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.Status != portal.StatusReady && order.Status != portal.StatusCompleted {
		return "", fmt.Errorf("%w: download requires ready or completed, order is %s", portal.ErrInvalidTransition, order.Status)
	}
	if order.StorageKey == "" {
		return "", fmt.Errorf("%w: order %s has no stored file", portal.ErrNotFound, orderID)
	}
	url, err := c.objects.PresignGet(ctx, order.StorageKey, c.cfg.DownloadTTL)
	if err != nil {
		return "", fmt.Errorf("%w: presign %s: %v", portal.ErrStorageFailure, order.StorageKey, err)
	}
	return url, nil
}

// Get returns a single order.
func (c *Coordinator) Get(ctx context.Context, orderID string) (portal.Order, error) {
	return c.orders.Get(ctx, orderID)
}

// List returns orders matching the filter, newest first.
func (c *Coordinator) List(ctx context.Context, filter portal.ListFilter) ([]portal.Order, error) {
	return c.orders.List(ctx, filter)
}

func (c *Coordinator) callbackURL(orderID string) string {
	url := fmt.Sprintf("%s/api/callbacks/transcription/%s", c.cfg.CallbackBaseURL, orderID)
	if c.cfg.CallbackToken != "" {
		url += "?token=" + c.cfg.CallbackToken
	}
	return url
}

func (c *Coordinator) discardCallback(orderID, note string) {
	c.emitter.Emit(lifecycle.Event{
		OrderID: orderID,
		TS:      c.clock.Now().UTC(),
		Stage:   lifecycle.StageCallbackDiscarded,
		Note:    note,
	})
	c.logger.Info("callback discarded", zap.String("order_id", orderID), zap.String("note", note))
}
