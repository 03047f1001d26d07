package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "ctfcast/internal/errors"
	"ctfcast/internal/models"
	"ctfcast/internal/retry"
	"ctfcast/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Transport sends one formatted notification to the chat platform. The
// worker only consumes the classified result; rate limiting and
// protocol details live behind this interface.
type Transport interface {
	SendPayload(ctx context.Context, payload string) error
}

// Worker drains the delivery queue. Exactly one worker owns one queue:
// delivery is serialized so channel ordering is preserved and the
// transport is never flooded.
//
// Per notification: Pending -> InFlight -> Delivered, Pending (backoff)
// or Dropped.
type Worker struct {
	queue       *DeliveryQueue
	transport   Transport
	backoff     *retry.Backoff
	tick        time.Duration
	sendTimeout time.Duration
	logger      *logrus.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	running     bool
	mu          sync.RWMutex
}

func NewWorker(queue *DeliveryQueue, transport Transport, backoff *retry.Backoff, tick, sendTimeout time.Duration, logger *logrus.Logger) *Worker {
	return &Worker{
		queue:       queue,
		transport:   transport,
		backoff:     backoff,
		tick:        tick,
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Start begins the background delivery loop
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("delivery worker is already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.running = true

	w.wg.Add(1)
	go w.deliverLoop()

	w.logger.WithField("tick", w.tick.String()).Info("Delivery worker started")
	return nil
}

// Stop gracefully stops the worker. An in-flight delivery finishes its
// bounded send; an unknown disposition at shutdown is safe because the
// durable record is only removed on confirmed success.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	w.logger.Info("Stopping delivery worker...")
	w.cancel()
	w.wg.Wait()
	w.running = false
	w.logger.Info("Delivery worker stopped")
}

// IsRunning returns whether the worker is currently active
func (w *Worker) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *Worker) deliverLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			// Drain everything currently eligible before sleeping
			// again; backoff gating is enforced by DequeueReady.
			for w.deliverNext() {
				select {
				case <-w.ctx.Done():
					return
				default:
				}
			}
		}
	}
}

// deliverNext attempts one delivery. Returns true if an item was
// processed, false if nothing was ready.
func (w *Worker) deliverNext() bool {
	n := w.queue.DequeueReady(time.Now())
	if n == nil {
		return false
	}

	ctx, span := tracing.StartSpan(w.ctx, "worker.deliver",
		attribute.String("notification.id", n.ID),
		attribute.Int("notification.attempts", n.Attempts))
	defer span.End()

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	err := w.transport.SendPayload(sendCtx, n.Payload)
	cancel()

	attempts := n.Attempts + 1

	if err == nil {
		if ackErr := w.queue.Acknowledge(ctx, n.ID); ackErr != nil {
			// Kept queued; the same payload may be sent again.
			w.logger.WithError(ackErr).WithField("id", n.ID).
				Warn("Delivered but failed to acknowledge; duplicate delivery possible")
		} else {
			w.logger.WithFields(logrus.Fields{
				"id":       n.ID,
				"attempts": attempts,
			}).Info("Notification delivered")
		}
		tracing.SetSpanStatus(ctx, codes.Ok, "delivered")
		return true
	}

	tracing.RecordError(ctx, err)

	if !apperrors.IsRetryable(err) {
		apperrors.LogError(w.logger, err, "Permanent delivery failure")
		if dropErr := w.queue.Drop(ctx, n.ID, attempts, models.DropReasonPermanentFailure); dropErr != nil {
			w.logger.WithError(dropErr).WithField("id", n.ID).Error("Failed to drop notification")
		}
		return true
	}

	delay := w.backoff.NextDelay(attempts)
	w.logger.WithError(err).WithFields(logrus.Fields{
		"id":       n.ID,
		"attempts": attempts,
		"delay":    delay.String(),
	}).Warn("Transient delivery failure")

	if resErr := w.queue.Reschedule(w.ctx, n.ID, attempts, time.Now().Add(delay)); resErr != nil {
		w.logger.WithError(resErr).WithField("id", n.ID).Error("Failed to reschedule notification")
	}
	return true
}
