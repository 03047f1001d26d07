package queue

import (
	"context"
	"sync"
	"time"

	"ctfcast/internal/metrics"
	"ctfcast/internal/models"

	"github.com/sirupsen/logrus"
)

// Store is the durable record of pending notifications. Implemented by
// internal/database; faked in tests.
type Store interface {
	AppendNotification(ctx context.Context, n *models.Notification) error
	UpdateNotificationAttempt(ctx context.Context, id string, attempts int, nextEligibleAt time.Time) error
	RemoveNotification(ctx context.Context, id string) error
	LoadPendingNotifications(ctx context.Context) ([]*models.Notification, error)
	RecordOutcome(ctx context.Context, id, outcome, detail string, attempts int) error
}

type item struct {
	n         *models.Notification
	persisted bool
	inFlight  bool
}

// DeliveryQueue is an in-memory FIFO of pending notifications backed by
// the Store. Producers enqueue concurrently; exactly one worker consumes.
// Every item stays both in memory and on disk until it is delivered or
// permanently dropped, so a restart can rebuild the queue from disk
// alone.
type DeliveryQueue struct {
	mu          sync.Mutex
	items       []*item
	store       Store
	logger      *logrus.Logger
	maxAttempts int
}

func NewDeliveryQueue(store Store, maxAttempts int, logger *logrus.Logger) *DeliveryQueue {
	return &DeliveryQueue{
		store:       store,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// Load repopulates the queue from the store. Called once at startup,
// before the worker runs; the store is the sole source of truth for
// what was pending when the previous process stopped.
func (q *DeliveryQueue) Load(ctx context.Context) error {
	pending, err := q.store.LoadPendingNotifications(ctx)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = q.items[:0]
	for _, n := range pending {
		q.items = append(q.items, &item{n: n, persisted: true})
	}

	q.updateGaugesLocked()
	q.logger.WithField("pending", len(q.items)).Info("Delivery queue loaded from store")
	return nil
}

// Enqueue persists the notification and then makes it visible to the
// worker. A store failure is not fatal: the item is queued in memory
// only and the queue enters degraded-persistence mode until a later
// append succeeds.
func (q *DeliveryQueue) Enqueue(ctx context.Context, n *models.Notification) error {
	persisted := true
	if err := q.store.AppendNotification(ctx, n); err != nil {
		persisted = false
		q.logger.WithError(err).WithField("id", n.ID).
			Warn("Store unavailable; queueing in memory only (degraded persistence)")
		metrics.IncrementCounter("store_append_failures_total", nil, "Failed durable appends")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, &item{n: n, persisted: persisted})

	if persisted {
		q.repersistLocked(ctx)
	}

	q.updateGaugesLocked()
	return nil
}

// DequeueReady returns the oldest notification whose nextEligibleAt has
// passed, marking it in flight. Items still in backoff are skipped, not
// removed; "no item ready" returns nil. The item stays queued until the
// worker reports an outcome via Acknowledge, Reschedule or Drop.
func (q *DeliveryQueue) DequeueReady(now time.Time) *models.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, it := range q.items {
		if it.inFlight {
			continue
		}
		if it.n.NextEligibleAt.After(now) {
			continue
		}
		it.inFlight = true
		return it.n
	}
	return nil
}

// Acknowledge marks a delivery as confirmed. The durable record is
// removed first; if that fails the item stays queued and the same
// notification may be delivered again after a restart (at-least-once).
func (q *DeliveryQueue) Acknowledge(ctx context.Context, id string) error {
	q.mu.Lock()
	it := q.findLocked(id)
	if it == nil {
		q.mu.Unlock()
		return nil
	}
	persisted := it.persisted
	attempts := it.n.Attempts
	q.mu.Unlock()

	if persisted {
		if err := q.store.RemoveNotification(ctx, id); err != nil {
			q.mu.Lock()
			it.inFlight = false
			q.mu.Unlock()
			return err
		}
	}

	q.mu.Lock()
	q.removeLocked(id)
	q.updateGaugesLocked()
	q.mu.Unlock()

	if err := q.store.RecordOutcome(ctx, id, models.OutcomeDelivered, "", attempts); err != nil {
		q.logger.WithError(err).WithField("id", id).Warn("Failed to record delivery outcome")
	}
	metrics.IncrementCounter("notifications_delivered_total", nil, "Notifications delivered")
	return nil
}

// Reschedule records a failed transient attempt. The item is retried in
// place once nextEligibleAt passes; reaching the attempt limit turns the
// reschedule into a permanent drop.
func (q *DeliveryQueue) Reschedule(ctx context.Context, id string, attempts int, nextEligibleAt time.Time) error {
	if attempts >= q.maxAttempts {
		return q.Drop(ctx, id, attempts, models.DropReasonRetriesExhausted)
	}

	q.mu.Lock()
	it := q.findLocked(id)
	if it == nil {
		q.mu.Unlock()
		return nil
	}
	it.n.Attempts = attempts
	it.n.NextEligibleAt = nextEligibleAt
	it.inFlight = false
	persisted := it.persisted
	q.mu.Unlock()

	if persisted {
		if err := q.store.UpdateNotificationAttempt(ctx, id, attempts, nextEligibleAt); err != nil {
			q.logger.WithError(err).WithField("id", id).
				Warn("Failed to persist retry state; backoff will reset on restart")
		}
	}

	q.logger.WithFields(logrus.Fields{
		"id":       id,
		"attempts": attempts,
		"retry_at": nextEligibleAt.Format(time.RFC3339),
	}).Info("Delivery rescheduled")
	return nil
}

// Drop permanently abandons a notification and reports it as lost.
func (q *DeliveryQueue) Drop(ctx context.Context, id string, attempts int, reason string) error {
	q.mu.Lock()
	it := q.findLocked(id)
	if it == nil {
		q.mu.Unlock()
		return nil
	}
	persisted := it.persisted
	q.removeLocked(id)
	q.updateGaugesLocked()
	q.mu.Unlock()

	if persisted {
		if err := q.store.RemoveNotification(ctx, id); err != nil {
			q.logger.WithError(err).WithField("id", id).Warn("Failed to remove dropped notification from store")
		}
	}

	if err := q.store.RecordOutcome(ctx, id, models.OutcomeDropped, reason, attempts); err != nil {
		q.logger.WithError(err).WithField("id", id).Warn("Failed to record drop outcome")
	}

	q.logger.WithFields(logrus.Fields{
		"id":       id,
		"attempts": attempts,
		"reason":   reason,
	}).Error("Notification dropped")
	metrics.IncrementCounter("notifications_dropped_total",
		map[string]string{"reason": reason}, "Notifications permanently dropped")
	return nil
}

// Len reports the number of queued notifications, in flight included.
func (q *DeliveryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Degraded reports whether any queued item exists only in memory.
func (q *DeliveryQueue) Degraded() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.degradedLocked()
}

func (q *DeliveryQueue) degradedLocked() bool {
	for _, it := range q.items {
		if !it.persisted {
			return true
		}
	}
	return false
}

// repersistLocked retries the durable append for memory-only items.
// Called after a successful store write, when the store is likely to be
// reachable again.
func (q *DeliveryQueue) repersistLocked(ctx context.Context) {
	for _, it := range q.items {
		if it.persisted {
			continue
		}
		if err := q.store.AppendNotification(ctx, it.n); err != nil {
			return
		}
		it.persisted = true
		q.logger.WithField("id", it.n.ID).Info("Re-persisted notification; degraded persistence recovering")
	}
}

func (q *DeliveryQueue) findLocked(id string) *item {
	for _, it := range q.items {
		if it.n.ID == id {
			return it
		}
	}
	return nil
}

func (q *DeliveryQueue) removeLocked(id string) {
	for i, it := range q.items {
		if it.n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

func (q *DeliveryQueue) updateGaugesLocked() {
	metrics.SetGauge("queue_depth", float64(len(q.items)), nil, "Pending notifications in the delivery queue")
	degraded := 0.0
	if q.degradedLocked() {
		degraded = 1.0
	}
	metrics.SetGauge("queue_degraded", degraded, nil, "1 when any queued item is memory-only")
}
