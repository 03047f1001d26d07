package models

import (
	"time"

	"github.com/google/uuid"
)

// Drop reasons recorded when a notification is permanently removed
// from the delivery queue without being delivered.
const (
	DropReasonPermanentFailure = "permanent_failure"
	DropReasonRetriesExhausted = "retries_exhausted"
)

// Delivery outcomes recorded in the delivery log.
const (
	OutcomeDelivered = "delivered"
	OutcomeDropped   = "dropped"
)

// Notification is one outbound announcement awaiting delivery. The
// payload is an opaque, fully formatted message body; the queue and
// store never inspect its structure. Attempts and NextEligibleAt are
// mutated only by the delivery worker.
type Notification struct {
	ID             string    `json:"id" db:"id"`
	Payload        string    `json:"payload" db:"payload"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	Attempts       int       `json:"attempts" db:"attempts"`
	NextEligibleAt time.Time `json:"next_eligible_at" db:"next_eligible_at"`
}

// NewNotification creates a pending notification. Producers that have a
// natural idempotency key (such as the poller's game/notice key) pass it
// as id; otherwise a random UUID is assigned.
func NewNotification(id, payload string) *Notification {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return &Notification{
		ID:             id,
		Payload:        payload,
		CreatedAt:      now,
		NextEligibleAt: now,
	}
}

// Equal reports identity by ID only; metadata fields do not participate.
func (n *Notification) Equal(other *Notification) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.ID == other.ID
}
