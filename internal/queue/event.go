// Package queue defines the domain events exchanged over the message broker
// and the publishers and consumers that move them.
package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypePaymentCompleted         = "payment.completed"
	TypePaymentRefunded          = "payment.refunded"
	TypePaymentReviewRequired    = "payment.review_required"
	TypeApplicationStatusChanged = "application.status_changed"
)

// Envelope wraps every event on the wire so consumers can dispatch on Type
// before decoding Payload.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into a fresh envelope.
func NewEnvelope(eventType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

// PaymentCompletedEvent is published once, when a payment first reaches
// COMPLETED. Duplicate completion signals do not publish again.
type PaymentCompletedEvent struct {
	PaymentID       uint64    `json:"payment_id"`
	ApplicationID   uint64    `json:"application_id"`
	UserID          uint64    `json:"user_id"`
	ReferenceNumber string    `json:"reference_number,omitempty"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	Source          string    `json:"source"` // return, webhook or sweep
	CompletedAt     time.Time `json:"completed_at"`
}

// PaymentRefundedEvent is published when the provider confirmed a refund.
type PaymentRefundedEvent struct {
	PaymentID   uint64    `json:"payment_id"`
	UserID      uint64    `json:"user_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	RefundID    string    `json:"refund_id"`
	RefundedAt  time.Time `json:"refunded_at"`
}

// PaymentReviewRequiredEvent flags money the provider captured for a
// payment that is no longer pending locally. An operator must reconcile it.
type PaymentReviewRequiredEvent struct {
	PaymentID     uint64 `json:"payment_id"`
	UserID        uint64 `json:"user_id"`
	LocalStatus   string `json:"local_status"`
	SessionID     string `json:"session_id"`
	ProviderEvent string `json:"provider_event"`
}

// ApplicationStatusChangedEvent is published after an admin decision commits.
type ApplicationStatusChangedEvent struct {
	ApplicationID   uint64     `json:"application_id"`
	UserID          uint64     `json:"user_id"`
	ReferenceNumber string     `json:"reference_number"`
	OldStatus       string     `json:"old_status"`
	NewStatus       string     `json:"new_status"`
	DecisionNotes   string     `json:"decision_notes,omitempty"`
	DecisionDate    *time.Time `json:"decision_date,omitempty"`
	DecidedBy       uint64     `json:"decided_by"`
}
