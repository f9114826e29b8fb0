// Package payment is the boundary to the hosted checkout provider. The
// reconciliation service only sees the Provider interface; stripe.go adapts
// it to Stripe Checkout.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
)

var (
	// ErrInvalidSignature means a webhook could not be authenticated. Such a
	// request must be rejected without being processed.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMalformedEvent means the webhook was authentic but its body could
	// not be decoded.
	ErrMalformedEvent = errors.New("malformed webhook event")
	// ErrProviderUnavailable covers timeouts, transport failures and 5xx
	// answers. The caller may retry.
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	// ErrProviderRejected means the provider refused the request.
	ErrProviderRejected = errors.New("payment provider rejected request")
)

// Metadata keys attached to every checkout session.
const (
	MetaPaymentID     = "payment_id"
	MetaApplicationID = "application_id"
	MetaUserID        = "user_id"
)

// Checkout session states.
const (
	SessionOpen     = "open"
	SessionComplete = "complete"
	SessionExpired  = "expired"
)

// Webhook event types the reconciliation service acts on.
const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventCheckoutAsyncSucceeded = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncFailed    = "checkout.session.async_payment_failed"
	EventCheckoutExpired        = "checkout.session.expired"
)

// CheckoutRequest describes one hosted checkout for a single line item.
type CheckoutRequest struct {
	PaymentID     uint64
	ApplicationID uint64
	UserID        uint64
	AmountMinor   int64
	Currency      string
	Name          string
	Description   string
	SuccessURL    string
	CancelURL     string
}

// Metadata returns the correlation map stored on the provider side.
func (r CheckoutRequest) Metadata() map[string]string {
	return map[string]string{
		MetaPaymentID:     strconv.FormatUint(r.PaymentID, 10),
		MetaApplicationID: strconv.FormatUint(r.ApplicationID, 10),
		MetaUserID:        strconv.FormatUint(r.UserID, 10),
	}
}

// Session is the provider's view of a checkout session.
type Session struct {
	ID          string            `json:"id"`
	URL         string            `json:"url,omitempty"`
	Status      string            `json:"status"`
	Paid        bool              `json:"paid"`
	PaymentRef  string            `json:"payment_ref,omitempty"`
	AmountMinor int64             `json:"amount_minor"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// PaymentID returns the payment_id metadata value.
func (s Session) PaymentID() (uint64, bool) {
	raw, ok := s.Metadata[MetaPaymentID]
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// Snapshot is the JSON stored on the payment row when it completes.
func (s Session) Snapshot() []byte {
	out, _ := json.Marshal(s)
	return out
}

// RefundRequest reverses a paid checkout. PaymentRef may be empty, in which
// case the adapter resolves it from the session.
type RefundRequest struct {
	PaymentID   uint64
	SessionID   string
	PaymentRef  string
	AmountMinor int64
}

// RefundResult is the provider's answer to a refund.
type RefundResult struct {
	ID     string
	Status string
}

// Confirmed reports whether the provider accepted the refund.
func (r RefundResult) Confirmed() bool {
	return r.Status == "succeeded" || r.Status == "pending"
}

// Event is an authenticated webhook delivery. Session is set for checkout
// session events only.
type Event struct {
	ID      string
	Type    string
	Session *Session
}

// Provider is the hosted checkout provider as seen by the service.
type Provider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (Session, error)
	GetSession(ctx context.Context, sessionID string) (Session, error)
	// ExpireSession closes an open session so it can no longer be paid. A
	// session that is no longer open is returned as it is, paid or not.
	ExpireSession(ctx context.Context, sessionID string) (Session, error)
	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)
	ParseWebhook(payload []byte, signature string) (Event, error)
}
