package model

import (
	"time"

	"gorm.io/datatypes"
)

// DefaultCurrency is the currency every application fee is charged in.
const DefaultCurrency = "USD"

// Payment records one attempt to pay an application fee through the hosted
// checkout provider.
//
// Fields:
//  ProviderSessionID  – checkout session id returned by the provider (unique when set).
//  ProviderPaymentRef – provider payment intent id, known once the session is paid.
//  ProviderMetadata   – snapshot of the provider session taken at completion.
//  LiveApplicationID  – equals ApplicationID while the payment is pending or
//                       completed and NULL otherwise. Its unique index allows at
//                       most one live payment per application.
type Payment struct {
	ID                 uint64         `gorm:"primaryKey" json:"id"`
	UserID             uint64         `gorm:"not null;index" json:"user_id"`
	ApplicationID      *uint64        `gorm:"index" json:"application_id,omitempty"`
	AmountCents        int64          `gorm:"not null" json:"amount_cents"`
	Currency           string         `gorm:"size:3;not null;default:USD" json:"currency"`
	Description        string         `gorm:"size:255" json:"description,omitempty"`
	Status             PaymentStatus  `gorm:"size:20;not null;default:pending;index" json:"status"`
	ProviderSessionID  *string        `gorm:"size:255;uniqueIndex" json:"provider_session_id,omitempty"`
	ProviderPaymentRef string         `gorm:"size:255" json:"-"`
	ProviderMetadata   datatypes.JSON `json:"-"`
	LiveApplicationID  *uint64        `gorm:"uniqueIndex" json:"-"`
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
	RefundedAt         *time.Time     `json:"refunded_at,omitempty"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// SessionID returns the provider session id or "" when none was stored yet.
func (p Payment) SessionID() string {
	if p.ProviderSessionID == nil {
		return ""
	}
	return *p.ProviderSessionID
}

// BelongsTo reports whether userID owns the payment.
func (p Payment) BelongsTo(userID uint64) bool { return p.UserID == userID }
