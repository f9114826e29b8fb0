package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEnum is wrapped by every Parse function when the input is not
// one of the known values for that enum.
var ErrInvalidEnum = errors.New("invalid enum value")

// UserRole is the role stored on users.role and carried in the JWT "role" claim.
type UserRole string

const (
	RoleStudent     UserRole = "student"
	RoleAdmin       UserRole = "admin"
	RoleInstitution UserRole = "institution"
)

var userRoles = []UserRole{RoleStudent, RoleAdmin, RoleInstitution}

// ParseUserRole normalizes s and checks it against the known roles.
func ParseUserRole(s string) (UserRole, error) {
	v := UserRole(normalize(s))
	for _, r := range userRoles {
		if v == r {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: role %q", ErrInvalidEnum, s)
}

// ApplicationStatus is the lifecycle state of an application.
type ApplicationStatus string

const (
	ApplicationDraft       ApplicationStatus = "draft"
	ApplicationSubmitted   ApplicationStatus = "submitted"
	ApplicationUnderReview ApplicationStatus = "under_review"
	ApplicationAccepted    ApplicationStatus = "accepted"
	ApplicationRejected    ApplicationStatus = "rejected"
	ApplicationWaitlisted  ApplicationStatus = "waitlisted"
)

var applicationStatuses = []ApplicationStatus{
	ApplicationDraft, ApplicationSubmitted, ApplicationUnderReview,
	ApplicationAccepted, ApplicationRejected, ApplicationWaitlisted,
}

// ApplicationStatuses returns every application status in lifecycle order.
func ApplicationStatuses() []ApplicationStatus {
	out := make([]ApplicationStatus, len(applicationStatuses))
	copy(out, applicationStatuses)
	return out
}

// ParseApplicationStatus normalizes s and checks it against the known statuses.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	v := ApplicationStatus(normalize(s))
	for _, st := range applicationStatuses {
		if v == st {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: application status %q", ErrInvalidEnum, s)
}

// IsTerminal reports whether no further decision may move the application.
func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationAccepted || s == ApplicationRejected
}

// IsFinalDecision reports whether reaching s stamps decision_date.
func (s ApplicationStatus) IsFinalDecision() bool {
	return s == ApplicationAccepted || s == ApplicationRejected
}

// decisionTransitions lists the states an admin decision may move an
// application into, keyed by its current state. Draft is owned by the
// student; accepted and rejected have no outgoing edges.
var decisionTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationSubmitted:   {ApplicationUnderReview, ApplicationAccepted, ApplicationRejected, ApplicationWaitlisted},
	ApplicationUnderReview: {ApplicationAccepted, ApplicationRejected, ApplicationWaitlisted},
	ApplicationWaitlisted:  {ApplicationUnderReview, ApplicationAccepted, ApplicationRejected},
}

// CanDecide reports whether an admin may move an application from s to next.
func (s ApplicationStatus) CanDecide(next ApplicationStatus) bool {
	for _, allowed := range decisionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus is the state of a payment record.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

var paymentStatuses = []PaymentStatus{PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded}

// ParsePaymentStatus normalizes s and checks it against the known statuses.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	v := PaymentStatus(normalize(s))
	for _, st := range paymentStatuses {
		if v == st {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: payment status %q", ErrInvalidEnum, s)
}

// HoldsSlot reports whether a payment in this status occupies the single
// live payment slot of its application.
func (s PaymentStatus) HoldsSlot() bool {
	return s == PaymentPending || s == PaymentCompleted
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
