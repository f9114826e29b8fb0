package model

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions written to admin_logs.
const (
	ActionApplicationStatusUpdated = "application_status_updated"
	ActionUserActivated            = "user_activated"
	ActionUserDeactivated          = "user_deactivated"
	ActionInstitutionCreated       = "institution_created"
	ActionInstitutionUpdated       = "institution_updated"
	ActionProgramCreated           = "program_created"
	ActionProgramUpdated           = "program_updated"
	ActionPaymentRefunded          = "payment_refunded"
)

// Audit target types.
const (
	TargetApplication = "application"
	TargetUser        = "user"
	TargetInstitution = "institution"
	TargetProgram     = "program"
	TargetPayment     = "payment"
)

// AdminLog is an append-only audit record of an admin initiated change.
type AdminLog struct {
	ID         uint64         `gorm:"primaryKey" json:"id"`
	AdminID    uint64         `gorm:"not null;index" json:"admin_id"`
	Action     string         `gorm:"size:100;not null;index" json:"action"`
	TargetType string         `gorm:"size:50;index:idx_admin_log_target,priority:1" json:"target_type,omitempty"`
	TargetID   uint64         `gorm:"index:idx_admin_log_target,priority:2" json:"target_id,omitempty"`
	Details    datatypes.JSON `json:"details,omitempty"`
	IPAddress  string         `gorm:"size:45" json:"ip_address,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

// AllModels lists every table owned by the service, in migration order.
func AllModels() []any {
	return []any{
		&User{}, &RefreshToken{}, &Institution{}, &Program{},
		&Application{}, &Payment{}, &AdminLog{},
	}
}
