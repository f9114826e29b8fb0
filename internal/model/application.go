package model

import "time"

// Application is a student's request to enroll in a Program.
//
// InstitutionID is denormalized from Program.InstitutionID when the row is
// created and is never taken from request input. ReferenceNumber is a
// unique, system generated 10 character code shown to the student.
type Application struct {
	ID                 uint64            `gorm:"primaryKey" json:"id"`
	UserID             uint64            `gorm:"not null;uniqueIndex:uq_application_user_program,priority:1" json:"user_id"`
	InstitutionID      uint64            `gorm:"not null;index" json:"institution_id"`
	ProgramID          uint64            `gorm:"not null;uniqueIndex:uq_application_user_program,priority:2" json:"program_id"`
	Status             ApplicationStatus `gorm:"size:20;not null;default:draft;index" json:"status"`
	ReferenceNumber    string            `gorm:"size:20;not null;uniqueIndex" json:"reference_number"`
	PersonalStatement  string            `gorm:"type:text" json:"personal_statement,omitempty"`
	StatementOfPurpose string            `gorm:"type:text" json:"statement_of_purpose,omitempty"`
	SubmittedAt        *time.Time        `json:"submitted_at,omitempty"`
	DecisionDate       *time.Time        `json:"decision_date,omitempty"`
	DecisionNotes      string            `gorm:"type:text" json:"decision_notes,omitempty"`
	CreatedAt          time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`

	Program     *Program     `gorm:"foreignKey:ProgramID" json:"program,omitempty"`
	Institution *Institution `gorm:"foreignKey:InstitutionID" json:"institution,omitempty"`
}
