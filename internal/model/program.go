package model

import "time"

// Program is a course of study offered by exactly one Institution.
type Program struct {
	ID                    uint64    `gorm:"primaryKey" json:"id"`
	InstitutionID         uint64    `gorm:"not null;index" json:"institution_id"`
	Name                  string    `gorm:"size:200;not null" json:"name"`
	Code                  string    `gorm:"size:50" json:"code,omitempty"`
	DegreeType            string    `gorm:"size:50;not null;index" json:"degree_type"`
	FieldOfStudy          string    `gorm:"size:100;not null;index" json:"field_of_study"`
	DurationMonths        int       `json:"duration_months,omitempty"`
	TuitionFeeCents       int64     `gorm:"not null;default:0" json:"tuition_fee_cents"`
	Currency              string    `gorm:"size:3;not null;default:USD" json:"currency"`
	ScholarshipsAvailable bool      `gorm:"not null" json:"scholarships_available"`
	SeatsAvailable        *int      `json:"seats_available,omitempty"`
	IsActive              bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`

	Institution *Institution `gorm:"foreignKey:InstitutionID" json:"institution,omitempty"`
}
