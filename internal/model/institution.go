package model

import "time"

// Institution is a degree-granting organization. ApplicationFeeCents is the
// fee charged per application in minor units; zero or less means students
// apply for free.
type Institution struct {
	ID                   uint64    `gorm:"primaryKey" json:"id"`
	Name                 string    `gorm:"size:200;not null;index" json:"name"`
	ShortName            string    `gorm:"size:50" json:"short_name,omitempty"`
	Description          string    `gorm:"type:text" json:"description,omitempty"`
	Country              string    `gorm:"size:100;not null" json:"country"`
	CountryCode          string    `gorm:"size:2;not null;index" json:"country_code"`
	City                 string    `gorm:"size:100;not null" json:"city"`
	Website              string    `gorm:"size:200" json:"website,omitempty"`
	Type                 string    `gorm:"size:50" json:"type,omitempty"`
	WorldRanking         *int      `json:"world_ranking,omitempty"`
	ApplicationFeeCents  int64     `gorm:"not null;default:0" json:"application_fee_cents"`
	AcceptsInternational bool      `gorm:"not null" json:"accepts_international"`
	IsActive             bool      `gorm:"not null;index" json:"is_active"`
	IsVerified           bool      `gorm:"not null" json:"is_verified"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`

	Programs []Program `gorm:"foreignKey:InstitutionID" json:"programs,omitempty"`
}

// RequiresPayment reports whether applying to this institution costs money.
func (i Institution) RequiresPayment() bool { return i.ApplicationFeeCents > 0 }
