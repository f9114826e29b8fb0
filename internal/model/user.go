package model

import "time"

// User represents an account as stored in the `users` table. Accounts are
// never hard-deleted; an admin flips IsActive instead.
//
// Fields:
//  ID             – primary key identifier of the user.
//  Email          – unique, lower-cased email address.
//  PasswordHash   – bcrypt hashed password.
//  Role           – student, admin or institution.
//  IsActive       – inactive users cannot log in and their tokens stop working.
//  IsVerified     – set by an admin once the profile has been checked.
//  LastLoginAt    – stamped on every successful login.
type User struct {
	ID              uint64     `gorm:"primaryKey" json:"id"`
	Email           string     `gorm:"size:120;uniqueIndex;not null" json:"email"`
	PasswordHash    string     `gorm:"size:255;not null" json:"-"`
	FirstName       string     `gorm:"size:50;not null" json:"first_name"`
	LastName        string     `gorm:"size:50;not null" json:"last_name"`
	Phone           string     `gorm:"size:20" json:"phone,omitempty"`
	Country         string     `gorm:"size:2" json:"country,omitempty"`
	Role            UserRole   `gorm:"size:20;not null;default:student;index" json:"role"`
	EducationLevel  string     `gorm:"size:50" json:"education_level,omitempty"`
	FieldOfInterest string     `gorm:"size:100" json:"field_of_interest,omitempty"`
	IsActive        bool       `gorm:"not null" json:"is_active"`
	IsVerified      bool       `gorm:"not null" json:"is_verified"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// RefreshToken models an entry in the `refresh_tokens` table. The plain
// token is never stored; only its SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     `gorm:"primaryKey"`
	UserID    uint64     `gorm:"not null;index"`
	TokenHash string     `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt time.Time  `gorm:"not null"`
	RevokedAt *time.Time
	CreatedAt time.Time
}
