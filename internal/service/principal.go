package service

import "github.com/iliyamo/study-abroad-marketplace/internal/model"

// Principal is the authenticated caller of a service operation. Every
// operation receives it explicitly.
type Principal struct {
	UserID     uint64
	Role       model.UserRole
	RemoteAddr string
}

func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }

// Owns reports whether the principal is the user with the given id.
func (p Principal) Owns(userID uint64) bool { return p.UserID != 0 && p.UserID == userID }

// CanSee reports whether the principal may read a record owned by userID.
func (p Principal) CanSee(userID uint64) bool { return p.Owns(userID) || p.IsAdmin() }
