package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/iliyamo/study-abroad-marketplace/internal/model"
)

// UserRepo persists accounts.
type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

// WithTx binds the repo to an open transaction.
func (r *UserRepo) WithTx(tx *gorm.DB) *UserRepo { return &UserRepo{db: tx} }

// Create inserts u. A taken email yields ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return translate(r.db.WithContext(ctx).Create(u).Error)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Take(&u).Error
	return u, translate(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Take(&u, id).Error
	return u, translate(err)
}

// SetPasswordHash replaces the stored bcrypt hash.
func (r *UserRepo) SetPasswordHash(ctx context.Context, id uint64, hash string) error {
	return translate(r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("password_hash", hash).Error)
}

// SetActive flips users.is_active and reports ErrNotFound for unknown ids.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IsActive reports users.is_active; an unknown id is not active.
func (r *UserRepo) IsActive(ctx context.Context, id uint64) (bool, error) {
	var active bool
	err := r.db.WithContext(ctx).Model(&model.User{}).Select("is_active").Where("id = ?", id).Take(&active).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return active, err
}

// TouchLastLogin stamps users.last_login_at.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// UserFilter narrows ListUsers.
type UserFilter struct {
	Search string
	Role   model.UserRole
	Active *bool
	Pagination
}

// List returns users newest first.
func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]model.User, Page, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})
	if s := strings.TrimSpace(f.Search); s != "" {
		p := like(s)
		q = q.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", p, p, p)
	}
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	var users []model.User
	page, err := paginate(q.Order("created_at DESC").Order("id DESC"), f.Pagination, &users)
	return users, page, err
}

// Count returns the number of users, optionally restricted to one role.
func (r *UserRepo) Count(ctx context.Context, role model.UserRole) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}
