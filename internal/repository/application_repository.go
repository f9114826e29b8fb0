package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/iliyamo/study-abroad-marketplace/internal/model"
)

// ApplicationRepo persists applications. Status changes go through
// TransitionStatus so that concurrent writers cannot both move the same row.
type ApplicationRepo struct{ db *gorm.DB }

func NewApplicationRepo(db *gorm.DB) *ApplicationRepo { return &ApplicationRepo{db: db} }

func (r *ApplicationRepo) WithTx(tx *gorm.DB) *ApplicationRepo { return &ApplicationRepo{db: tx} }

// Create inserts a. Either unique index (user+program or reference number)
// yields ErrDuplicate.
func (r *ApplicationRepo) Create(ctx context.Context, a *model.Application) error {
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

// GetByID loads the application with its program and institution.
func (r *ApplicationRepo) GetByID(ctx context.Context, id uint64) (model.Application, error) {
	var a model.Application
	err := r.db.WithContext(ctx).Preload("Program").Preload("Institution").Take(&a, id).Error
	return a, translate(err)
}

// FindByUserProgram returns the user's application for a program, if any.
func (r *ApplicationRepo) FindByUserProgram(ctx context.Context, userID, programID uint64) (model.Application, error) {
	var a model.Application
	err := r.db.WithContext(ctx).Where("user_id = ? AND program_id = ?", userID, programID).Take(&a).Error
	return a, translate(err)
}

// TransitionStatus moves the application from one status to another and
// writes the extra columns in the same statement. It reports false when
// the row was not in the expected status.
func (r *ApplicationRepo) TransitionStatus(ctx context.Context, id uint64, from, to model.ApplicationStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&model.Application{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ApplicationFilter narrows List. Query matches the reference number.
type ApplicationFilter struct {
	UserID        uint64
	InstitutionID uint64
	Status        model.ApplicationStatus
	Query         string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Pagination
}

// List returns applications newest first with program and institution.
func (r *ApplicationRepo) List(ctx context.Context, f ApplicationFilter) ([]model.Application, Page, error) {
	q := r.db.WithContext(ctx).Model(&model.Application{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.InstitutionID != 0 {
		q = q.Where("institution_id = ?", f.InstitutionID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		q = q.Where("LOWER(reference_number) LIKE ?", like(s))
	}
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("created_at < ?", *f.CreatedTo)
	}
	var out []model.Application
	page, err := paginate(q.Order("created_at DESC").Order("id DESC"), f.Pagination, &out, "Program", "Institution")
	return out, page, err
}

// CountByStatus returns the number of applications per status.
func (r *ApplicationRepo) CountByStatus(ctx context.Context) (map[model.ApplicationStatus]int64, error) {
	var rows []struct {
		Status model.ApplicationStatus
		N      int64
	}
	err := r.db.WithContext(ctx).Model(&model.Application{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[model.ApplicationStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

// InstitutionCount is one row of TopInstitutions.
type InstitutionCount struct {
	InstitutionID uint64 `json:"institution_id"`
	Name          string `json:"name"`
	Applications  int64  `gorm:"column:total" json:"applications"`
}

// TopInstitutions returns the institutions with the most applications.
func (r *ApplicationRepo) TopInstitutions(ctx context.Context, limit int) ([]InstitutionCount, error) {
	var out []InstitutionCount
	err := r.db.WithContext(ctx).Model(&model.Application{}).
		Select("applications.institution_id, institutions.name, COUNT(*) AS total").
		Joins("JOIN institutions ON institutions.id = applications.institution_id").
		Group("applications.institution_id, institutions.name").
		Order("total DESC").
		Order("applications.institution_id").
		Limit(limit).
		Scan(&out).Error
	return out, err
}
