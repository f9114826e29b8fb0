package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iliyamo/study-abroad-marketplace/internal/model"
)

// ProgramRepo persists programs.
type ProgramRepo struct{ db *gorm.DB }

func NewProgramRepo(db *gorm.DB) *ProgramRepo { return &ProgramRepo{db: db} }

func (r *ProgramRepo) WithTx(tx *gorm.DB) *ProgramRepo { return &ProgramRepo{db: tx} }

func (r *ProgramRepo) Create(ctx context.Context, p *model.Program) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

// Save writes every column of p. The preloaded institution is left alone.
func (r *ProgramRepo) Save(ctx context.Context, p *model.Program) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error)
}

// GetByID loads the program together with its institution.
func (r *ProgramRepo) GetByID(ctx context.Context, id uint64) (model.Program, error) {
	var p model.Program
	err := r.db.WithContext(ctx).Preload("Institution").Take(&p, id).Error
	return p, translate(err)
}

// ProgramFilter narrows Search. Fees are compared in minor units.
type ProgramFilter struct {
	InstitutionID uint64
	Field         string
	DegreeType    string
	MinFeeCents   *int64
	MaxFeeCents   *int64
	ActiveOnly    bool
	// Active, when set, matches is_active exactly. Admin listings use it.
	Active        *bool
	Pagination
}

// Search lists programs with their institution, ordered by name.
func (r *ProgramRepo) Search(ctx context.Context, f ProgramFilter) ([]model.Program, Page, error) {
	q := r.db.WithContext(ctx).Model(&model.Program{})
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	} else if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if f.InstitutionID != 0 {
		q = q.Where("institution_id = ?", f.InstitutionID)
	}
	if s := strings.TrimSpace(f.Field); s != "" {
		q = q.Where("LOWER(field_of_study) LIKE ?", like(s))
	}
	if f.DegreeType != "" {
		q = q.Where("degree_type = ?", strings.ToLower(f.DegreeType))
	}
	if f.MinFeeCents != nil {
		q = q.Where("tuition_fee_cents >= ?", *f.MinFeeCents)
	}
	if f.MaxFeeCents != nil {
		q = q.Where("tuition_fee_cents <= ?", *f.MaxFeeCents)
	}
	var out []model.Program
	page, err := paginate(q.Order("name").Order("id"), f.Pagination, &out, "Institution")
	return out, page, err
}

func (r *ProgramRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Program{}).Count(&n).Error
	return n, err
}
