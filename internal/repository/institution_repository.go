package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/iliyamo/study-abroad-marketplace/internal/model"
)

// InstitutionRepo persists institutions.
type InstitutionRepo struct{ db *gorm.DB }

func NewInstitutionRepo(db *gorm.DB) *InstitutionRepo { return &InstitutionRepo{db: db} }

func (r *InstitutionRepo) WithTx(tx *gorm.DB) *InstitutionRepo { return &InstitutionRepo{db: tx} }

func (r *InstitutionRepo) Create(ctx context.Context, i *model.Institution) error {
	return translate(r.db.WithContext(ctx).Create(i).Error)
}

// Save writes every column of i.
func (r *InstitutionRepo) Save(ctx context.Context, i *model.Institution) error {
	return translate(r.db.WithContext(ctx).Save(i).Error)
}

func (r *InstitutionRepo) GetByID(ctx context.Context, id uint64) (model.Institution, error) {
	var i model.Institution
	err := r.db.WithContext(ctx).Take(&i, id).Error
	return i, translate(err)
}

// GetWithPrograms loads the institution and its active programs.
func (r *InstitutionRepo) GetWithPrograms(ctx context.Context, id uint64) (model.Institution, error) {
	var i model.Institution
	err := r.db.WithContext(ctx).
		Preload("Programs", "is_active = ?", true, func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Take(&i, id).Error
	return i, translate(err)
}

// InstitutionFilter narrows Search. Query matches name, city and description.
type InstitutionFilter struct {
	Query       string
	CountryCode string
	Type        string
	ActiveOnly  bool
	// Active, when set, matches is_active exactly. Admin listings use it.
	Active      *bool
	Pagination
}

// Search lists institutions ordered by world ranking then name.
func (r *InstitutionRepo) Search(ctx context.Context, f InstitutionFilter) ([]model.Institution, Page, error) {
	q := r.db.WithContext(ctx).Model(&model.Institution{})
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	} else if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		p := like(s)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(city) LIKE ? OR LOWER(description) LIKE ?", p, p, p)
	}
	if f.CountryCode != "" {
		q = q.Where("country_code = ?", strings.ToUpper(f.CountryCode))
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	var out []model.Institution
	page, err := paginate(q.Order("world_ranking IS NULL").Order("world_ranking").Order("name"), f.Pagination, &out)
	return out, page, err
}

// Country is one entry of the distinct country list.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Countries returns the distinct countries of active institutions.
func (r *InstitutionRepo) Countries(ctx context.Context) ([]Country, error) {
	var out []Country
	err := r.db.WithContext(ctx).Model(&model.Institution{}).
		Select("DISTINCT country_code AS code, country AS name").
		Where("is_active = ?", true).
		Order("country").
		Scan(&out).Error
	return out, err
}

func (r *InstitutionRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Institution{}).Count(&n).Error
	return n, err
}
