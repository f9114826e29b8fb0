package repository

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/iliyamo/study-abroad-marketplace/internal/model"
)

// AdminLogRepo appends and lists audit records. Records are never updated
// or deleted.
type AdminLogRepo struct{ db *gorm.DB }

func NewAdminLogRepo(db *gorm.DB) *AdminLogRepo { return &AdminLogRepo{db: db} }

func (r *AdminLogRepo) WithTx(tx *gorm.DB) *AdminLogRepo { return &AdminLogRepo{db: tx} }

// Append writes one audit record with details marshaled as JSON.
func (r *AdminLogRepo) Append(ctx context.Context, adminID uint64, action, targetType string, targetID uint64, details map[string]any, ip string) (model.AdminLog, error) {
	entry := model.AdminLog{
		AdminID:    adminID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		IPAddress:  ip,
	}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return model.AdminLog{}, err
		}
		entry.Details = datatypes.JSON(raw)
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return model.AdminLog{}, translate(err)
	}
	return entry, nil
}

// AdminLogFilter narrows List.
type AdminLogFilter struct {
	AdminID    uint64
	Action     string
	TargetType string
	TargetID   uint64
	Pagination
}

// List returns audit records newest first.
func (r *AdminLogRepo) List(ctx context.Context, f AdminLogFilter) ([]model.AdminLog, Page, error) {
	q := r.db.WithContext(ctx).Model(&model.AdminLog{})
	if f.AdminID != 0 {
		q = q.Where("admin_id = ?", f.AdminID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.TargetType != "" {
		q = q.Where("target_type = ?", f.TargetType)
	}
	if f.TargetID != 0 {
		q = q.Where("target_id = ?", f.TargetID)
	}
	var out []model.AdminLog
	page, err := paginate(q.Order("created_at DESC").Order("id DESC"), f.Pagination, &out)
	return out, page, err
}
