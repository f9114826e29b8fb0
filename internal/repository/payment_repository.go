package repository

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/iliyamo/study-abroad-marketplace/internal/model"
)

// PaymentRepo persists payments. Every status change is a conditional
// update on the current status; the live_application_id column is kept in
// step so its unique index guards one live payment per application.
type PaymentRepo struct{ db *gorm.DB }

func NewPaymentRepo(db *gorm.DB) *PaymentRepo { return &PaymentRepo{db: db} }

func (r *PaymentRepo) WithTx(tx *gorm.DB) *PaymentRepo { return &PaymentRepo{db: tx} }

// Create inserts p, occupying the application's live slot when p holds one.
// A second live payment for the same application yields ErrDuplicate.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	if p.ApplicationID != nil && p.Status.HoldsSlot() {
		id := *p.ApplicationID
		p.LiveApplicationID = &id
	}
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).Take(&p, id).Error
	return p, translate(err)
}

// FindLive returns the pending or completed payment of an application.
func (r *PaymentRepo) FindLive(ctx context.Context, applicationID uint64) (model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).Where("live_application_id = ?", applicationID).Take(&p).Error
	return p, translate(err)
}

// SetSession stores the provider checkout session id on a pending payment.
func (r *PaymentRepo) SetSession(ctx context.Context, id uint64, sessionID string) error {
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status = ?", id, model.PaymentPending).
		Update("provider_session_id", sessionID)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// Transition moves a payment from one status to another together with the
// extra columns. It reports false when the row was not in the expected
// status, which callers use to detect a concurrent writer.
func (r *PaymentRepo) Transition(ctx context.Context, id uint64, from, to model.PaymentStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	if !to.HoldsSlot() {
		updates["live_application_id"] = nil
	}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// PaymentFilter narrows List.
type PaymentFilter struct {
	UserID      uint64
	Status      model.PaymentStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Pagination
}

// List returns payments newest first.
func (r *PaymentRepo) List(ctx context.Context, f PaymentFilter) ([]model.Payment, Page, error) {
	q := r.db.WithContext(ctx).Model(&model.Payment{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("created_at < ?", *f.CreatedTo)
	}
	var out []model.Payment
	page, err := paginate(q.Order("created_at DESC").Order("id DESC"), f.Pagination, &out)
	return out, page, err
}

// ListStalePending returns up to limit payments still pending that were
// created before cutoff, oldest first.
func (r *PaymentRepo) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]model.Payment, error) {
	var out []model.Payment
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.PaymentPending, cutoff).
		Order("created_at").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Revenue sums the amount of every completed payment in minor units.
func (r *PaymentRepo) Revenue(ctx context.Context) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&model.Payment{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("status = ?", model.PaymentCompleted).
		Scan(&sum).Error
	return sum, err
}

// CountByStatus returns the number of payments per status.
func (r *PaymentRepo) CountByStatus(ctx context.Context) (map[model.PaymentStatus]int64, error) {
	var rows []struct {
		Status model.PaymentStatus
		N      int64
	}
	err := r.db.WithContext(ctx).Model(&model.Payment{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[model.PaymentStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

// MonthRevenue is the completed amount of one calendar month and currency.
type MonthRevenue struct {
	Month       string `json:"month"`
	Currency    string `json:"currency"`
	AmountCents int64  `json:"amount_cents"`
	Payments    int64  `json:"payments"`
}

// RevenueByMonth buckets payments completed since since by UTC month of
// completion, oldest month first. Bucketing happens here because MySQL and
// SQLite format dates differently.
func (r *PaymentRepo) RevenueByMonth(ctx context.Context, since time.Time) ([]MonthRevenue, error) {
	var rows []struct {
		CompletedAt time.Time
		AmountCents int64
		Currency    string
	}
	err := r.db.WithContext(ctx).Model(&model.Payment{}).
		Select("completed_at, amount_cents, currency").
		Where("status = ? AND completed_at >= ?", model.PaymentCompleted, since).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	type key struct{ month, currency string }
	buckets := map[key]*MonthRevenue{}
	for _, row := range rows {
		k := key{row.CompletedAt.UTC().Format("2006-01"), row.Currency}
		b, ok := buckets[k]
		if !ok {
			b = &MonthRevenue{Month: k.month, Currency: k.currency}
			buckets[k] = b
		}
		b.AmountCents += row.AmountCents
		b.Payments++
	}
	out := make([]MonthRevenue, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].Currency < out[j].Currency
	})
	return out, nil
}
