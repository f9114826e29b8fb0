package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"github.com/iliyamo/study-abroad-marketplace/internal/model"
	"github.com/iliyamo/study-abroad-marketplace/internal/repository"
)

// DashboardStats is the admin overview.
type DashboardStats struct {
	Users                  int64                             `json:"users"`
	Students               int64                             `json:"students"`
	Institutions           int64                             `json:"institutions"`
	Programs               int64                             `json:"programs"`
	Applications           int64                             `json:"applications"`
	ApplicationsByStatus   map[model.ApplicationStatus]int64 `json:"applications_by_status"`
	PaymentsByStatus       map[model.PaymentStatus]int64     `json:"payments_by_status"`
	RevenueCents           int64                             `json:"revenue_cents"`
	PendingReviewDecisions int64                             `json:"pending_review_decisions"`
}

// InstitutionInput is the editable part of an institution.
type InstitutionInput struct {
	Name                 string
	ShortName            string
	Description          string
	Country              string
	CountryCode          string
	City                 string
	Website              string
	Type                 string
	WorldRanking         *int
	ApplicationFeeCents  int64
	AcceptsInternational bool
	IsActive             bool
	IsVerified           bool
}

func (in InstitutionInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return invalid("name is required")
	case len(strings.TrimSpace(in.CountryCode)) != 2:
		return invalid("country_code must be a two letter code")
	case strings.TrimSpace(in.City) == "":
		return invalid("city is required")
	case in.ApplicationFeeCents < 0:
		return invalid("application_fee_cents must not be negative")
	}
	return nil
}

func (in InstitutionInput) apply(i *model.Institution) {
	i.Name = strings.TrimSpace(in.Name)
	i.ShortName = strings.TrimSpace(in.ShortName)
	i.Description = in.Description
	i.Country = strings.TrimSpace(in.Country)
	i.CountryCode = strings.ToUpper(strings.TrimSpace(in.CountryCode))
	i.City = strings.TrimSpace(in.City)
	i.Website = strings.TrimSpace(in.Website)
	i.Type = strings.TrimSpace(in.Type)
	i.WorldRanking = in.WorldRanking
	i.ApplicationFeeCents = in.ApplicationFeeCents
	i.AcceptsInternational = in.AcceptsInternational
	i.IsActive = in.IsActive
	i.IsVerified = in.IsVerified
}

// ProgramInput is the editable part of a program.
type ProgramInput struct {
	Name                  string
	Code                  string
	DegreeType            string
	FieldOfStudy          string
	DurationMonths        int
	TuitionFeeCents       int64
	Currency              string
	ScholarshipsAvailable bool
	SeatsAvailable        *int
	IsActive              bool
}

func (in ProgramInput) validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.DegreeType) == "" || strings.TrimSpace(in.FieldOfStudy) == "" {
		return invalid("name, degree_type and field_of_study are required")
	}
	if in.TuitionFeeCents < 0 {
		return invalid("tuition_fee_cents must not be negative")
	}
	return nil
}

func (in ProgramInput) apply(p *model.Program) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = model.DefaultCurrency
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Code = strings.TrimSpace(in.Code)
	p.DegreeType = strings.ToLower(strings.TrimSpace(in.DegreeType))
	p.FieldOfStudy = strings.TrimSpace(in.FieldOfStudy)
	p.DurationMonths = in.DurationMonths
	p.TuitionFeeCents = in.TuitionFeeCents
	p.Currency = currency
	p.ScholarshipsAvailable = in.ScholarshipsAvailable
	p.SeatsAvailable = in.SeatsAvailable
	p.IsActive = in.IsActive
}

// UserDetail is one account with its recent applications and payments.
type UserDetail struct {
	User         model.User          `json:"user"`
	Applications []model.Application `json:"applications"`
	Payments     []model.Payment     `json:"payments"`
}

// Analytics is the admin reporting view.
type Analytics struct {
	Since           time.Time                     `json:"since"`
	RevenueByMonth  []repository.MonthRevenue     `json:"revenue_by_month"`
	TopInstitutions []repository.InstitutionCount `json:"top_institutions"`
}

// AdminService groups the admin-only operations besides application
// decisions and refunds. Every write records one admin log row in the same
// transaction.
type AdminService struct {
	db           *gorm.DB
	users        *repository.UserRepo
	institutions *repository.InstitutionRepo
	programs     *repository.ProgramRepo
	apps         *repository.ApplicationRepo
	payments     *repository.PaymentRepo
	logs         *repository.AdminLogRepo
	log          *log.Helper
}

func NewAdminService(db *gorm.DB, logger log.Logger) *AdminService {
	return &AdminService{
		db:           db,
		users:        repository.NewUserRepo(db),
		institutions: repository.NewInstitutionRepo(db),
		programs:     repository.NewProgramRepo(db),
		apps:         repository.NewApplicationRepo(db),
		payments:     repository.NewPaymentRepo(db),
		logs:         repository.NewAdminLogRepo(db),
		log:          log.NewHelper(log.With(logger, "module", "service/admin")),
	}
}

func requireAdmin(p Principal) error {
	if !p.IsAdmin() {
		return fmt.Errorf("%w: admin only", ErrForbidden)
	}
	return nil
}

func (s *AdminService) Stats(ctx context.Context, p Principal) (DashboardStats, error) {
	if err := requireAdmin(p); err != nil {
		return DashboardStats{}, err
	}
	var (
		st  DashboardStats
		err error
	)
	if st.Users, err = s.users.Count(ctx, ""); err != nil {
		return st, fromRepo(err, "users")
	}
	if st.Students, err = s.users.Count(ctx, model.RoleStudent); err != nil {
		return st, fromRepo(err, "users")
	}
	if st.Institutions, err = s.institutions.Count(ctx); err != nil {
		return st, fromRepo(err, "institutions")
	}
	if st.Programs, err = s.programs.Count(ctx); err != nil {
		return st, fromRepo(err, "programs")
	}
	if st.ApplicationsByStatus, err = s.apps.CountByStatus(ctx); err != nil {
		return st, fromRepo(err, "applications")
	}
	for status, n := range st.ApplicationsByStatus {
		st.Applications += n
		if status == model.ApplicationSubmitted || status == model.ApplicationUnderReview {
			st.PendingReviewDecisions += n
		}
	}
	if st.PaymentsByStatus, err = s.payments.CountByStatus(ctx); err != nil {
		return st, fromRepo(err, "payments")
	}
	if st.RevenueCents, err = s.payments.Revenue(ctx); err != nil {
		return st, fromRepo(err, "payments")
	}
	return st, nil
}

func (s *AdminService) Users(ctx context.Context, p Principal, f repository.UserFilter) ([]model.User, repository.Page, error) {
	if err := requireAdmin(p); err != nil {
		return nil, repository.Page{}, err
	}
	out, page, err := s.users.List(ctx, f)
	if err != nil {
		return nil, repository.Page{}, fromRepo(err, "users")
	}
	return out, page, nil
}

// SetUserActive activates or deactivates an account. Admins cannot
// deactivate themselves.
func (s *AdminService) SetUserActive(ctx context.Context, p Principal, userID uint64, active bool) (model.User, error) {
	if err := requireAdmin(p); err != nil {
		return model.User{}, err
	}
	if userID == p.UserID && !active {
		return model.User{}, invalid("you cannot deactivate your own account")
	}
	action := model.ActionUserDeactivated
	if active {
		action = model.ActionUserActivated
	}
	var out model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		if err := users.SetActive(ctx, userID, active); err != nil {
			return fromRepo(err, "user")
		}
		u, err := users.GetByID(ctx, userID)
		if err != nil {
			return fromRepo(err, "user")
		}
		if _, err := s.logs.WithTx(tx).Append(ctx, p.UserID, action, model.TargetUser, userID,
			map[string]any{"email": u.Email}, p.RemoteAddr); err != nil {
			return fromRepo(err, "admin log")
		}
		out = u
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	s.log.WithContext(ctx).Infof("user %d active=%t by admin %d", userID, active, p.UserID)
	return out, nil
}

func (s *AdminService) CreateInstitution(ctx context.Context, p Principal, in InstitutionInput) (model.Institution, error) {
	if err := requireAdmin(p); err != nil {
		return model.Institution{}, err
	}
	if err := in.validate(); err != nil {
		return model.Institution{}, err
	}
	var inst model.Institution
	in.apply(&inst)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.institutions.WithTx(tx).Create(ctx, &inst); err != nil {
			return fromRepo(err, "institution")
		}
		_, err := s.logs.WithTx(tx).Append(ctx, p.UserID, model.ActionInstitutionCreated, model.TargetInstitution, inst.ID,
			map[string]any{"name": inst.Name}, p.RemoteAddr)
		return fromRepo(err, "admin log")
	})
	if err != nil {
		return model.Institution{}, err
	}
	return inst, nil
}

// UpdateInstitution replaces the editable fields of an institution.
func (s *AdminService) UpdateInstitution(ctx context.Context, p Principal, id uint64, in InstitutionInput) (model.Institution, error) {
	if err := requireAdmin(p); err != nil {
		return model.Institution{}, err
	}
	if err := in.validate(); err != nil {
		return model.Institution{}, err
	}
	var out model.Institution
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.institutions.WithTx(tx)
		inst, err := repo.GetByID(ctx, id)
		if err != nil {
			return fromRepo(err, "institution")
		}
		before := inst.ApplicationFeeCents
		in.apply(&inst)
		if err := repo.Save(ctx, &inst); err != nil {
			return fromRepo(err, "institution")
		}
		_, err = s.logs.WithTx(tx).Append(ctx, p.UserID, model.ActionInstitutionUpdated, model.TargetInstitution, id, map[string]any{
			"name":                       inst.Name,
			"application_fee_cents":      inst.ApplicationFeeCents,
			"prev_application_fee_cents": before,
			"is_active":                  inst.IsActive,
		}, p.RemoteAddr)
		if err != nil {
			return fromRepo(err, "admin log")
		}
		out = inst
		return nil
	})
	if err != nil {
		return model.Institution{}, err
	}
	return out, nil
}

func (s *AdminService) CreateProgram(ctx context.Context, p Principal, institutionID uint64, in ProgramInput) (model.Program, error) {
	if err := requireAdmin(p); err != nil {
		return model.Program{}, err
	}
	if err := in.validate(); err != nil {
		return model.Program{}, err
	}
	prog := model.Program{InstitutionID: institutionID}
	in.apply(&prog)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.institutions.WithTx(tx).GetByID(ctx, institutionID); err != nil {
			return fromRepo(err, "institution")
		}
		if err := s.programs.WithTx(tx).Create(ctx, &prog); err != nil {
			return fromRepo(err, "program")
		}
		_, err := s.logs.WithTx(tx).Append(ctx, p.UserID, model.ActionProgramCreated, model.TargetProgram, prog.ID,
			map[string]any{"name": prog.Name, "institution_id": institutionID}, p.RemoteAddr)
		return fromRepo(err, "admin log")
	})
	if err != nil {
		return model.Program{}, err
	}
	return prog, nil
}

func (s *AdminService) Logs(ctx context.Context, p Principal, f repository.AdminLogFilter) ([]model.AdminLog, repository.Page, error) {
	if err := requireAdmin(p); err != nil {
		return nil, repository.Page{}, err
	}
	out, page, err := s.logs.List(ctx, f)
	if err != nil {
		return nil, repository.Page{}, fromRepo(err, "admin logs")
	}
	return out, page, nil
}

// UpdateProgram replaces the editable fields of a program. Setting
// IsActive false withdraws it from the public catalogue.
func (s *AdminService) UpdateProgram(ctx context.Context, p Principal, id uint64, in ProgramInput) (model.Program, error) {
	if err := requireAdmin(p); err != nil {
		return model.Program{}, err
	}
	if err := in.validate(); err != nil {
		return model.Program{}, err
	}
	var out model.Program
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.programs.WithTx(tx)
		prog, err := repo.GetByID(ctx, id)
		if err != nil {
			return fromRepo(err, "program")
		}
		wasActive := prog.IsActive
		in.apply(&prog)
		if err := repo.Save(ctx, &prog); err != nil {
			return fromRepo(err, "program")
		}
		_, err = s.logs.WithTx(tx).Append(ctx, p.UserID, model.ActionProgramUpdated, model.TargetProgram, id, map[string]any{
			"name":           prog.Name,
			"institution_id": prog.InstitutionID,
			"is_active":      prog.IsActive,
			"was_active":     wasActive,
		}, p.RemoteAddr)
		if err != nil {
			return fromRepo(err, "admin log")
		}
		out = prog
		return nil
	})
	if err != nil {
		return model.Program{}, err
	}
	s.log.WithContext(ctx).Infof("program %d updated by admin %d (active=%t)", id, p.UserID, out.IsActive)
	return out, nil
}

// Institutions lists institutions, inactive ones included unless f says
// otherwise.
func (s *AdminService) Institutions(ctx context.Context, p Principal, f repository.InstitutionFilter) ([]model.Institution, repository.Page, error) {
	if err := requireAdmin(p); err != nil {
		return nil, repository.Page{}, err
	}
	f.ActiveOnly = false
	out, page, err := s.institutions.Search(ctx, f)
	if err != nil {
		return nil, repository.Page{}, fromRepo(err, "institutions")
	}
	return out, page, nil
}

func (s *AdminService) Programs(ctx context.Context, p Principal, f repository.ProgramFilter) ([]model.Program, repository.Page, error) {
	if err := requireAdmin(p); err != nil {
		return nil, repository.Page{}, err
	}
	f.ActiveOnly = false
	out, page, err := s.programs.Search(ctx, f)
	if err != nil {
		return nil, repository.Page{}, fromRepo(err, "programs")
	}
	return out, page, nil
}

// UserDetail returns an account with its latest applications and payments.
func (s *AdminService) UserDetail(ctx context.Context, p Principal, id uint64) (UserDetail, error) {
	if err := requireAdmin(p); err != nil {
		return UserDetail{}, err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return UserDetail{}, fromRepo(err, "user")
	}
	recent := repository.Pagination{PerPage: 50}
	apps, _, err := s.apps.List(ctx, repository.ApplicationFilter{UserID: id, Pagination: recent})
	if err != nil {
		return UserDetail{}, fromRepo(err, "applications")
	}
	pays, _, err := s.payments.List(ctx, repository.PaymentFilter{UserID: id, Pagination: recent})
	if err != nil {
		return UserDetail{}, fromRepo(err, "payments")
	}
	if apps == nil {
		apps = []model.Application{}
	}
	if pays == nil {
		pays = []model.Payment{}
	}
	return UserDetail{User: u, Applications: apps, Payments: pays}, nil
}

// Analytics reports completed revenue per month over the last months
// months (the current one included) and the top institutions by
// application count.
func (s *AdminService) Analytics(ctx context.Context, p Principal, months, top int) (Analytics, error) {
	if err := requireAdmin(p); err != nil {
		return Analytics{}, err
	}
	if months <= 0 || months > 36 {
		months = 12
	}
	if top <= 0 || top > 50 {
		top = 10
	}
	now := time.Now().UTC()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	out := Analytics{Since: since}
	var err error
	if out.RevenueByMonth, err = s.payments.RevenueByMonth(ctx, since); err != nil {
		return Analytics{}, fromRepo(err, "payments")
	}
	if out.TopInstitutions, err = s.apps.TopInstitutions(ctx, top); err != nil {
		return Analytics{}, fromRepo(err, "applications")
	}
	if out.TopInstitutions == nil {
		out.TopInstitutions = []repository.InstitutionCount{}
	}
	return out, nil
}
