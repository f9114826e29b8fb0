package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"github.com/iliyamo/study-abroad-marketplace/internal/model"
	"github.com/iliyamo/study-abroad-marketplace/internal/queue"
	"github.com/iliyamo/study-abroad-marketplace/internal/repository"
	"github.com/iliyamo/study-abroad-marketplace/internal/utils"
)

const maxReferenceAttempts = 5

// ApplicationInput is the student supplied part of a new application.
type ApplicationInput struct {
	PersonalStatement  string
	StatementOfPurpose string
}

// ApplicationStatusView is the public projection returned by StatusOf.
type ApplicationStatusView struct {
	ID              uint64                  `json:"id"`
	ReferenceNumber string                  `json:"reference_number"`
	Status          model.ApplicationStatus `json:"status"`
	SubmittedAt     *time.Time              `json:"submitted_at,omitempty"`
	DecisionDate    *time.Time              `json:"decision_date,omitempty"`
	DecisionNotes   string                  `json:"decision_notes,omitempty"`
}

// ApplicationService owns the application lifecycle: creation, student
// submission and admin decisions.
type ApplicationService struct {
	db       *gorm.DB
	apps     *repository.ApplicationRepo
	programs *repository.ProgramRepo
	logs     *repository.AdminLogRepo
	events   queue.Publisher
	log      *log.Helper

	newReference func() (string, error)
	now          func() time.Time
}

func NewApplicationService(db *gorm.DB, events queue.Publisher, logger log.Logger) *ApplicationService {
	return &ApplicationService{
		db:           db,
		apps:         repository.NewApplicationRepo(db),
		programs:     repository.NewProgramRepo(db),
		logs:         repository.NewAdminLogRepo(db),
		events:       events,
		log:          log.NewHelper(log.With(logger, "module", "service/application")),
		newReference: utils.NewReferenceNumber,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a draft application of the caller for programID.
func (s *ApplicationService) Create(ctx context.Context, p Principal, programID uint64, in ApplicationInput) (model.Application, error) {
	if p.UserID == 0 || p.Role != model.RoleStudent {
		return model.Application{}, fmt.Errorf("%w: only students can apply", ErrForbidden)
	}
	prog, err := s.programs.GetByID(ctx, programID)
	if err != nil {
		return model.Application{}, fromRepo(err, "program")
	}
	if !prog.IsActive || prog.Institution == nil || !prog.Institution.IsActive {
		return model.Application{}, invalid("program %d is not accepting applications", programID)
	}
	if _, err := s.apps.FindByUserProgram(ctx, p.UserID, programID); err == nil {
		return model.Application{}, fmt.Errorf("%w: you already applied to this program", ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.Application{}, fromRepo(err, "application")
	}

	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		ref, err := s.newReference()
		if err != nil {
			return model.Application{}, fmt.Errorf("%w: reference number: %v", ErrPersistence, err)
		}
		app := model.Application{
			UserID:             p.UserID,
			ProgramID:          prog.ID,
			InstitutionID:      prog.InstitutionID,
			Status:             model.ApplicationDraft,
			ReferenceNumber:    ref,
			PersonalStatement:  strings.TrimSpace(in.PersonalStatement),
			StatementOfPurpose: strings.TrimSpace(in.StatementOfPurpose),
		}
		err = s.apps.Create(ctx, &app)
		if err == nil {
			app.Program = &prog
			app.Institution = prog.Institution
			s.log.WithContext(ctx).Infof("application %d (%s) created by user %d", app.ID, app.ReferenceNumber, p.UserID)
			return app, nil
		}
		if !repository.IsDuplicate(err) {
			return model.Application{}, fromRepo(err, "application")
		}
		// Either a concurrent apply for the same program or a reference collision.
		if _, ferr := s.apps.FindByUserProgram(ctx, p.UserID, programID); ferr == nil {
			return model.Application{}, fmt.Errorf("%w: you already applied to this program", ErrConflict)
		}
		s.log.WithContext(ctx).Warnf("reference number %s collided (attempt %d), regenerating", ref, attempt)
	}
	return model.Application{}, fmt.Errorf("%w: could not allocate a unique reference number", ErrPersistence)
}

// Submit moves the caller's draft application to submitted.
func (s *ApplicationService) Submit(ctx context.Context, p Principal, id uint64) (model.Application, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return model.Application{}, fromRepo(err, "application")
	}
	if !p.Owns(app.UserID) {
		return model.Application{}, fmt.Errorf("%w: not your application", ErrForbidden)
	}
	if app.Status != model.ApplicationDraft {
		return model.Application{}, fmt.Errorf("%w: application is %s, only drafts can be submitted", ErrInvalidTransition, app.Status)
	}
	now := s.now()
	ok, err := s.apps.TransitionStatus(ctx, id, model.ApplicationDraft, model.ApplicationSubmitted, map[string]any{"submitted_at": now})
	if err != nil {
		return model.Application{}, fromRepo(err, "application")
	}
	if !ok {
		return model.Application{}, fmt.Errorf("%w: application changed concurrently", ErrInvalidTransition)
	}
	app.Status = model.ApplicationSubmitted
	app.SubmittedAt = &now
	return app, nil
}

// Decide applies an admin decision. The status change and its audit record
// commit together; the status_changed event is published afterwards.
func (s *ApplicationService) Decide(ctx context.Context, p Principal, id uint64, rawStatus, notes string) (model.Application, error) {
	if !p.IsAdmin() {
		return model.Application{}, fmt.Errorf("%w: admin only", ErrForbidden)
	}
	next, err := model.ParseApplicationStatus(rawStatus)
	if err != nil {
		return model.Application{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	notes = strings.TrimSpace(notes)

	var (
		app model.Application
		old model.ApplicationStatus
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		apps := s.apps.WithTx(tx)
		cur, err := apps.GetByID(ctx, id)
		if err != nil {
			return fromRepo(err, "application")
		}
		old = cur.Status
		if !old.CanDecide(next) {
			return fmt.Errorf("%w: cannot move application from %s to %s", ErrInvalidTransition, old, next)
		}
		fields := map[string]any{"decision_notes": notes}
		if next.IsFinalDecision() {
			now := s.now()
			fields["decision_date"] = now
			cur.DecisionDate = &now
		}
		ok, err := apps.TransitionStatus(ctx, id, old, next, fields)
		if err != nil {
			return fromRepo(err, "application")
		}
		if !ok {
			return fmt.Errorf("%w: application changed concurrently", ErrInvalidTransition)
		}
		_, err = s.logs.WithTx(tx).Append(ctx, p.UserID, model.ActionApplicationStatusUpdated, model.TargetApplication, id, map[string]any{
			"old_status":       string(old),
			"new_status":       string(next),
			"reference_number": cur.ReferenceNumber,
		}, p.RemoteAddr)
		if err != nil {
			return fromRepo(err, "admin log")
		}
		cur.Status = next
		cur.DecisionNotes = notes
		app = cur
		return nil
	})
	if err != nil {
		return model.Application{}, err
	}

	s.log.WithContext(ctx).Infof("application %d moved %s -> %s by admin %d", id, old, next, p.UserID)
	if err := queue.Publish(ctx, s.events, queue.TypeApplicationStatusChanged, queue.ApplicationStatusChangedEvent{
		ApplicationID:   app.ID,
		UserID:          app.UserID,
		ReferenceNumber: app.ReferenceNumber,
		OldStatus:       string(old),
		NewStatus:       string(next),
		DecisionNotes:   notes,
		DecisionDate:    app.DecisionDate,
		DecidedBy:       p.UserID,
	}); err != nil {
		s.log.WithContext(ctx).Warnf("publish status change of application %d: %v", id, err)
	}
	return app, nil
}

// Get returns an application visible to the caller.
func (s *ApplicationService) Get(ctx context.Context, p Principal, id uint64) (model.Application, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return model.Application{}, fromRepo(err, "application")
	}
	if !p.CanSee(app.UserID) {
		return model.Application{}, fmt.Errorf("%w: not your application", ErrForbidden)
	}
	return app, nil
}

func (s *ApplicationService) StatusOf(ctx context.Context, p Principal, id uint64) (ApplicationStatusView, error) {
	app, err := s.Get(ctx, p, id)
	if err != nil {
		return ApplicationStatusView{}, err
	}
	return ApplicationStatusView{
		ID:              app.ID,
		ReferenceNumber: app.ReferenceNumber,
		Status:          app.Status,
		SubmittedAt:     app.SubmittedAt,
		DecisionDate:    app.DecisionDate,
		DecisionNotes:   app.DecisionNotes,
	}, nil
}

// ListMine lists the caller's own applications.
func (s *ApplicationService) ListMine(ctx context.Context, p Principal, f repository.ApplicationFilter) ([]model.Application, repository.Page, error) {
	if p.UserID == 0 {
		return nil, repository.Page{}, ErrForbidden
	}
	f.UserID = p.UserID
	out, page, err := s.apps.List(ctx, f)
	if err != nil {
		return nil, repository.Page{}, fromRepo(err, "applications")
	}
	return out, page, nil
}

// List lists every application; admin only.
func (s *ApplicationService) List(ctx context.Context, p Principal, f repository.ApplicationFilter) ([]model.Application, repository.Page, error) {
	if !p.IsAdmin() {
		return nil, repository.Page{}, fmt.Errorf("%w: admin only", ErrForbidden)
	}
	out, page, err := s.apps.List(ctx, f)
	if err != nil {
		return nil, repository.Page{}, fromRepo(err, "applications")
	}
	return out, page, nil
}
