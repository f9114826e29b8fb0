package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/iliyamo/study-abroad-marketplace/internal/model"
	"github.com/iliyamo/study-abroad-marketplace/internal/queue"
	"github.com/iliyamo/study-abroad-marketplace/internal/repository"
	"github.com/iliyamo/study-abroad-marketplace/internal/utils"
)

var referencePattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

func TestApplicationCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("Given an active program When a student applies Then a draft with a reference is stored", func(t *testing.T) {
		app := f.apply(t, f.student(), f.cat.PaidProgram.ID)
		if app.Status != model.ApplicationDraft {
			t.Fatalf("status = %s, want draft", app.Status)
		}
		if !referencePattern.MatchString(app.ReferenceNumber) {
			t.Fatalf("reference %q has the wrong shape", app.ReferenceNumber)
		}
		if app.InstitutionID != f.cat.Paid.ID {
			t.Fatalf("institution_id = %d, want %d", app.InstitutionID, f.cat.Paid.ID)
		}
	})

	t.Run("Given an existing application When applying again Then conflict and no new row", func(t *testing.T) {
		before := f.countRows(t, &model.Application{})
		_, err := f.apps.Create(ctx, f.student(), f.cat.PaidProgram.ID, ApplicationInput{})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("err = %v, want ErrConflict", err)
		}
		if after := f.countRows(t, &model.Application{}); after != before {
			t.Fatalf("rows %d -> %d", before, after)
		}
	})

	t.Run("Given an inactive program When applying Then validation error", func(t *testing.T) {
		if err := f.db.Model(&model.Program{}).Where("id = ?", f.cat.FreeProgram.ID).Update("is_active", false).Error; err != nil {
			t.Fatal(err)
		}
		_, err := f.apps.Create(ctx, f.other(), f.cat.FreeProgram.ID, ApplicationInput{})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("Given an unknown program When applying Then not found", func(t *testing.T) {
		_, err := f.apps.Create(ctx, f.other(), 9999, ApplicationInput{})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("Given an admin When applying Then forbidden", func(t *testing.T) {
		_, err := f.apps.Create(ctx, f.adminP(), f.cat.PaidProgram.ID, ApplicationInput{})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("err = %v, want ErrForbidden", err)
		}
	})
}

func TestApplicationReferenceCollisionRegenerates(t *testing.T) {
	f := newFixture(t)
	refs := []string{"AAAAAAAAAA", "AAAAAAAAAA", "BBBBBBBBBB"}
	f.apps.newReference = func() (string, error) {
		r := refs[0]
		refs = refs[1:]
		return r, nil
	}

	first := f.apply(t, f.student(), f.cat.PaidProgram.ID)
	second := f.apply(t, f.other(), f.cat.PaidProgram.ID)
	if first.ReferenceNumber != "AAAAAAAAAA" || second.ReferenceNumber != "BBBBBBBBBB" {
		t.Fatalf("references = %s, %s", first.ReferenceNumber, second.ReferenceNumber)
	}

	t.Run("Given a generator that always collides When applying Then it gives up", func(t *testing.T) {
		calls := 0
		f.apps.newReference = func() (string, error) { calls++; return "AAAAAAAAAA", nil }
		_, err := f.apps.Create(context.Background(), f.student(), f.cat.FreeProgram.ID, ApplicationInput{})
		if !errors.Is(err, ErrPersistence) {
			t.Fatalf("err = %v, want ErrPersistence", err)
		}
		if calls != maxReferenceAttempts {
			t.Fatalf("generator called %d times, want %d", calls, maxReferenceAttempts)
		}
	})
}

func TestApplicationCreateConcurrent(t *testing.T) {
	ctx := context.Background()

	t.Run("Given many students applying at once When references collide Then every reference is unique", func(t *testing.T) {
		f := newFixture(t)
		var (
			genMu sync.Mutex
			calls int
		)
		f.apps.newReference = func() (string, error) {
			genMu.Lock()
			defer genMu.Unlock()
			calls++
			if calls <= 3 {
				return "COLLIDE000", nil
			}
			return utils.NewReferenceNumber()
		}

		const n = 8
		students := make([]Principal, n)
		for i := range students {
			u := model.User{Email: fmt.Sprintf("s%d@example.com", i), PasswordHash: "x", Role: model.RoleStudent, IsActive: true}
			if err := f.db.Create(&u).Error; err != nil {
				t.Fatal(err)
			}
			students[i] = Principal{UserID: u.ID, Role: model.RoleStudent}
		}

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			refs = map[string]bool{}
			errs []error
		)
		for _, p := range students {
			wg.Add(1)
			go func(p Principal) {
				defer wg.Done()
				app, err := f.apps.Create(ctx, p, f.cat.PaidProgram.ID, ApplicationInput{})
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
					return
				}
				refs[app.ReferenceNumber] = true
			}(p)
		}
		wg.Wait()
		if len(errs) != 0 {
			t.Fatalf("create errors: %v", errs)
		}
		if len(refs) != n || f.countRows(t, &model.Application{}) != n {
			t.Fatalf("unique references = %d, rows = %d, want %d", len(refs), f.countRows(t, &model.Application{}), n)
		}
	})

	t.Run("Given one student applying twice at once Then exactly one application is stored", func(t *testing.T) {
		f := newFixture(t)
		const n = 6
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			ok, dupes int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.apps.Create(ctx, f.student(), f.cat.FreeProgram.ID, ApplicationInput{})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, ErrConflict):
					dupes++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		if ok != 1 || dupes != n-1 || f.countRows(t, &model.Application{}) != 1 {
			t.Fatalf("ok=%d conflicts=%d", ok, dupes)
		}
	})
}

func TestApplicationSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.apply(t, f.student(), f.cat.PaidProgram.ID)

	if _, err := f.apps.Submit(ctx, f.other(), app.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other student: err = %v, want ErrForbidden", err)
	}
	got, err := f.apps.Submit(ctx, f.student(), app.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.Status != model.ApplicationSubmitted || got.SubmittedAt == nil {
		t.Fatalf("got status=%s submitted_at=%v", got.Status, got.SubmittedAt)
	}
	if _, err := f.apps.Submit(ctx, f.student(), app.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second submit: err = %v, want ErrInvalidTransition", err)
	}
}

func TestApplicationDecide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.apply(t, f.student(), f.cat.PaidProgram.ID)

	t.Run("Given a student When deciding Then forbidden", func(t *testing.T) {
		if _, err := f.apps.Decide(ctx, f.student(), app.ID, "accepted", ""); !errors.Is(err, ErrForbidden) {
			t.Fatalf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("Given an unknown status When deciding Then validation error", func(t *testing.T) {
		if _, err := f.apps.Decide(ctx, f.adminP(), app.ID, "approved", ""); !errors.Is(err, ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("Given a draft When deciding Then invalid transition", func(t *testing.T) {
		if _, err := f.apps.Decide(ctx, f.adminP(), app.ID, "under_review", ""); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("err = %v, want ErrInvalidTransition", err)
		}
	})

	if _, err := f.apps.Submit(ctx, f.student(), app.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	t.Run("Given a submitted application When reviewed then accepted Then one log per decision", func(t *testing.T) {
		got, err := f.apps.Decide(ctx, f.adminP(), app.ID, " Under_Review ", "")
		if err != nil {
			t.Fatalf("under_review: %v", err)
		}
		if got.Status != model.ApplicationUnderReview || got.DecisionDate != nil {
			t.Fatalf("got status=%s decision_date=%v", got.Status, got.DecisionDate)
		}
		got, err = f.apps.Decide(ctx, f.adminP(), app.ID, "accepted", "Welcome aboard")
		if err != nil {
			t.Fatalf("accepted: %v", err)
		}
		if got.Status != model.ApplicationAccepted || got.DecisionDate == nil || got.DecisionNotes != "Welcome aboard" {
			t.Fatalf("unexpected application %+v", got)
		}

		var logs []model.AdminLog
		if err := f.db.Where("target_type = ? AND target_id = ?", model.TargetApplication, app.ID).Order("id").Find(&logs).Error; err != nil {
			t.Fatal(err)
		}
		if len(logs) != 2 || logs[1].Action != model.ActionApplicationStatusUpdated || logs[1].IPAddress != "10.0.0.1" {
			t.Fatalf("unexpected logs %+v", logs)
		}
		if n := f.events.count(queue.TypeApplicationStatusChanged); n != 2 {
			t.Fatalf("status events = %d, want 2", n)
		}
	})

	t.Run("Given an accepted application When rejecting Then invalid transition and no log", func(t *testing.T) {
		before := f.countRows(t, &model.AdminLog{})
		if _, err := f.apps.Decide(ctx, f.adminP(), app.ID, "rejected", ""); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("err = %v, want ErrInvalidTransition", err)
		}
		if after := f.countRows(t, &model.AdminLog{}); after != before {
			t.Fatalf("admin logs %d -> %d", before, after)
		}
	})
}

func TestApplicationVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.apply(t, f.student(), f.cat.PaidProgram.ID)

	if _, err := f.apps.Get(ctx, f.other(), app.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other: err = %v, want ErrForbidden", err)
	}
	view, err := f.apps.StatusOf(ctx, f.adminP(), app.ID)
	if err != nil || view.ReferenceNumber != app.ReferenceNumber {
		t.Fatalf("admin status view = %+v, %v", view, err)
	}
	mine, page, err := f.apps.ListMine(ctx, f.other(), repository.ApplicationFilter{})
	if err != nil || len(mine) != 0 || page.Total != 0 {
		t.Fatalf("other's list = %d items, %v", len(mine), err)
	}
	if _, _, err := f.apps.List(ctx, f.student(), repository.ApplicationFilter{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("student list: err = %v, want ErrForbidden", err)
	}
}
