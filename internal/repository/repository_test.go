package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/iliyamo/study-abroad-marketplace/internal/model"
	"github.com/iliyamo/study-abroad-marketplace/internal/testutil"
)

func TestInstitutionSearchPaginatesAndFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewInstitutionRepo(db)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		inst := model.Institution{
			Name:        fmt.Sprintf("College %02d", i),
			Country:     "Canada",
			CountryCode: "CA",
			City:        "Toronto",
			IsActive:    true,
		}
		if i%5 == 0 {
			inst.City = "Vancouver"
		}
		if err := repo.Create(ctx, &inst); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := repo.Create(ctx, &model.Institution{Name: "Oxford", Country: "United Kingdom", CountryCode: "GB", City: "Oxford", IsActive: true}); err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("Given no filter When listing page two Then remainder and no next page", func(t *testing.T) {
		items, page, err := repo.Search(ctx, InstitutionFilter{ActiveOnly: true, Pagination: Pagination{Page: 2}})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if page.Total != 26 || len(items) != 6 || page.HasNext {
			t.Fatalf("got total=%d len=%d hasNext=%v", page.Total, len(items), page.HasNext)
		}
	})

	t.Run("Given a city query When searching Then only matching rows", func(t *testing.T) {
		items, page, err := repo.Search(ctx, InstitutionFilter{Query: "vancouver"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if page.Total != 5 || len(items) != 5 {
			t.Fatalf("got total=%d len=%d", page.Total, len(items))
		}
	})

	t.Run("Given a country filter When searching Then lower-case code matches", func(t *testing.T) {
		_, page, err := repo.Search(ctx, InstitutionFilter{CountryCode: "gb"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if page.Total != 1 {
			t.Fatalf("got total=%d", page.Total)
		}
	})
}

func TestApplicationUniquePerUserAndProgram(t *testing.T) {
	db := testutil.NewDB(t)
	cat := testutil.Seed(t, db)
	repo := NewApplicationRepo(db)
	ctx := context.Background()

	first := model.Application{UserID: cat.Student.ID, ProgramID: cat.PaidProgram.ID, InstitutionID: cat.Paid.ID, Status: model.ApplicationDraft, ReferenceNumber: "AAAAAAAAAA"}
	if err := repo.Create(ctx, &first); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := model.Application{UserID: cat.Student.ID, ProgramID: cat.PaidProgram.ID, InstitutionID: cat.Paid.ID, Status: model.ApplicationDraft, ReferenceNumber: "BBBBBBBBBB"}
	if err := repo.Create(ctx, &second); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	sameRef := model.Application{UserID: cat.Other.ID, ProgramID: cat.PaidProgram.ID, InstitutionID: cat.Paid.ID, Status: model.ApplicationDraft, ReferenceNumber: "AAAAAAAAAA"}
	if err := repo.Create(ctx, &sameRef); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for reference, got %v", err)
	}
	if _, err := repo.GetByID(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplicationTransitionStatusIsConditional(t *testing.T) {
	db := testutil.NewDB(t)
	cat := testutil.Seed(t, db)
	repo := NewApplicationRepo(db)
	ctx := context.Background()

	app := model.Application{UserID: cat.Student.ID, ProgramID: cat.PaidProgram.ID, InstitutionID: cat.Paid.ID, Status: model.ApplicationDraft, ReferenceNumber: "CCCCCCCCCC"}
	if err := repo.Create(ctx, &app); err != nil {
		t.Fatalf("create: %v", err)
	}
	now := time.Now().UTC()
	ok, err := repo.TransitionStatus(ctx, app.ID, model.ApplicationDraft, model.ApplicationSubmitted, map[string]any{"submitted_at": now})
	if err != nil || !ok {
		t.Fatalf("first transition: ok=%v err=%v", ok, err)
	}
	ok, err = repo.TransitionStatus(ctx, app.ID, model.ApplicationDraft, model.ApplicationSubmitted, nil)
	if err != nil || ok {
		t.Fatalf("second transition should not apply: ok=%v err=%v", ok, err)
	}
	got, err := repo.GetByID(ctx, app.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.ApplicationSubmitted || got.SubmittedAt == nil {
		t.Fatalf("unexpected row: %+v", got)
	}
	if got.Program == nil || got.Institution == nil {
		t.Fatal("expected program and institution to be preloaded")
	}
}

func TestPaymentLiveSlot(t *testing.T) {
	db := testutil.NewDB(t)
	cat := testutil.Seed(t, db)
	apps := NewApplicationRepo(db)
	repo := NewPaymentRepo(db)
	ctx := context.Background()

	app := model.Application{UserID: cat.Student.ID, ProgramID: cat.PaidProgram.ID, InstitutionID: cat.Paid.ID, Status: model.ApplicationDraft, ReferenceNumber: "DDDDDDDDDD"}
	if err := apps.Create(ctx, &app); err != nil {
		t.Fatalf("create app: %v", err)
	}
	newPending := func() *model.Payment {
		return &model.Payment{UserID: cat.Student.ID, ApplicationID: &app.ID, AmountCents: 10000, Currency: model.DefaultCurrency, Status: model.PaymentPending}
	}

	first := newPending()
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create first: %v", err)
	}
	if err := repo.Create(ctx, newPending()); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate while first is pending, got %v", err)
	}

	ok, err := repo.Transition(ctx, first.ID, model.PaymentPending, model.PaymentFailed, nil)
	if err != nil || !ok {
		t.Fatalf("fail first: ok=%v err=%v", ok, err)
	}
	if _, err := repo.FindLive(ctx, app.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no live payment, got %v", err)
	}

	second := newPending()
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("create second after failure: %v", err)
	}
	ok, err = repo.Transition(ctx, second.ID, model.PaymentPending, model.PaymentCompleted, map[string]any{"completed_at": time.Now().UTC()})
	if err != nil || !ok {
		t.Fatalf("complete second: ok=%v err=%v", ok, err)
	}
	live, err := repo.FindLive(ctx, app.ID)
	if err != nil || live.ID != second.ID {
		t.Fatalf("live payment: %+v err=%v", live, err)
	}
	ok, err = repo.Transition(ctx, second.ID, model.PaymentPending, model.PaymentCompleted, nil)
	if err != nil || ok {
		t.Fatalf("repeat completion must not apply: ok=%v err=%v", ok, err)
	}

	revenue, err := repo.Revenue(ctx)
	if err != nil || revenue != 10000 {
		t.Fatalf("revenue=%d err=%v", revenue, err)
	}
	items, page, err := repo.List(ctx, PaymentFilter{UserID: cat.Student.ID})
	if err != nil || page.Total != 2 || items[0].ID != second.ID {
		t.Fatalf("list: total=%d err=%v", page.Total, err)
	}
}

func TestAdminLogAppend(t *testing.T) {
	db := testutil.NewDB(t)
	cat := testutil.Seed(t, db)
	repo := NewAdminLogRepo(db)
	ctx := context.Background()

	entry, err := repo.Append(ctx, cat.Admin.ID, model.ActionUserDeactivated, model.TargetUser, cat.Student.ID, map[string]any{"email": cat.Student.Email}, "10.0.0.1")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if entry.ID == 0 || len(entry.Details) == 0 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	items, page, err := repo.List(ctx, AdminLogFilter{Action: model.ActionUserDeactivated})
	if err != nil || page.Total != 1 || items[0].IPAddress != "10.0.0.1" {
		t.Fatalf("list: %+v total=%d err=%v", items, page.Total, err)
	}
}
