package service

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"github.com/iliyamo/study-abroad-marketplace/internal/model"
	"github.com/iliyamo/study-abroad-marketplace/internal/payment/paymenttest"
	"github.com/iliyamo/study-abroad-marketplace/internal/queue"
	"github.com/iliyamo/study-abroad-marketplace/internal/testutil"
)

// recorder is an in-memory queue.Publisher.
type recorder struct {
	mu     sync.Mutex
	events []queue.Envelope
}

func (r *recorder) Publish(_ context.Context, env queue.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, env)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type fixture struct {
	db       *gorm.DB
	cat      testutil.Catalogue
	provider *paymenttest.Provider
	events   *recorder
	apps     *ApplicationService
	payments *PaymentService
	admin    *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	logger := log.NewStdLogger(io.Discard)
	f := &fixture{
		db:       db,
		cat:      testutil.Seed(t, db),
		provider: paymenttest.New(),
		events:   &recorder{},
	}
	f.apps = NewApplicationService(db, f.events, logger)
	f.payments = NewPaymentService(db, f.provider, f.events, logger, PaymentOptions{BaseURL: "https://api.example.test/"})
	f.admin = NewAdminService(db, logger)
	return f
}

func (f *fixture) student() Principal {
	return Principal{UserID: f.cat.Student.ID, Role: model.RoleStudent, RemoteAddr: "10.0.0.2"}
}

func (f *fixture) other() Principal {
	return Principal{UserID: f.cat.Other.ID, Role: model.RoleStudent, RemoteAddr: "10.0.0.3"}
}

func (f *fixture) adminP() Principal {
	return Principal{UserID: f.cat.Admin.ID, Role: model.RoleAdmin, RemoteAddr: "10.0.0.1"}
}

// apply creates an application of p for program.
func (f *fixture) apply(t *testing.T, p Principal, programID uint64) model.Application {
	t.Helper()
	app, err := f.apps.Create(context.Background(), p, programID, ApplicationInput{PersonalStatement: "I like compilers."})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	return app
}

func (f *fixture) reload(t *testing.T, paymentID uint64) model.Payment {
	t.Helper()
	var p model.Payment
	if err := f.db.First(&p, paymentID).Error; err != nil {
		t.Fatalf("reload payment %d: %v", paymentID, err)
	}
	return p
}

func (f *fixture) countRows(t *testing.T, m any) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(m).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
