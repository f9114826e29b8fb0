package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	klog "github.com/go-kratos/kratos/v2/log"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/iliyamo/study-abroad-marketplace/internal/config"
	"github.com/iliyamo/study-abroad-marketplace/internal/handler"
	"github.com/iliyamo/study-abroad-marketplace/internal/middleware"
	"github.com/iliyamo/study-abroad-marketplace/internal/model"
	"github.com/iliyamo/study-abroad-marketplace/internal/payment"
	"github.com/iliyamo/study-abroad-marketplace/internal/payment/paymenttest"
	"github.com/iliyamo/study-abroad-marketplace/internal/queue"
	"github.com/iliyamo/study-abroad-marketplace/internal/repository"
	"github.com/iliyamo/study-abroad-marketplace/internal/service"
	"github.com/iliyamo/study-abroad-marketplace/internal/testutil"
	"github.com/iliyamo/study-abroad-marketplace/internal/utils"
)

const (
	testSecret  = "router-test-secret"
	testLanding = "https://app.example.test/"
)

type server struct {
	e        *echo.Echo
	db       *gorm.DB
	cat      testutil.Catalogue
	provider *paymenttest.Provider
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := testutil.NewDB(t)
	s := &server{db: db, cat: testutil.Seed(t, db), provider: paymenttest.New()}

	logger := klog.NewStdLogger(io.Discard)
	events := queue.NopPublisher{}
	apps := service.NewApplicationService(db, events, logger)
	payments := service.NewPaymentService(db, s.provider, events, logger, service.PaymentOptions{BaseURL: "https://api.example.test"})
	admin := service.NewAdminService(db, logger)

	cfg := config.Config{Env: "test", JWTSecret: testSecret, AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: 4, LandingURL: testLanding}
	off := middleware.NewTokenBucket(config.RateLimitConfig{}, nil)
	lim := Limits{API: off, Auth: off, Webhook: off}

	e := echo.New()
	e.Validator = handler.NewRequestValidator()
	pay := handler.NewPaymentHandler(payments, testLanding, 0)
	guard := Guard{Secret: testSecret, Users: repository.NewUserRepo(db)}
	RegisterRoutes(e, &handler.HealthHandler{DB: db})
	RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), guard, lim)
	RegisterPublic(e, handler.NewCatalogueHandler(repository.NewInstitutionRepo(db), repository.NewProgramRepo(db)),
		middleware.NewResponseCache(config.CacheConfig{}, nil), lim)
	RegisterStudent(e, handler.NewApplicationHandler(apps, payments), pay, guard, lim)
	RegisterPayments(e, pay, guard, lim)
	RegisterAdmin(e, handler.NewAdminHandler(admin, apps, nil, "catalogue"), pay, guard, lim)
	s.e = e
	return s
}

func (s *server) bearer(t *testing.T, u model.User) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, u.ID, string(u.Role), 5)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return "Bearer " + tok.Token
}

// do sends a request; auth is an Authorization header value or "".
func (s *server) do(method, path, auth, body string, hdr ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expect(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d: %s", rec.Code, status, rec.Body.String())
	}
}

// applyAndSubmit creates and submits an application to the paid program.
func (s *server) applyAndSubmit(t *testing.T) uint64 {
	t.Helper()
	auth := s.bearer(t, s.cat.Student)
	rec := s.do(http.MethodPost, "/v1/programs/"+strconv.FormatUint(s.cat.PaidProgram.ID, 10)+"/applications", auth,
		`{"personal_statement":"I like compilers"}`)
	expect(t, rec, http.StatusCreated)
	var app model.Application
	decode(t, rec, &app)
	if len(app.ReferenceNumber) != utils.ReferenceLength || app.Status != model.ApplicationDraft {
		t.Fatalf("unexpected application %+v", app)
	}
	expect(t, s.do(http.MethodPost, "/v1/applications/"+strconv.FormatUint(app.ID, 10)+"/submit", auth, ""), http.StatusOK)
	return app.ID
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	expect(t, s.do(http.MethodGet, "/healthz", "", ""), http.StatusOK)
	rec := s.do(http.MethodGet, "/readyz", "", "")
	expect(t, rec, http.StatusOK)
	var body map[string]string
	decode(t, rec, &body)
	if body["database"] != "ok" || body["redis"] != "disabled" {
		t.Fatalf("readiness = %v", body)
	}
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t)

	t.Run("Given a new email When registering Then tokens and the access cookie are issued", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/v1/auth/register", "",
			`{"email":"New@Example.com","password":"longenough","first_name":"Nia","last_name":"New"}`)
		expect(t, rec, http.StatusCreated)
		var out struct {
			User   model.User `json:"user"`
			Access struct {
				Token string `json:"token"`
			} `json:"access"`
		}
		decode(t, rec, &out)
		if out.User.Email != "new@example.com" || out.User.Role != model.RoleStudent || out.Access.Token == "" {
			t.Fatalf("unexpected register response %+v", out)
		}
		if !strings.Contains(rec.Header().Get("Set-Cookie"), middleware.AccessCookie+"=") {
			t.Fatalf("access cookie missing")
		}
		me := s.do(http.MethodGet, "/v1/me", "Bearer "+out.Access.Token, "")
		expect(t, me, http.StatusOK)
	})

	t.Run("Given the admin role When registering Then 400", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/v1/auth/register", "",
			`{"email":"sneaky@example.com","password":"longenough","first_name":"S","last_name":"N","role":"admin"}`)
		expect(t, rec, http.StatusBadRequest)
	})

	t.Run("Given a short password When registering Then 400 names the field", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/v1/auth/register", "",
			`{"email":"short@example.com","password":"x","first_name":"S","last_name":"P"}`)
		expect(t, rec, http.StatusBadRequest)
		if !strings.Contains(rec.Body.String(), "password") {
			t.Fatalf("error does not name the field: %s", rec.Body.String())
		}
	})

	t.Run("Given a wrong password When logging in Then 401", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/v1/auth/login", "", `{"email":"new@example.com","password":"wrong-one"}`)
		expect(t, rec, http.StatusUnauthorized)
	})

	t.Run("Given no token When calling a protected route Then 401", func(t *testing.T) {
		expect(t, s.do(http.MethodGet, "/v1/applications", "", ""), http.StatusUnauthorized)
	})
}

func TestCatalogue(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodGet, "/v1/institutions?country=CA", "", "")
	expect(t, rec, http.StatusOK)
	var list struct {
		Items []model.Institution `json:"items"`
		Total int64               `json:"total"`
	}
	decode(t, rec, &list)
	if list.Total != 1 || list.Items[0].ID != s.cat.Paid.ID {
		t.Fatalf("country filter returned %+v", list)
	}

	expect(t, s.do(http.MethodGet, "/v1/programs?max_fee=abc", "", ""), http.StatusBadRequest)
	expect(t, s.do(http.MethodGet, "/v1/institutions/999999", "", ""), http.StatusNotFound)
	expect(t, s.do(http.MethodGet, "/v1/programs/"+strconv.FormatUint(s.cat.PaidProgram.ID, 10), "", ""), http.StatusOK)
}

func TestCheckoutOverHTTP(t *testing.T) {
	s := newServer(t)
	auth := s.bearer(t, s.cat.Student)
	appID := s.applyAndSubmit(t)
	payPath := "/v1/applications/" + strconv.FormatUint(appID, 10) + "/payments"

	// Browsers get a 303 to the hosted page.
	rec := s.do(http.MethodPost, payPath, auth, "")
	expect(t, rec, http.StatusSeeOther)
	if !strings.HasPrefix(rec.Header().Get(echo.HeaderLocation), "https://checkout.example.test/pay/") {
		t.Fatalf("location = %q", rec.Header().Get(echo.HeaderLocation))
	}

	// A second attempt resumes the same open session.
	rec = s.do(http.MethodPost, payPath, auth, "", echo.HeaderAccept, echo.MIMEApplicationJSON)
	expect(t, rec, http.StatusOK)
	var started struct {
		PaymentID   uint64 `json:"payment_id"`
		RedirectURL string `json:"redirect_url"`
		Resumed     bool   `json:"resumed"`
	}
	decode(t, rec, &started)
	if !started.Resumed || s.provider.Creates != 1 {
		t.Fatalf("expected resume of the first session, got %+v (creates=%d)", started, s.provider.Creates)
	}

	var pay model.Payment
	if err := s.db.First(&pay, started.PaymentID).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	sessionID := pay.SessionID()
	paid := s.provider.Pay(sessionID)

	t.Run("Given a bad signature When the webhook arrives Then 400 and nothing changes", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/v1/webhooks/stripe", "", string(paymenttest.Webhook(payment.EventCheckoutCompleted, &paid)),
			handler.SignatureHeader, "forged")
		expect(t, rec, http.StatusBadRequest)
		var p model.Payment
		s.db.First(&p, pay.ID)
		if p.Status != model.PaymentPending {
			t.Fatalf("status = %s after forged webhook", p.Status)
		}
	})

	t.Run("Given a signed completion When the webhook arrives Then the payment completes", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/v1/webhooks/stripe", "", string(paymenttest.Webhook(payment.EventCheckoutCompleted, &paid)),
			handler.SignatureHeader, paymenttest.Secret)
		expect(t, rec, http.StatusOK)
		var out service.WebhookOutcome
		decode(t, rec, &out)
		if out.Outcome != service.OutcomeCompleted || out.PaymentID != pay.ID {
			t.Fatalf("outcome = %+v", out)
		}
	})

	t.Run("Given the webhook already completed it When the browser returns Then 200 without a provider call", func(t *testing.T) {
		gets := s.provider.Gets
		q := url.Values{"session_id": {sessionID}, "payment_id": {strconv.FormatUint(pay.ID, 10)}}
		rec := s.do(http.MethodGet, "/v1/payments/success?"+q.Encode(), auth, "")
		expect(t, rec, http.StatusOK)
		if s.provider.Gets != gets {
			t.Fatalf("provider was queried again")
		}
	})

	t.Run("Given a session that does not match When the browser returns Then it lands on the unverified page", func(t *testing.T) {
		q := url.Values{"session_id": {"cs_other"}, "payment_id": {strconv.FormatUint(pay.ID, 10)}}
		rec := s.do(http.MethodGet, "/v1/payments/success?"+q.Encode(), auth, "")
		expect(t, rec, http.StatusSeeOther)
		if loc := rec.Header().Get(echo.HeaderLocation); !strings.Contains(loc, "payment=unverified") {
			t.Fatalf("location = %q", loc)
		}
	})

	t.Run("Given a completed payment When initiating again Then 409", func(t *testing.T) {
		expect(t, s.do(http.MethodPost, payPath, auth, ""), http.StatusConflict)
	})

	t.Run("Given another student When reading the payment status Then 403", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/v1/payments/"+strconv.FormatUint(pay.ID, 10)+"/status", s.bearer(t, s.cat.Other), "")
		expect(t, rec, http.StatusForbidden)
	})

	t.Run("Given the owner When listing history Then the completed payment is shown", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/v1/payments?status=completed", auth, "")
		expect(t, rec, http.StatusOK)
		var list struct {
			Items []model.Payment `json:"items"`
		}
		decode(t, rec, &list)
		if len(list.Items) != 1 || list.Items[0].ID != pay.ID {
			t.Fatalf("history = %+v", list.Items)
		}
	})
}

func TestFreeProgramNeedsNoPayment(t *testing.T) {
	s := newServer(t)
	auth := s.bearer(t, s.cat.Student)
	rec := s.do(http.MethodPost, "/v1/programs/"+strconv.FormatUint(s.cat.FreeProgram.ID, 10)+"/applications", auth, `{}`)
	expect(t, rec, http.StatusCreated)
	var app model.Application
	decode(t, rec, &app)

	rec = s.do(http.MethodPost, "/v1/applications/"+strconv.FormatUint(app.ID, 10)+"/payments", auth, "")
	expect(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"payment_required":false`) || s.provider.Creates != 0 {
		t.Fatalf("free program went to checkout: %s", rec.Body.String())
	}
}

func TestDashboard(t *testing.T) {
	s := newServer(t)
	s.applyAndSubmit(t)

	rec := s.do(http.MethodGet, "/v1/dashboard", s.bearer(t, s.cat.Student), "")
	expect(t, rec, http.StatusOK)
	var dash struct {
		Applications      []model.Application `json:"applications"`
		ApplicationsTotal int64               `json:"applications_total"`
		StatusCounts      map[string]int      `json:"status_counts"`
		RecentPayments    []model.Payment     `json:"recent_payments"`
	}
	decode(t, rec, &dash)
	if dash.ApplicationsTotal != 1 || len(dash.Applications) != 1 {
		t.Fatalf("applications = %d/%d", len(dash.Applications), dash.ApplicationsTotal)
	}
	if dash.StatusCounts["submitted"] != 1 || dash.StatusCounts["draft"] != 0 || len(dash.StatusCounts) != len(model.ApplicationStatuses()) {
		t.Fatalf("status counts = %v", dash.StatusCounts)
	}
	if len(dash.RecentPayments) != 0 {
		t.Fatalf("recent payments = %+v", dash.RecentPayments)
	}

	expect(t, s.do(http.MethodGet, "/v1/dashboard", "", ""), http.StatusUnauthorized)
}

func TestAdminRoutes(t *testing.T) {
	s := newServer(t)
	appID := s.applyAndSubmit(t)
	adminAuth := s.bearer(t, s.cat.Admin)
	decision := "/v1/admin/applications/" + strconv.FormatUint(appID, 10) + "/decision"

	t.Run("Given a student token When calling admin routes Then 403", func(t *testing.T) {
		expect(t, s.do(http.MethodGet, "/v1/admin/stats", s.bearer(t, s.cat.Student), ""), http.StatusForbidden)
	})

	t.Run("Given an unknown status When deciding Then 400", func(t *testing.T) {
		expect(t, s.do(http.MethodPost, decision, adminAuth, `{"status":"maybe"}`), http.StatusBadRequest)
	})

	t.Run("Given a valid decision Then it is applied and audited", func(t *testing.T) {
		rec := s.do(http.MethodPost, decision, adminAuth, `{"status":"accepted","notes":"strong file"}`)
		expect(t, rec, http.StatusOK)
		var app model.Application
		decode(t, rec, &app)
		if app.Status != model.ApplicationAccepted {
			t.Fatalf("status = %s", app.Status)
		}
		rec = s.do(http.MethodGet, "/v1/admin/logs?target_type=application", adminAuth, "")
		expect(t, rec, http.StatusOK)
		var logs struct {
			Total int64 `json:"total"`
		}
		decode(t, rec, &logs)
		if logs.Total != 1 {
			t.Fatalf("admin log rows = %d", logs.Total)
		}
	})

	t.Run("Given a final decision When deciding again Then 409", func(t *testing.T) {
		expect(t, s.do(http.MethodPost, decision, adminAuth, `{"status":"rejected"}`), http.StatusConflict)
	})

	t.Run("Given an institution payload When creating Then 201", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/v1/admin/institutions", adminAuth,
			`{"name":"University of Oslo","country":"Norway","country_code":"NO","city":"Oslo","application_fee_cents":5000}`)
		expect(t, rec, http.StatusCreated)
		var inst model.Institution
		decode(t, rec, &inst)
		if !inst.IsActive || inst.ApplicationFeeCents != 5000 {
			t.Fatalf("institution = %+v", inst)
		}
	})

	t.Run("Given a missing is_active When toggling a user Then 400", func(t *testing.T) {
		path := "/v1/admin/users/" + strconv.FormatUint(s.cat.Other.ID, 10) + "/active"
		expect(t, s.do(http.MethodPatch, path, adminAuth, `{}`), http.StatusBadRequest)
		expect(t, s.do(http.MethodPatch, path, adminAuth, `{"is_active":false}`), http.StatusOK)
	})
}

func TestDeactivatedTokenIsRejected(t *testing.T) {
	s := newServer(t)
	otherAuth := s.bearer(t, s.cat.Other)
	expect(t, s.do(http.MethodGet, "/v1/me", otherAuth, ""), http.StatusOK)

	path := "/v1/admin/users/" + strconv.FormatUint(s.cat.Other.ID, 10) + "/active"
	expect(t, s.do(http.MethodPatch, path, s.bearer(t, s.cat.Admin), `{"is_active":false}`), http.StatusOK)

	for _, route := range []string{"/v1/me", "/v1/applications", "/v1/payments"} {
		rec := s.do(http.MethodGet, route, otherAuth, "")
		expect(t, rec, http.StatusForbidden)
		if !strings.Contains(rec.Body.String(), "deactivated") {
			t.Fatalf("%s body = %s", route, rec.Body.String())
		}
	}
	expect(t, s.do(http.MethodGet, "/v1/me", s.bearer(t, s.cat.Student), ""), http.StatusOK)
}

// payFee runs a checkout for an application and completes it by webhook.
func (s *server) payFee(t *testing.T, appID uint64) model.Payment {
	t.Helper()
	rec := s.do(http.MethodPost, "/v1/applications/"+strconv.FormatUint(appID, 10)+"/payments", s.bearer(t, s.cat.Student), "",
		echo.HeaderAccept, echo.MIMEApplicationJSON)
	expect(t, rec, http.StatusOK)
	var started struct {
		PaymentID uint64 `json:"payment_id"`
	}
	decode(t, rec, &started)
	var pay model.Payment
	if err := s.db.First(&pay, started.PaymentID).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	paid := s.provider.Pay(pay.SessionID())
	expect(t, s.do(http.MethodPost, "/v1/webhooks/stripe", "", string(paymenttest.Webhook(payment.EventCheckoutCompleted, &paid)),
		handler.SignatureHeader, paymenttest.Secret), http.StatusOK)
	return pay
}

func TestCancelOverHTTP(t *testing.T) {
	s := newServer(t)
	appID := s.applyAndSubmit(t)
	auth := s.bearer(t, s.cat.Student)
	rec := s.do(http.MethodPost, "/v1/applications/"+strconv.FormatUint(appID, 10)+"/payments", auth, "",
		echo.HeaderAccept, echo.MIMEApplicationJSON)
	expect(t, rec, http.StatusOK)
	var started struct {
		PaymentID uint64 `json:"payment_id"`
	}
	decode(t, rec, &started)

	rec = s.do(http.MethodGet, "/v1/payments/cancel?payment_id="+strconv.FormatUint(started.PaymentID, 10), auth, "")
	expect(t, rec, http.StatusSeeOther)
	if loc := rec.Header().Get(echo.HeaderLocation); loc != testLanding+"?payment=cancelled" {
		t.Fatalf("location = %q", loc)
	}
	var pay model.Payment
	s.db.First(&pay, started.PaymentID)
	if pay.Status != model.PaymentFailed || s.provider.Session(pay.SessionID()).Status != payment.SessionExpired {
		t.Fatalf("payment %s, session %s", pay.Status, s.provider.Session(pay.SessionID()).Status)
	}
}

func TestAdminCatalogueAndReports(t *testing.T) {
	s := newServer(t)
	appID := s.applyAndSubmit(t)
	pay := s.payFee(t, appID)
	adminAuth := s.bearer(t, s.cat.Admin)
	progPath := "/v1/admin/programs/" + strconv.FormatUint(s.cat.PaidProgram.ID, 10)

	t.Run("Given a student token When reading analytics Then 403", func(t *testing.T) {
		expect(t, s.do(http.MethodGet, "/v1/admin/analytics", s.bearer(t, s.cat.Student), ""), http.StatusForbidden)
	})

	t.Run("Given a completed fee When reading analytics Then revenue and top institutions show it", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/v1/admin/analytics", adminAuth, "")
		expect(t, rec, http.StatusOK)
		var out service.Analytics
		decode(t, rec, &out)
		if len(out.RevenueByMonth) != 1 || out.RevenueByMonth[0].AmountCents != pay.AmountCents || out.RevenueByMonth[0].Payments != 1 {
			t.Fatalf("revenue = %+v", out.RevenueByMonth)
		}
		if len(out.TopInstitutions) == 0 || out.TopInstitutions[0].InstitutionID != s.cat.Paid.ID || out.TopInstitutions[0].Applications != 1 {
			t.Fatalf("top institutions = %+v", out.TopInstitutions)
		}
	})

	t.Run("Given a student When reading their detail Then applications and payments are listed", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/v1/admin/users/"+strconv.FormatUint(s.cat.Student.ID, 10), adminAuth, "")
		expect(t, rec, http.StatusOK)
		if strings.Contains(rec.Body.String(), "password") {
			t.Fatalf("detail leaks the password hash: %s", rec.Body.String())
		}
		var out service.UserDetail
		decode(t, rec, &out)
		if out.User.ID != s.cat.Student.ID || len(out.Applications) != 1 || len(out.Payments) != 1 || out.Payments[0].ID != pay.ID {
			t.Fatalf("detail = %+v", out)
		}
		expect(t, s.do(http.MethodGet, "/v1/admin/users/999999", adminAuth, ""), http.StatusNotFound)
	})

	t.Run("Given a program When an admin deactivates it Then only admin listings show it", func(t *testing.T) {
		rec := s.do(http.MethodPut, progPath, adminAuth,
			`{"name":"MSc Computer Science","degree_type":"master","field_of_study":"Computer Science","currency":"CAD","is_active":false}`)
		expect(t, rec, http.StatusOK)
		var prog model.Program
		decode(t, rec, &prog)
		if prog.IsActive {
			t.Fatal("program still active")
		}
		expect(t, s.do(http.MethodGet, "/v1/programs/"+strconv.FormatUint(prog.ID, 10), "", ""), http.StatusNotFound)

		rec = s.do(http.MethodGet, "/v1/admin/programs?active=false", adminAuth, "")
		expect(t, rec, http.StatusOK)
		var list struct {
			Items []model.Program `json:"items"`
		}
		decode(t, rec, &list)
		if len(list.Items) != 1 || list.Items[0].ID != prog.ID {
			t.Fatalf("inactive programs = %+v", list.Items)
		}

		rec = s.do(http.MethodGet, "/v1/admin/logs?action="+model.ActionProgramUpdated, adminAuth, "")
		expect(t, rec, http.StatusOK)
		var logs struct {
			Total int64 `json:"total"`
		}
		decode(t, rec, &logs)
		if logs.Total != 1 {
			t.Fatalf("program_updated rows = %d", logs.Total)
		}
	})

	t.Run("Given an invalid program payload When updating Then 400", func(t *testing.T) {
		expect(t, s.do(http.MethodPut, progPath, adminAuth, `{"name":"x"}`), http.StatusBadRequest)
		expect(t, s.do(http.MethodPut, "/v1/admin/programs/999999", adminAuth,
			`{"name":"x","degree_type":"master","field_of_study":"y"}`), http.StatusNotFound)
	})

	t.Run("Given a deactivated institution When listing as admin Then it is still listed", func(t *testing.T) {
		path := "/v1/admin/institutions/" + strconv.FormatUint(s.cat.Free.ID, 10)
		rec := s.do(http.MethodPut, path, adminAuth,
			`{"name":"`+s.cat.Free.Name+`","country":"Germany","country_code":"DE","city":"Munich","is_active":false}`)
		expect(t, rec, http.StatusOK)

		rec = s.do(http.MethodGet, "/v1/admin/institutions", adminAuth, "")
		expect(t, rec, http.StatusOK)
		var all struct {
			Total int64 `json:"total"`
		}
		decode(t, rec, &all)
		if all.Total != 2 {
			t.Fatalf("admin institutions = %d", all.Total)
		}
		rec = s.do(http.MethodGet, "/v1/institutions", "", "")
		expect(t, rec, http.StatusOK)
		var public struct {
			Total int64 `json:"total"`
		}
		decode(t, rec, &public)
		if public.Total != 1 {
			t.Fatalf("public institutions = %d", public.Total)
		}
	})
}
