package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/iliyamo/study-abroad-marketplace/internal/model"
	"github.com/iliyamo/study-abroad-marketplace/internal/payment"
	"github.com/iliyamo/study-abroad-marketplace/internal/queue"
	"github.com/iliyamo/study-abroad-marketplace/internal/repository"
)

// Completion sources recorded on payment.completed events.
const (
	SourceReturn  = "return"
	SourceWebhook = "webhook"
	SourceSweep   = "sweep"
	SourceCancel  = "cancel"
)

// Webhook outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
	OutcomeIgnored   = "ignored"
	OutcomeReview    = "review_required"
)

// PaymentOptions configures a PaymentService.
type PaymentOptions struct {
	// BaseURL is the public URL the provider redirects the browser back to.
	BaseURL  string
	Currency string
	// Locker is optional; nil runs Initiate without the single-flight lock.
	Locker Locker
}

// InitiateResult is what Initiate hands back to the HTTP layer.
type InitiateResult struct {
	Payment           *model.Payment
	RedirectURL       string
	NoPaymentRequired bool
	// Resumed is set when an open checkout of an earlier attempt is reused.
	Resumed bool
}

// WebhookOutcome reports what a webhook delivery did.
type WebhookOutcome struct {
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type"`
	PaymentID uint64 `json:"payment_id,omitempty"`
	Outcome   string `json:"outcome"`
}

// PaymentStatusView is the public projection returned by Status.
type PaymentStatusView struct {
	ID          uint64              `json:"id"`
	Status      model.PaymentStatus `json:"status"`
	AmountCents int64               `json:"amount_cents"`
	Currency    string              `json:"currency"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// SweepReport summarizes one SweepStale run.
type SweepReport struct {
	Checked   int `json:"checked"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// PaymentService reconciles application fee payments with the hosted
// checkout provider. The browser return, the webhook and the sweeper all
// complete a payment through the same conditional update, so whichever
// arrives first wins and the others are no-ops.
type PaymentService struct {
	db       *gorm.DB
	apps     *repository.ApplicationRepo
	payments *repository.PaymentRepo
	logs     *repository.AdminLogRepo
	provider payment.Provider
	locker   Locker
	events   queue.Publisher
	log      *log.Helper

	baseURL  string
	currency string
	now      func() time.Time
}

func NewPaymentService(db *gorm.DB, provider payment.Provider, events queue.Publisher, logger log.Logger, opts PaymentOptions) *PaymentService {
	currency := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if currency == "" {
		currency = model.DefaultCurrency
	}
	return &PaymentService{
		db:       db,
		apps:     repository.NewApplicationRepo(db),
		payments: repository.NewPaymentRepo(db),
		logs:     repository.NewAdminLogRepo(db),
		provider: provider,
		locker:   opts.Locker,
		events:   events,
		log:      log.NewHelper(log.With(logger, "module", "service/payment")),
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Initiate starts, or resumes, the hosted checkout for an application fee.
func (s *PaymentService) Initiate(ctx context.Context, p Principal, applicationID uint64) (InitiateResult, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return InitiateResult{}, fromRepo(err, "application")
	}
	if !p.Owns(app.UserID) {
		return InitiateResult{}, fmt.Errorf("%w: not your application", ErrForbidden)
	}
	if app.Institution == nil || !app.Institution.RequiresPayment() {
		return InitiateResult{NoPaymentRequired: true}, nil
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, fmt.Sprintf("checkout:application:%d", app.ID))
		switch {
		case errors.Is(err, ErrLockBusy):
			return InitiateResult{}, fmt.Errorf("%w: checkout already in progress", ErrConflict)
		case err != nil:
			// The live payment index still admits one checkout.
			s.log.WithContext(ctx).Warnf("checkout lock for application %d: %v; continuing unlocked", app.ID, err)
		default:
			defer release()
		}
	}

	live, err := s.payments.FindLive(ctx, app.ID)
	switch {
	case err == nil && live.Status == model.PaymentCompleted:
		return InitiateResult{Payment: &live}, ErrAlreadyPaid
	case err == nil:
		res, done, err := s.resumeOrRetire(ctx, live)
		if done || err != nil {
			return res, err
		}
	case !errors.Is(err, repository.ErrNotFound):
		return InitiateResult{}, fromRepo(err, "payment")
	}

	pay := model.Payment{
		UserID:        p.UserID,
		ApplicationID: &app.ID,
		AmountCents:   app.Institution.ApplicationFeeCents,
		Currency:      s.currency,
		Description:   feeDescription(app),
		Status:        model.PaymentPending,
	}
	if err := s.payments.Create(ctx, &pay); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return InitiateResult{}, fmt.Errorf("%w: checkout already in progress", ErrConflict)
		}
		return InitiateResult{}, fromRepo(err, "payment")
	}

	sess, err := s.provider.CreateCheckout(ctx, payment.CheckoutRequest{
		PaymentID:     pay.ID,
		ApplicationID: app.ID,
		UserID:        p.UserID,
		AmountMinor:   pay.AmountCents,
		Currency:      pay.Currency,
		Name:          "Application fee",
		Description:   lineItemDescription(app),
		SuccessURL:    s.successURL(pay.ID),
		CancelURL:     s.cancelURL(pay.ID),
	})
	if err != nil {
		if _, ferr := s.payments.Transition(ctx, pay.ID, model.PaymentPending, model.PaymentFailed, nil); ferr != nil {
			s.log.WithContext(ctx).Errorf("mark payment %d failed after provider error: %v", pay.ID, ferr)
		}
		s.log.WithContext(ctx).Warnf("create checkout for payment %d: %v", pay.ID, err)
		return InitiateResult{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	if err := s.payments.SetSession(ctx, pay.ID, sess.ID); err != nil {
		// The session still carries payment_id, so a later webhook or the
		// sweeper can settle the row.
		s.log.WithContext(ctx).Errorf("store session %s on payment %d: %v", sess.ID, pay.ID, err)
		return InitiateResult{}, fromRepo(err, "payment")
	}
	sid := sess.ID
	pay.ProviderSessionID = &sid
	s.log.WithContext(ctx).Infof("payment %d created for application %d, session %s", pay.ID, app.ID, sess.ID)
	return InitiateResult{Payment: &pay, RedirectURL: sess.URL}, nil
}

// resumeOrRetire handles a pending payment found by Initiate. done reports
// that res is the final answer; otherwise the payment was retired and a new
// one may be created.
func (s *PaymentService) resumeOrRetire(ctx context.Context, live model.Payment) (res InitiateResult, done bool, err error) {
	if sid := live.SessionID(); sid != "" {
		sess, err := s.provider.GetSession(ctx, sid)
		if err != nil {
			return InitiateResult{}, true, fmt.Errorf("%w: %w", ErrProvider, err)
		}
		if sess.Paid {
			out, _, err := s.complete(ctx, live.ID, sess, SourceReturn)
			if err != nil {
				return InitiateResult{}, true, err
			}
			return InitiateResult{Payment: &out}, true, ErrAlreadyPaid
		}
		if sess.Status == payment.SessionOpen && sess.URL != "" {
			return InitiateResult{Payment: &live, RedirectURL: sess.URL, Resumed: true}, true, nil
		}
	}
	if _, err := s.payments.Transition(ctx, live.ID, model.PaymentPending, model.PaymentFailed, nil); err != nil {
		return InitiateResult{}, true, fromRepo(err, "payment")
	}
	s.log.WithContext(ctx).Infof("retired pending payment %d before a new checkout", live.ID)
	return InitiateResult{}, false, nil
}

// ConfirmFromReturn settles a payment when the browser comes back from the
// provider. The session is always re-fetched; query parameters are never
// trusted on their own.
func (s *PaymentService) ConfirmFromReturn(ctx context.Context, p Principal, sessionID string, paymentID uint64) (model.Payment, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || paymentID == 0 {
		return model.Payment{}, invalid("session_id and payment_id are required")
	}
	pay, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return model.Payment{}, fromRepo(err, "payment")
	}
	if !p.Owns(pay.UserID) {
		return model.Payment{}, fmt.Errorf("%w: not your payment", ErrForbidden)
	}
	if stored := pay.SessionID(); stored != "" && stored != sessionID {
		return model.Payment{}, invalid("session does not belong to payment %d", paymentID)
	}
	if pay.Status == model.PaymentCompleted {
		return pay, nil
	}

	sess, err := s.provider.GetSession(ctx, sessionID)
	if err != nil {
		return pay, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	if id, ok := sess.PaymentID(); ok && id != pay.ID {
		return pay, invalid("session does not belong to payment %d", paymentID)
	}
	if !sess.Paid {
		return pay, ErrNotPaid
	}
	out, _, err := s.complete(ctx, pay.ID, sess, SourceReturn)
	if errors.Is(err, ErrInvalidTransition) {
		s.requireReview(ctx, out, sess.ID, "browser_return")
	}
	return out, err
}

// ConfirmFromWebhook authenticates and applies one provider event.
func (s *PaymentService) ConfirmFromWebhook(ctx context.Context, payload []byte, signature string) (WebhookOutcome, error) {
	evt, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		return WebhookOutcome{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	out := WebhookOutcome{EventID: evt.ID, EventType: evt.Type, Outcome: OutcomeIgnored}

	switch evt.Type {
	case payment.EventCheckoutCompleted, payment.EventCheckoutAsyncSucceeded:
		pay, sess, err := s.webhookPayment(ctx, evt)
		if err != nil {
			return out, err
		}
		out.PaymentID = pay.ID
		if !sess.Paid {
			s.log.WithContext(ctx).Infof("event %s for payment %d is not paid yet, ignoring", evt.ID, pay.ID)
			return out, nil
		}
		res, changed, err := s.complete(ctx, pay.ID, sess, SourceWebhook)
		switch {
		case errors.Is(err, ErrInvalidTransition):
			s.requireReview(ctx, res, sess.ID, evt.Type)
			out.Outcome = OutcomeReview
			return out, nil
		case err != nil:
			return out, err
		case changed:
			out.Outcome = OutcomeCompleted
		default:
			out.Outcome = OutcomeDuplicate
		}
		return out, nil

	case payment.EventCheckoutExpired, payment.EventCheckoutAsyncFailed:
		pay, _, err := s.webhookPayment(ctx, evt)
		if err != nil {
			return out, err
		}
		out.PaymentID = pay.ID
		ok, err := s.payments.Transition(ctx, pay.ID, model.PaymentPending, model.PaymentFailed, nil)
		if err != nil {
			return out, fromRepo(err, "payment")
		}
		if ok {
			out.Outcome = OutcomeFailed
			s.log.WithContext(ctx).Infof("payment %d failed by %s", pay.ID, evt.Type)
		}
		return out, nil
	}
	return out, nil
}

// webhookPayment resolves the payment an event refers to.
func (s *PaymentService) webhookPayment(ctx context.Context, evt payment.Event) (model.Payment, payment.Session, error) {
	if evt.Session == nil {
		return model.Payment{}, payment.Session{}, invalid("event %s carries no checkout session", evt.ID)
	}
	sess := *evt.Session
	id, ok := sess.PaymentID()
	if !ok {
		return model.Payment{}, sess, invalid("event %s has no payment_id metadata", evt.ID)
	}
	pay, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return model.Payment{}, sess, fromRepo(err, "payment")
	}
	if stored := pay.SessionID(); stored != "" && sess.ID != "" && stored != sess.ID {
		return pay, sess, invalid("session %s does not belong to payment %d", sess.ID, id)
	}
	return pay, sess, nil
}

// complete moves a payment from pending to completed. changed is false when
// the payment was already completed. A payment that is failed or refunded
// is returned with ErrInvalidTransition and left as it is.
func (s *PaymentService) complete(ctx context.Context, id uint64, sess payment.Session, source string) (model.Payment, bool, error) {
	var (
		out     model.Payment
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pays := s.payments.WithTx(tx)
		fields := map[string]any{
			"completed_at":      s.now(),
			"provider_metadata": datatypes.JSON(sess.Snapshot()),
		}
		if sess.PaymentRef != "" {
			fields["provider_payment_ref"] = sess.PaymentRef
		}
		if sess.ID != "" {
			fields["provider_session_id"] = sess.ID
		}
		ok, err := pays.Transition(ctx, id, model.PaymentPending, model.PaymentCompleted, fields)
		if err != nil {
			return fromRepo(err, "payment")
		}
		cur, err := pays.GetByID(ctx, id)
		if err != nil {
			return fromRepo(err, "payment")
		}
		out, changed = cur, ok
		if !ok && cur.Status != model.PaymentCompleted {
			return fmt.Errorf("%w: payment %d is %s", ErrInvalidTransition, id, cur.Status)
		}
		return nil
	})
	if err != nil || !changed {
		return out, false, err
	}

	s.log.WithContext(ctx).Infof("payment %d completed via %s", id, source)
	evt := queue.PaymentCompletedEvent{
		PaymentID:   out.ID,
		UserID:      out.UserID,
		AmountCents: out.AmountCents,
		Currency:    out.Currency,
		Source:      source,
	}
	if out.CompletedAt != nil {
		evt.CompletedAt = *out.CompletedAt
	}
	if out.ApplicationID != nil {
		evt.ApplicationID = *out.ApplicationID
		if app, err := s.apps.GetByID(ctx, *out.ApplicationID); err == nil {
			evt.ReferenceNumber = app.ReferenceNumber
		}
	}
	if err := queue.Publish(ctx, s.events, queue.TypePaymentCompleted, evt); err != nil {
		s.log.WithContext(ctx).Warnf("publish completion of payment %d: %v", id, err)
	}
	return out, true, nil
}

// requireReview records money captured for a payment that is no longer
// pending. Nothing is changed locally.
func (s *PaymentService) requireReview(ctx context.Context, pay model.Payment, sessionID, signal string) {
	s.log.WithContext(ctx).Warnf("payment %d is %s but provider reports session %s paid (%s); manual review required",
		pay.ID, pay.Status, sessionID, signal)
	if err := queue.Publish(ctx, s.events, queue.TypePaymentReviewRequired, queue.PaymentReviewRequiredEvent{
		PaymentID:     pay.ID,
		UserID:        pay.UserID,
		LocalStatus:   string(pay.Status),
		SessionID:     sessionID,
		ProviderEvent: signal,
	}); err != nil {
		s.log.WithContext(ctx).Warnf("publish review of payment %d: %v", pay.ID, err)
	}
}

// Cancel fails the caller's pending payment. The checkout session is
// expired at the provider first so it cannot be paid afterwards; if it was
// paid already the payment completes instead. Other statuses are returned
// unchanged.
func (s *PaymentService) Cancel(ctx context.Context, p Principal, paymentID uint64) (model.Payment, error) {
	pay, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return model.Payment{}, fromRepo(err, "payment")
	}
	if !p.Owns(pay.UserID) {
		return model.Payment{}, fmt.Errorf("%w: not your payment", ErrForbidden)
	}
	if pay.Status != model.PaymentPending {
		return pay, nil
	}
	if sid := pay.SessionID(); sid != "" {
		sess, err := s.provider.ExpireSession(ctx, sid)
		if err != nil {
			// Left pending: the webhook or the sweeper settles it.
			s.log.WithContext(ctx).Warnf("expire session %s of payment %d: %v", sid, pay.ID, err)
			return pay, fmt.Errorf("%w: %w", ErrProvider, err)
		}
		if sess.Paid {
			out, _, err := s.complete(ctx, pay.ID, sess, SourceCancel)
			return out, err
		}
	}
	if _, err := s.payments.Transition(ctx, pay.ID, model.PaymentPending, model.PaymentFailed, nil); err != nil {
		return pay, fromRepo(err, "payment")
	}
	cur, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return pay, fromRepo(err, "payment")
	}
	return cur, nil
}

// Refund returns a completed payment through the provider. The local row
// only changes after the provider accepted the refund.
func (s *PaymentService) Refund(ctx context.Context, p Principal, paymentID uint64) (model.Payment, error) {
	pay, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return model.Payment{}, fromRepo(err, "payment")
	}
	if !p.CanSee(pay.UserID) {
		return model.Payment{}, fmt.Errorf("%w: not your payment", ErrForbidden)
	}
	if pay.Status != model.PaymentCompleted {
		return pay, fmt.Errorf("%w: only completed payments can be refunded, payment is %s", ErrInvalidTransition, pay.Status)
	}

	res, err := s.provider.Refund(ctx, payment.RefundRequest{
		PaymentID:   pay.ID,
		SessionID:   pay.SessionID(),
		PaymentRef:  pay.ProviderPaymentRef,
		AmountMinor: pay.AmountCents,
	})
	if err != nil {
		s.log.WithContext(ctx).Warnf("refund of payment %d: %v", pay.ID, err)
		return pay, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	if !res.Confirmed() {
		return pay, fmt.Errorf("%w: refund %s is %s", ErrProvider, res.ID, res.Status)
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.payments.WithTx(tx).Transition(ctx, pay.ID, model.PaymentCompleted, model.PaymentRefunded, map[string]any{"refunded_at": now})
		if err != nil {
			return fromRepo(err, "payment")
		}
		if !ok {
			return fmt.Errorf("%w: payment %d changed concurrently", ErrInvalidTransition, pay.ID)
		}
		if p.IsAdmin() {
			_, err = s.logs.WithTx(tx).Append(ctx, p.UserID, model.ActionPaymentRefunded, model.TargetPayment, pay.ID, map[string]any{
				"refund_id":    res.ID,
				"amount_cents": pay.AmountCents,
				"currency":     pay.Currency,
				"user_id":      pay.UserID,
			}, p.RemoteAddr)
			if err != nil {
				return fromRepo(err, "admin log")
			}
		}
		return nil
	})
	if err != nil {
		s.log.WithContext(ctx).Errorf("payment %d refunded at provider as %s but not recorded: %v", pay.ID, res.ID, err)
		return pay, err
	}
	pay.Status = model.PaymentRefunded
	pay.RefundedAt = &now
	pay.LiveApplicationID = nil

	s.log.WithContext(ctx).Infof("payment %d refunded (%s) by user %d", pay.ID, res.ID, p.UserID)
	if err := queue.Publish(ctx, s.events, queue.TypePaymentRefunded, queue.PaymentRefundedEvent{
		PaymentID:   pay.ID,
		UserID:      pay.UserID,
		AmountCents: pay.AmountCents,
		Currency:    pay.Currency,
		RefundID:    res.ID,
		RefundedAt:  now,
	}); err != nil {
		s.log.WithContext(ctx).Warnf("publish refund of payment %d: %v", pay.ID, err)
	}
	return pay, nil
}

// Get returns a payment visible to the caller.
func (s *PaymentService) Get(ctx context.Context, p Principal, id uint64) (model.Payment, error) {
	pay, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return model.Payment{}, fromRepo(err, "payment")
	}
	if !p.CanSee(pay.UserID) {
		return model.Payment{}, fmt.Errorf("%w: not your payment", ErrForbidden)
	}
	return pay, nil
}

func (s *PaymentService) Status(ctx context.Context, p Principal, id uint64) (PaymentStatusView, error) {
	pay, err := s.Get(ctx, p, id)
	if err != nil {
		return PaymentStatusView{}, err
	}
	return PaymentStatusView{
		ID:          pay.ID,
		Status:      pay.Status,
		AmountCents: pay.AmountCents,
		Currency:    pay.Currency,
		CreatedAt:   pay.CreatedAt,
		CompletedAt: pay.CompletedAt,
	}, nil
}

// History lists the caller's payments, newest first.
func (s *PaymentService) History(ctx context.Context, p Principal, f repository.PaymentFilter) ([]model.Payment, repository.Page, error) {
	if p.UserID == 0 {
		return nil, repository.Page{}, ErrForbidden
	}
	f.UserID = p.UserID
	out, page, err := s.payments.List(ctx, f)
	if err != nil {
		return nil, repository.Page{}, fromRepo(err, "payments")
	}
	return out, page, nil
}

// List lists every payment; admin only.
func (s *PaymentService) List(ctx context.Context, p Principal, f repository.PaymentFilter) ([]model.Payment, repository.Page, error) {
	if !p.IsAdmin() {
		return nil, repository.Page{}, fmt.Errorf("%w: admin only", ErrForbidden)
	}
	out, page, err := s.payments.List(ctx, f)
	if err != nil {
		return nil, repository.Page{}, fromRepo(err, "payments")
	}
	return out, page, nil
}

// SweepStale reconciles up to batch payments that stayed pending for longer
// than olderThan. Paid sessions complete, open sessions are left for the
// provider to expire, everything else fails. Provider errors are counted and
// retried on the next run.
func (s *PaymentService) SweepStale(ctx context.Context, olderThan time.Duration, batch int) (SweepReport, error) {
	var rep SweepReport
	if batch <= 0 {
		batch = 100
	}
	stale, err := s.payments.ListStalePending(ctx, s.now().Add(-olderThan), batch)
	if err != nil {
		return rep, fromRepo(err, "payments")
	}
	for _, pay := range stale {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Checked++
		if sid := pay.SessionID(); sid != "" {
			sess, err := s.provider.GetSession(ctx, sid)
			if err != nil {
				rep.Errors++
				s.log.WithContext(ctx).Warnf("sweep: session %s of payment %d: %v", sid, pay.ID, err)
				continue
			}
			if sess.Paid {
				if _, changed, err := s.complete(ctx, pay.ID, sess, SourceSweep); err != nil {
					rep.Errors++
					s.log.WithContext(ctx).Warnf("sweep: complete payment %d: %v", pay.ID, err)
				} else if changed {
					rep.Completed++
				}
				continue
			}
			if sess.Status == payment.SessionOpen {
				rep.Skipped++
				continue
			}
		}
		ok, err := s.payments.Transition(ctx, pay.ID, model.PaymentPending, model.PaymentFailed, nil)
		if err != nil {
			rep.Errors++
			s.log.WithContext(ctx).Warnf("sweep: fail payment %d: %v", pay.ID, err)
			continue
		}
		if ok {
			rep.Failed++
		}
	}
	if rep.Checked > 0 {
		s.log.WithContext(ctx).Infof("sweep: checked=%d completed=%d failed=%d skipped=%d errors=%d",
			rep.Checked, rep.Completed, rep.Failed, rep.Skipped, rep.Errors)
	}
	return rep, nil
}

func (s *PaymentService) successURL(paymentID uint64) string {
	// {CHECKOUT_SESSION_ID} is substituted by the provider and must stay unescaped.
	return fmt.Sprintf("%s/v1/payments/success?session_id={CHECKOUT_SESSION_ID}&payment_id=%d", s.baseURL, paymentID)
}

func (s *PaymentService) cancelURL(paymentID uint64) string {
	q := url.Values{"payment_id": {fmt.Sprint(paymentID)}}
	return s.baseURL + "/v1/payments/cancel?" + q.Encode()
}

func lineItemDescription(app model.Application) string {
	prog, inst := "program", "institution"
	if app.Program != nil {
		prog = app.Program.Name
	}
	if app.Institution != nil {
		inst = app.Institution.Name
	}
	return prog + " at " + inst
}

func feeDescription(app model.Application) string {
	return fmt.Sprintf("Application fee for %s (%s)", lineItemDescription(app), app.ReferenceNumber)
}
