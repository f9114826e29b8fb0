package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

// Stripe adapts Stripe Checkout to Provider. Every API call is bounded by
// timeout.
type Stripe struct {
	api           *client.API
	webhookSecret string
	timeout       time.Duration
}

// NewStripe builds an adapter for the given secret key and webhook secret.
func NewStripe(secretKey, webhookSecret string, timeout time.Duration) *Stripe {
	return &Stripe{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		timeout:       timeout,
	}
}

func (s *Stripe) CreateCheckout(ctx context.Context, req CheckoutRequest) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(fmt.Sprint(req.PaymentID)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(req.AmountMinor),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(req.Name),
					Description: stripe.String(req.Description),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	for k, v := range req.Metadata() {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	// one session per payment row even if the request is retried
	params.SetIdempotencyKey(fmt.Sprintf("checkout-payment-%d", req.PaymentID))

	cs, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, classify("create checkout", err)
	}
	return fromCheckoutSession(cs), nil
}

func (s *Stripe) GetSession(ctx context.Context, sessionID string) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := s.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return Session{}, classify("get checkout", err)
	}
	return fromCheckoutSession(cs), nil
}

func (s *Stripe) ExpireSession(ctx context.Context, sessionID string) (Session, error) {
	cur, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if cur.Status != SessionOpen {
		return cur, nil
	}

	expireCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = expireCtx
	cs, err := s.api.CheckoutSessions.Expire(sessionID, params)
	if err != nil {
		// Stripe refuses to expire a session the student just completed.
		if again, gerr := s.GetSession(ctx, sessionID); gerr == nil && again.Status != SessionOpen {
			return again, nil
		}
		return Session{}, classify("expire checkout", err)
	}
	return fromCheckoutSession(cs), nil
}

func (s *Stripe) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	ref := req.PaymentRef
	if ref == "" {
		sess, err := s.GetSession(ctx, req.SessionID)
		if err != nil {
			return RefundResult{}, err
		}
		if sess.PaymentRef == "" {
			return RefundResult{}, fmt.Errorf("refund: %w: session %s has no payment intent", ErrProviderRejected, req.SessionID)
		}
		ref = sess.PaymentRef
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.RefundParams{PaymentIntent: stripe.String(ref)}
	if req.AmountMinor > 0 {
		params.Amount = stripe.Int64(req.AmountMinor)
	}
	params.Context = ctx
	params.SetIdempotencyKey(fmt.Sprintf("refund-payment-%d", req.PaymentID))

	r, err := s.api.Refunds.New(params)
	if err != nil {
		return RefundResult{}, classify("refund", err)
	}
	return RefundResult{ID: r.ID, Status: string(r.Status)}, nil
}

// ParseWebhook verifies the Stripe-Signature header against the endpoint
// secret before decoding anything.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		if errors.Is(err, webhook.ErrNotSigned) || errors.Is(err, webhook.ErrInvalidHeader) ||
			errors.Is(err, webhook.ErrNoValidSignature) || errors.Is(err, webhook.ErrTooOld) {
			return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	out := Event{ID: evt.ID, Type: string(evt.Type)}
	if !strings.HasPrefix(out.Type, "checkout.session.") {
		return out, nil
	}
	if evt.Data == nil || len(evt.Data.Raw) == 0 {
		return Event{}, fmt.Errorf("%w: %s without data.object", ErrMalformedEvent, out.Type)
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &cs); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	sess := fromCheckoutSession(&cs)
	out.Session = &sess
	return out, nil
}

func fromCheckoutSession(cs *stripe.CheckoutSession) Session {
	s := Session{
		ID:          cs.ID,
		URL:         cs.URL,
		Status:      string(cs.Status),
		Paid:        cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		AmountMinor: cs.AmountTotal,
		Currency:    strings.ToUpper(string(cs.Currency)),
		Metadata:    cs.Metadata,
	}
	if cs.PaymentIntent != nil {
		s.PaymentRef = cs.PaymentIntent.ID
	}
	return s
}

// classify sorts provider errors into rejected (4xx other than 429) and
// unavailable (everything else, timeouts included).
func classify(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.HTTPStatusCode >= 400 && se.HTTPStatusCode < 500 &&
		se.HTTPStatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w: %v", op, ErrProviderRejected, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrProviderUnavailable, err)
}
