// Package paymenttest provides an in-memory payment.Provider for tests.
package paymenttest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/iliyamo/study-abroad-marketplace/internal/payment"
)

// Secret is the only signature the fake accepts.
const Secret = "fake-signature"

// Provider keeps sessions in memory. The *Err fields make the matching
// call fail; the counters record how often each call happened.
type Provider struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*payment.Session

	CreateErr error
	GetErr    error
	ExpireErr error
	RefundErr error

	// RefundStatus is returned by Refund; defaults to "succeeded".
	RefundStatus string

	Creates  int
	Gets     int
	Expires  int
	Refunds  []payment.RefundRequest
	Requests []payment.CheckoutRequest
}

func New() *Provider {
	return &Provider{sessions: map[string]*payment.Session{}}
}

func (p *Provider) CreateCheckout(_ context.Context, req payment.CheckoutRequest) (payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Creates++
	p.Requests = append(p.Requests, req)
	if p.CreateErr != nil {
		return payment.Session{}, p.CreateErr
	}
	p.seq++
	id := fmt.Sprintf("cs_fake_%d", p.seq)
	s := &payment.Session{
		ID:          id,
		URL:         "https://checkout.example.test/pay/" + id,
		Status:      payment.SessionOpen,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Metadata:    req.Metadata(),
	}
	p.sessions[id] = s
	return *s, nil
}

func (p *Provider) GetSession(_ context.Context, id string) (payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Gets++
	if p.GetErr != nil {
		return payment.Session{}, p.GetErr
	}
	s, ok := p.sessions[id]
	if !ok {
		return payment.Session{}, fmt.Errorf("get %s: %w", id, payment.ErrProviderRejected)
	}
	return *s, nil
}

func (p *Provider) ExpireSession(_ context.Context, id string) (payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Expires++
	if p.ExpireErr != nil {
		return payment.Session{}, p.ExpireErr
	}
	s, ok := p.sessions[id]
	if !ok {
		return payment.Session{}, fmt.Errorf("expire %s: %w", id, payment.ErrProviderRejected)
	}
	if s.Status == payment.SessionOpen {
		s.Status = payment.SessionExpired
	}
	return *s, nil
}

func (p *Provider) Refund(_ context.Context, req payment.RefundRequest) (payment.RefundResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Refunds = append(p.Refunds, req)
	if p.RefundErr != nil {
		return payment.RefundResult{}, p.RefundErr
	}
	status := p.RefundStatus
	if status == "" {
		status = "succeeded"
	}
	return payment.RefundResult{ID: fmt.Sprintf("re_fake_%d", len(p.Refunds)), Status: status}, nil
}

// envelope is the fake wire format of a webhook delivery.
type envelope struct {
	ID      string           `json:"id"`
	Type    string           `json:"type"`
	Session *payment.Session `json:"session,omitempty"`
}

func (p *Provider) ParseWebhook(payload []byte, signature string) (payment.Event, error) {
	if signature != Secret {
		return payment.Event{}, payment.ErrInvalidSignature
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return payment.Event{}, fmt.Errorf("%w: %v", payment.ErrMalformedEvent, err)
	}
	return payment.Event{ID: env.ID, Type: env.Type, Session: env.Session}, nil
}

// Pay marks a session complete and paid, as if the student finished
// checkout. An expired session cannot be paid and is returned unchanged.
func (p *Provider) Pay(sessionID string) payment.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.sessions[sessionID]
	if s.Status == payment.SessionExpired {
		return *s
	}
	s.Status = payment.SessionComplete
	s.Paid = true
	s.PaymentRef = "pi_" + sessionID
	return *s
}

// Expire marks a session expired.
func (p *Provider) Expire(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[sessionID].Status = payment.SessionExpired
}

// Session returns the current state of a session.
func (p *Provider) Session(sessionID string) payment.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.sessions[sessionID]
}

// Webhook encodes an event the way ParseWebhook expects it.
func Webhook(eventType string, s *payment.Session) []byte {
	out, _ := json.Marshal(envelope{ID: "evt_" + eventType, Type: eventType, Session: s})
	return out
}
