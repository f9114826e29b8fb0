package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// NotificationLog turns domain events into one human readable line each in
// <Dir>/notifications.log. It stands in for the e-mail/SMS sender.
type NotificationLog struct {
	Dir string
	mu  sync.Mutex
}

func NewNotificationLog(dir string) *NotificationLog { return &NotificationLog{Dir: dir} }

func (n *NotificationLog) Handle(_ context.Context, env Envelope) error {
	line, err := n.format(env)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := os.MkdirAll(n.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", n.Dir, err)
	}
	f, err := os.OpenFile(filepath.Join(n.Dir, "notifications.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func (n *NotificationLog) format(env Envelope) (string, error) {
	at := env.OccurredAt.Format("2006-01-02T15:04:05Z07:00")
	switch env.Type {
	case TypePaymentCompleted:
		var ev PaymentCompletedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return fmt.Sprintf("[%s] Payment received | payment_id=%d | application_id=%d | user_id=%d | reference=%s | amount=%d %s | via=%s\n",
			at, ev.PaymentID, ev.ApplicationID, ev.UserID, ev.ReferenceNumber, ev.AmountCents, ev.Currency, ev.Source), nil
	case TypePaymentRefunded:
		var ev PaymentRefundedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return fmt.Sprintf("[%s] Payment refunded | payment_id=%d | user_id=%d | amount=%d %s | refund=%s\n",
			at, ev.PaymentID, ev.UserID, ev.AmountCents, ev.Currency, ev.RefundID), nil
	case TypePaymentReviewRequired:
		var ev PaymentReviewRequiredEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return fmt.Sprintf("[%s] REVIEW payment | payment_id=%d | user_id=%d | local_status=%s | session=%s | event=%s\n",
			at, ev.PaymentID, ev.UserID, ev.LocalStatus, ev.SessionID, ev.ProviderEvent), nil
	case TypeApplicationStatusChanged:
		var ev ApplicationStatusChangedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return fmt.Sprintf("[%s] Application update | application_id=%d | user_id=%d | reference=%s | %s -> %s | notes=%q\n",
			at, ev.ApplicationID, ev.UserID, ev.ReferenceNumber, ev.OldStatus, ev.NewStatus, ev.DecisionNotes), nil
	default:
		return fmt.Sprintf("[%s] %s | id=%s\n", at, env.Type, env.ID), nil
	}
}
