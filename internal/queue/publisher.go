package queue

import (
	"context"
	"log"

	"github.com/iliyamo/study-abroad-marketplace/internal/config"
)

// Publisher sends an envelope to the broker. Implementations log and
// return errors; callers publish after commit and never roll back on a
// failed publish.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// Publish wraps payload in an envelope and sends it. A nil publisher is a
// no-op.
func Publish(ctx context.Context, p Publisher, eventType string, payload any) error {
	if p == nil {
		return nil
	}
	env, err := NewEnvelope(eventType, payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, env)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Envelope) error { return nil }
func (NopPublisher) Close() error                           { return nil }

// NewPublisher selects the broker configured by EVENT_BROKER.
func NewPublisher(cfg config.EventsConfig) Publisher {
	switch cfg.Broker {
	case "kafka":
		return NewKafkaPublisher(cfg)
	case "rabbitmq", "amqp":
		return NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	case "none", "":
		return NopPublisher{}
	default:
		log.Printf("events: unknown broker %q, events disabled", cfg.Broker)
		return NopPublisher{}
	}
}
