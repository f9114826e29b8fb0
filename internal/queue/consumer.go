package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"

	"github.com/iliyamo/study-abroad-marketplace/internal/config"
)

// Handler processes one decoded envelope. Returning an error rejects the
// message.
type Handler interface {
	Handle(ctx context.Context, env Envelope) error
}

// Consume dispatches to the configured broker and blocks until ctx is done.
func Consume(ctx context.Context, cfg config.EventsConfig, h Handler) error {
	switch cfg.Broker {
	case "kafka":
		return NewKafkaConsumer(cfg).Listen(ctx, h)
	case "rabbitmq", "amqp":
		return ConsumeRabbit(ctx, cfg.RabbitURL, cfg.RabbitQueue, h)
	default:
		return fmt.Errorf("events: broker %q cannot be consumed", cfg.Broker)
	}
}

// ConsumeRabbit connects to RabbitMQ, declares the queue and consumes
// messages until ctx is cancelled. Lost connections are re-dialed with
// exponential backoff capped at 30s.
func ConsumeRabbit(ctx context.Context, url, queue string, h Handler) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("notifier: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, queue, h)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("notifier: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, h Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("notifier: set QoS failed: %v", err)
	}
	if err := declareQueue(ch, queue); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := dispatch(ctx, d.Body, h); err != nil {
				log.Printf("notifier: handle message failed: %v", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// KafkaConsumer reads envelopes from a topic as part of a consumer group.
type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(cfg config.EventsConfig) *KafkaConsumer {
	return &KafkaConsumer{reader: kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaTopic,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})}
}

// Listen reads until ctx is cancelled. Handler failures are logged and the
// offset is still committed.
func (kc *KafkaConsumer) Listen(ctx context.Context, h Handler) error {
	defer func() { _ = kc.reader.Close() }()
	for {
		msg, err := kc.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("notifier: kafka read failed: %v", err)
			if !sleep(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}
		if err := dispatch(ctx, msg.Value, h); err != nil {
			log.Printf("notifier: handle message failed: %v", err)
		}
	}
}

func dispatch(ctx context.Context, body []byte, h Handler) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return h.Handle(ctx, env)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
