package queue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	"github.com/iliyamo/study-abroad-marketplace/internal/config"
)

// KafkaPublisher writes envelopes to one topic, keyed by event type.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher builds a synchronous writer that waits for all replicas.
// SASL/TLS is enabled when KAFKA_USERNAME is set.
func NewKafkaPublisher(cfg config.EventsConfig) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: 10 * time.Second,
	}
	if cfg.KafkaUser != "" {
		w.Transport = &kafka.Transport{
			SASL: plain.Mechanism{Username: cfg.KafkaUser, Password: cfg.KafkaPassword},
			TLS:  &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, env Envelope) error {
	if p == nil || p.writer == nil {
		log.Println("kafka: producer not ready, skip publish")
		return nil
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.Type),
		Value: body,
		Time:  env.OccurredAt,
	}); err != nil {
		log.Printf("kafka: publish %s failed: %v", env.Type, err)
		return err
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
