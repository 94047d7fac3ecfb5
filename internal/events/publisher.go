// Package events publishes transcript events emitted by recognition
// sessions to Kafka, with a log-only mode when Kafka is disabled.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"speech-cloud-sdk/internal/observability/metrics"
)

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers        []string
	TopicUpdated   string
	TopicCompleted string
	Principal      string
	Enabled        bool
}

// Publisher publishes transcript events to separate Kafka topics for live
// snapshots and completed transcripts.
type Publisher struct {
	writerUpdated   *kafka.Writer
	writerCompleted *kafka.Writer
	principal       string
	topicUpdated    string
	topicCompleted  string
	enabled         bool
	metrics         *metrics.Metrics
}

// New creates a Kafka event publisher. A nil config, a disabled config or
// an empty broker list all produce a publisher in log-only mode, so the
// session layer never needs to special-case a missing sink.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, transcript events in log-only mode")
		p := &Publisher{enabled: false, metrics: m}
		if cfg != nil {
			p.principal = cfg.Principal
			p.topicUpdated = cfg.TopicUpdated
			p.topicCompleted = cfg.TopicCompleted
		}
		return p
	}

	// Longer dial timeout for DNS resolution inside Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicUpdated", cfg.TopicUpdated).
		Str("topicCompleted", cfg.TopicCompleted).
		Str("principal", cfg.Principal).
		Msg("Kafka transcript publisher initialized")

	return &Publisher{
		writerUpdated:   newWriter(cfg.Brokers, cfg.TopicUpdated, transport),
		writerCompleted: newWriter(cfg.Brokers, cfg.TopicCompleted, transport),
		principal:       cfg.Principal,
		topicUpdated:    cfg.TopicUpdated,
		topicCompleted:  cfg.TopicCompleted,
		enabled:         true,
		metrics:         m,
	}
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// PublishUpdated publishes a live transcript snapshot event.
func (p *Publisher) PublishUpdated(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerUpdated, p.topicUpdated, "updated", key, event)
}

// PublishCompleted publishes a completed transcript event.
func (p *Publisher) PublishCompleted(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerCompleted, p.topicCompleted, "completed", key, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal transcript event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing transcript event")

	if !p.enabled || writer == nil {
		p.metrics.RecordPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write transcript event to Kafka")
		p.metrics.RecordPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerUpdated != nil {
		if e := p.writerUpdated.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing updated-topic writer")
			err = e
		}
	}
	if p.writerCompleted != nil {
		if e := p.writerCompleted.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing completed-topic writer")
			err = e
		}
	}
	return err
}
