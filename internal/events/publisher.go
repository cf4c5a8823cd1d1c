// Package events publishes transcript-growth history and final session
// results to Kafka: one topic carries history-entry growth events, the
// other whole-session final results.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"cumulative-transcribe-service/internal/observability/metrics"
)

// Publisher publishes session events to separate Kafka topics.
type Publisher struct {
	writerUpdates *kafka.Writer
	writerFinal   *kafka.Writer
	principal     string
	topicUpdates  string
	topicFinal    string
	enabled       bool
	metrics       *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers      []string
	TopicUpdates string
	TopicFinal   string
	Principal    string
	Enabled      bool
}

// New creates a Kafka event publisher with separate topics for incremental
// history growth and final session results. A disabled or nil config falls
// back to log-only mode so the service runs without a broker.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("kafka disabled, using log-only mode")
		return &Publisher{
			principal:    cfg.Principal,
			topicUpdates: cfg.TopicUpdates,
			topicFinal:   cfg.TopicFinal,
			enabled:      false,
			metrics:      m,
		}
	}

	// Custom dialer with longer timeouts for DNS resolution in Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerUpdates := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicUpdates,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	writerFinal := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicFinal,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicUpdates", cfg.TopicUpdates).
		Str("topicFinal", cfg.TopicFinal).
		Str("principal", cfg.Principal).
		Msg("kafka publisher initialized")

	return &Publisher{
		writerUpdates: writerUpdates,
		writerFinal:   writerFinal,
		principal:     cfg.Principal,
		topicUpdates:  cfg.TopicUpdates,
		topicFinal:    cfg.TopicFinal,
		enabled:       true,
		metrics:       m,
	}
}

// PublishHistoryGrowth publishes one history-entry growth event, keyed by
// session id so a consumer can reconstruct per-session ordering.
func (p *Publisher) PublishHistoryGrowth(ctx context.Context, sessionID string, entry any) error {
	return p.publish(ctx, p.writerUpdates, p.topicUpdates, "history_growth", sessionID, entry)
}

// PublishFinal publishes the final session result.
func (p *Publisher) PublishFinal(ctx context.Context, sessionID string, result any) error {
	return p.publish(ctx, p.writerFinal, p.topicFinal, "final", sessionID, result)
}

// publish is the internal method that writes to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
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
			Msg("failed to write to kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerUpdates != nil {
		if e := p.writerUpdates.Close(); e != nil {
			log.Error().Err(e).Msg("error closing updates writer")
			err = e
		}
	}
	if p.writerFinal != nil {
		if e := p.writerFinal.Close(); e != nil {
			log.Error().Err(e).Msg("error closing final writer")
			err = e
		}
	}
	return err
}
