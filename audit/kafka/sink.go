// Package kafka publishes goIdentity audit events to a Kafka topic with a
// sarama SyncProducer. Plug it into the engine with Builder.WithAuditSink;
// the engine's dispatcher keeps publishing off the request path.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/IBM/sarama"
	goIdentity "github.com/MrEthical07/goIdentity"
	"go.uber.org/zap"
)

const DefaultTopic = "identity.audit"

// Record header names.
const (
	HeaderEventType = "event_type"
	HeaderRequestID = "request_id"
)

// Sink writes each event as a JSON message keyed by email, falling back to
// the event ID, so one user's events stay on one partition.
type Sink struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
	failed   atomic.Uint64
}

// NewProducerConfig returns the producer settings used by NewSink.
func NewProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	return config
}

// NewSink connects a SyncProducer to brokers.
func NewSink(brokers []string, topic string, logger *zap.Logger) (*Sink, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return NewSinkWithProducer(producer, topic, logger), nil
}

// NewSinkWithProducer wraps an existing producer.
func NewSinkWithProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) *Sink {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{producer: producer, topic: topic, logger: logger}
}

// Emit publishes event. Delivery failures are counted and logged, never
// returned, so a broker outage does not fail identity operations.
func (s *Sink) Emit(ctx context.Context, event goIdentity.AuditEvent) {
	if ctx == nil {
		ctx = context.Background()
	}
	msg, err := s.message(ctx, event)
	if err != nil {
		s.failed.Add(1)
		s.logger.Warn("audit event marshal failed", zap.String("event_type", event.EventType), zap.Error(err))
		return
	}
	if err := ctx.Err(); err != nil {
		s.failed.Add(1)
		s.logger.Warn("audit event skipped", zap.String("event_type", event.EventType), zap.Error(err))
		return
	}

	if _, _, err := s.producer.SendMessage(msg); err != nil {
		s.failed.Add(1)
		s.logger.Warn("audit event publish failed",
			zap.String("topic", s.topic),
			zap.String("event_type", event.EventType),
			zap.String("request_id", goIdentity.RequestIDFromContext(ctx)),
			zap.Error(err),
		)
	}
}

// message encodes event and carries its type, and the request id found on
// ctx, as record headers so consumers can route without decoding the body.
func (s *Sink) message(ctx context.Context, event goIdentity.AuditEvent) (*sarama.ProducerMessage, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	key := event.Email
	if key == "" {
		key = event.ID
	}
	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderEventType), Value: []byte(event.EventType)},
	}
	if id := goIdentity.RequestIDFromContext(ctx); id != "" {
		headers = append(headers, sarama.RecordHeader{Key: []byte(HeaderRequestID), Value: []byte(id)})
	}

	return &sarama.ProducerMessage{
		Topic:   s.topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(data),
		Headers: headers,
	}, nil
}

// Failed returns the number of events that could not be published.
func (s *Sink) Failed() uint64 {
	return s.failed.Load()
}

// Close closes the underlying producer.
func (s *Sink) Close() error {
	return s.producer.Close()
}
