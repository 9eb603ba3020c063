package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	goIdentity "github.com/MrEthical07/goIdentity"
)

func TestSinkPublishesJSON(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev goIdentity.AuditEvent
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.EventType != "login_success" || ev.Email != "a@x.com" || !ev.Success {
			return errors.New("unexpected event payload")
		}
		return nil
	})

	sink := NewSinkWithProducer(producer, "", nil)
	sink.Emit(context.Background(), goIdentity.AuditEvent{
		ID:        "01J0000000000000000000000",
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EventType: "login_success",
		Email:     "a@x.com",
		Success:   true,
	})

	if sink.Failed() != 0 {
		t.Fatalf("failed = %d", sink.Failed())
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestSinkCountsPublishFailures(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	sink := NewSinkWithProducer(producer, "audit", nil)
	sink.Emit(context.Background(), goIdentity.AuditEvent{ID: "id-1", EventType: "otp_locked"})

	if sink.Failed() != 1 {
		t.Fatalf("failed = %d, want 1", sink.Failed())
	}
	_ = sink.Close()
}

func TestProducerConfigIsIdempotent(t *testing.T) {
	cfg := NewProducerConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("producer config invalid: %v", err)
	}
	if !cfg.Producer.Idempotent || cfg.Producer.RequiredAcks != sarama.WaitForAll {
		t.Fatal("expected idempotent producer with full acks")
	}
}

func headerValue(msg *sarama.ProducerMessage, key string) (string, bool) {
	for _, h := range msg.Headers {
		if string(h.Key) == key {
			return string(h.Value), true
		}
	}
	return "", false
}

func TestMessageCarriesRequestIDHeader(t *testing.T) {
	sink := NewSinkWithProducer(nil, "audit", nil)
	ctx := goIdentity.WithRequestID(context.Background(), "host/abc-000001")

	msg, err := sink.message(ctx, goIdentity.AuditEvent{ID: "id-1", EventType: "otp_issued", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("message failed: %v", err)
	}
	if got, _ := headerValue(msg, HeaderRequestID); got != "host/abc-000001" {
		t.Fatalf("request id header = %q", got)
	}
	if got, _ := headerValue(msg, HeaderEventType); got != "otp_issued" {
		t.Fatalf("event type header = %q", got)
	}
	if key, _ := msg.Key.Encode(); string(key) != "a@x.com" {
		t.Fatalf("key = %q", key)
	}

	msg, err = sink.message(context.Background(), goIdentity.AuditEvent{ID: "id-2", EventType: "login_failed"})
	if err != nil {
		t.Fatalf("message failed: %v", err)
	}
	if _, ok := headerValue(msg, HeaderRequestID); ok {
		t.Fatal("request id header must be omitted without one on the context")
	}
	if key, _ := msg.Key.Encode(); string(key) != "id-2" {
		t.Fatalf("key = %q, want event id fallback", key)
	}
}

func TestSinkSkipsExpiredContext(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)

	sink := NewSinkWithProducer(producer, "audit", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink.Emit(ctx, goIdentity.AuditEvent{ID: "id-1", EventType: "otp_issued"})

	if sink.Failed() != 1 {
		t.Fatalf("failed = %d, want 1", sink.Failed())
	}
	_ = sink.Close()
}
