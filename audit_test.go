package goIdentity

import (
	"context"
	"testing"
	"time"
)

func newAuditEnv(t *testing.T) (*testEnv, *ChannelSink) {
	t.Helper()
	sink := NewChannelSink(64)
	env := newTestEnv(t, func(c *Config) {
		c.Audit.Enabled = true
		c.Audit.BufferSize = 64
		c.Audit.DropIfFull = false
	})
	// Rebuild with the sink attached.
	engine, err := New().
		WithConfig(env.engine.Config()).
		WithRedis(env.rdb).
		WithUserDirectory(env.dir).
		WithMailer(env.mailer).
		WithAuditSink(sink).
		WithClock(env.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	env.engine.Close()
	env.engine = engine
	return env, sink
}

func nextEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
	}
	return AuditEvent{}
}

func TestAuditRecordsRequestContext(t *testing.T) {
	env, sink := newAuditEnv(t)
	defer env.engine.Close()

	ctx := WithUserAgent(WithClientIP(context.Background(), "203.0.113.7"), "curl/8")
	if err := env.engine.Register(ctx, RegisterInput{Email: "a@x.com", Password: "P1", ConfirmPassword: "P1"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	ev := nextEvent(t, sink)
	if ev.EventType != auditEventRegisterRequested || !ev.Success {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.IP != "203.0.113.7" || ev.UserAgent != "curl/8" || ev.Email != "a@x.com" || ev.Purpose != "REGISTER" {
		t.Fatalf("unexpected event context: %+v", ev)
	}
	if ev.ID == "" || !ev.Timestamp.Equal(env.clock.Now()) {
		t.Fatalf("unexpected id/timestamp: %q %v", ev.ID, ev.Timestamp)
	}
}

func TestAuditRecordsBusinessErrorCode(t *testing.T) {
	env, sink := newAuditEnv(t)
	defer env.engine.Close()

	_, err := env.engine.Login(context.Background(), LoginInput{Email: "ghost@x.com", Password: "x"})
	assertBusinessError(t, err, ErrEmailNotFound)

	ev := nextEvent(t, sink)
	if ev.EventType != auditEventLoginFailure || ev.Success || ev.Error != "email_not_found" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestAuditDisabledByDefault(t *testing.T) {
	env := newTestEnv(t, nil)
	if env.engine.audit != nil {
		t.Fatal("audit dispatcher must be nil when disabled")
	}
	if env.engine.AuditDropped() != 0 {
		t.Fatal("expected zero drops")
	}
}
