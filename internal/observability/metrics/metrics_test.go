package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("action_class", "post-message"),
		attribute.String("group_id", "456"),
		attribute.String("principal_id", "u1"),
		attribute.String("reason", "excessive_caps"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "action_class" && attrs[1].Key != "action_class" {
		t.Fatalf("expected action_class to be retained")
	}
	if attrs[0].Key != "reason" && attrs[1].Key != "reason" {
		t.Fatalf("expected reason to be retained")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordMessageAppended(context.Background(), "text")
	m.RecordContentRejected(context.Background(), "excessive_caps")
	m.RecordRateLimitDenied(context.Background(), "post-message")
}

func TestNewBuildsInstruments(t *testing.T) {
	m, err := New(Config{ServiceName: "groupchat"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.messagesAppended == nil || m.rateLimitDenied == nil || m.groupLifecycle == nil {
		t.Fatalf("expected all counters to be initialized")
	}
	m.RecordMembershipChange(context.Background(), "join")
}
