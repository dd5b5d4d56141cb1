package tracing

import (
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsUserText(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("chat.group_id", "1"),
		attribute.String("message.content", "hello"),
		attribute.String("group.name", "Hikers"),
	)
	if len(attrs) != 1 {
		t.Fatalf("expected 1 attribute, got %d", len(attrs))
	}
	if attrs[0].Key != "chat.group_id" {
		t.Fatalf("expected chat.group_id to be retained, got %s", attrs[0].Key)
	}
}

func TestSafeErrorTruncates(t *testing.T) {
	if SafeError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
	err := SafeError(errors.New("first line\nSELECT * FROM messages"))
	if err.Error() != "first line" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	long := SafeError(errors.New(strings.Repeat("x", 1000)))
	if len(long.Error()) != 256 {
		t.Fatalf("expected truncation to 256, got %d", len(long.Error()))
	}
}

func TestNewProviderDisabled(t *testing.T) {
	provider, err := NewProvider(nil, Config{Enabled: false, ServiceName: "groupchat"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider == nil {
		t.Fatalf("expected provider")
	}
}
