package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestInit(t *testing.T) {
	logger := Init("test-service", slog.LevelInfo)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestCycleID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	// No cycle ID set
	if id := CycleID(ctx); id != "" {
		t.Errorf("expected empty cycle id, got %q", id)
	}

	// Set and retrieve
	ctx = WithCycleID(ctx, "cycle-123")
	if id := CycleID(ctx); id != "cycle-123" {
		t.Errorf("expected 'cycle-123', got %q", id)
	}
}

func TestNewCycleID(t *testing.T) {
	a, b := NewCycleID(), NewCycleID()
	if a == "" || b == "" {
		t.Fatal("expected non-empty cycle ids")
	}
	if a == b {
		t.Errorf("expected distinct cycle ids, got %q twice", a)
	}
}

func TestWithCycle(t *testing.T) {
	ctx := context.Background()

	// No cycle ID
	attrs := WithCycle(ctx)
	if attrs != nil {
		t.Errorf("expected nil attrs when no cycle id, got %v", attrs)
	}

	// With cycle ID set the attr slice carries one element
	ctx = WithCycleID(ctx, "abc-123")
	attrs = WithCycle(ctx)
	if len(attrs) == 0 {
		t.Fatal("expected non-empty attrs with cycle id set")
	}
}
