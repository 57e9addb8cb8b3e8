package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestFromContextFallsBackToGlobal(t *testing.T) {
	if got := FromContext(context.Background()); got != zap.L() {
		t.Fatalf("expected global logger")
	}
}

func TestContextWithLoggerRoundTrip(t *testing.T) {
	l := zap.NewNop().With(zap.String("request_id", "abc"))
	ctx := ContextWithLogger(context.Background(), l)
	if got := FromContext(ctx); got != l {
		t.Fatalf("logger not carried by context")
	}
	if ContextWithLogger(ctx, nil) != ctx {
		t.Fatalf("nil logger must leave context untouched")
	}
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("shop-api", "test")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	_ = l.Sync()
}
