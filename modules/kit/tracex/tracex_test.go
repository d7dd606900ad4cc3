package tracex

import (
	"context"
	"testing"
)

func TestTransitionID_RoundTrip(t *testing.T) {
	ctx := WithTransitionID(context.Background(), "tr-7")
	ctx = WithPhase(ctx, "snapshot")
	if got, ok := TransitionIDFrom(ctx); !ok || got != "tr-7" {
		t.Fatalf("期望 transition_id round-trip, got=%q ok=%v", got, ok)
	}
	if got, ok := PhaseFrom(ctx); !ok || got != "snapshot" {
		t.Fatalf("期望 phase round-trip, got=%q ok=%v", got, ok)
	}
}

func TestTraceIDFrom_空值视为不存在(t *testing.T) {
	if _, ok := TraceIDFrom(WithTraceID(context.Background(), "")); ok {
		t.Fatalf("期望空 trace_id 返回 ok=false")
	}
	if _, ok := TraceIDFrom(nil); ok {
		t.Fatalf("期望 nil ctx 返回 ok=false")
	}
	if len(NewTraceID()) != 32 {
		t.Fatalf("期望 NewTraceID 返回 32 位 hex")
	}
}
