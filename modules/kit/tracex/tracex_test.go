package tracex

import (
	"context"
	"testing"
)

func TestEnsure_保留已有trace(t *testing.T) {
	ctx := WithTraceID(context.Background(), "t-1")
	ctx = Ensure(ctx, "scheduler")
	if got, _ := TraceIDFrom(ctx); got != "t-1" {
		t.Fatalf("已有 trace_id 不应被覆盖, got=%q", got)
	}
	if got, _ := SpanIDFrom(ctx); got != "scheduler" {
		t.Fatalf("span 设置失败, got=%q", got)
	}
}

func TestEnsure_缺失时生成(t *testing.T) {
	ctx := Ensure(context.Background(), "")
	if got, ok := TraceIDFrom(ctx); !ok || len(got) != 32 {
		t.Fatalf("期望生成 32 位 hex trace_id, got=%q ok=%v", got, ok)
	}
}
