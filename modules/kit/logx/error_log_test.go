package logx

import (
	"context"
	"errors"
	"testing"

	"Vikings/modules/kit/errx"
	"Vikings/modules/kit/tracex"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuildErrorLog_提取code与栈(t *testing.T) {
	err := errx.NewSys("AUTHORITY_DOWN", "authority 不可用").
		WithData("timer_id", int64(42)).
		WithCause(errors.New("connection refused"))

	meta := BuildErrorLog(err)
	if meta.Code != "AUTHORITY_DOWN" || meta.Msg == "" {
		t.Fatalf("code/msg 提取失败: %+v", meta)
	}
	if meta.Data["timer_id"] != int64(42) {
		t.Fatalf("data 提取失败: %v", meta.Data)
	}
	if len(meta.CauseChain) != 1 {
		t.Fatalf("cause 链长度错误: %v", meta.CauseChain)
	}
	if meta.Origin == "" || meta.Stack == "" {
		t.Fatalf("期望带上首次发生处的栈")
	}
}

func TestReportAccess_按业务码分级并带trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core))
	ctx := tracex.WithTraceID(context.Background(), "t-9")

	ReportAccess(ctx, l, "POST /api/missions/attack", 0)
	ReportAccess(ctx, l, "POST /api/missions/attack", 400)
	ReportAccess(ctx, l, "POST /api/missions/attack", 500)

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("期望 3 条日志, got=%d", len(entries))
	}
	want := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Fatalf("第 %d 条级别错误: got=%v want=%v", i, e.Level, want[i])
		}
		if e.ContextMap()["trace_id"] != "t-9" {
			t.Fatalf("第 %d 条缺少 trace_id: %v", i, e.ContextMap())
		}
	}
}
