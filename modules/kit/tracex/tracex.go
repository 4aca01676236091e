package tracex

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type ctxKey uint8

const (
	traceKey ctxKey = iota
	spanKey
)

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey, id)
}

func TraceIDFrom(ctx context.Context) (string, bool) {
	return stringValue(ctx, traceKey)
}

func WithSpanID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, spanKey, id)
}

func SpanIDFrom(ctx context.Context) (string, bool) {
	return stringValue(ctx, spanKey)
}

// Ensure 如果 ctx 里还没有 trace_id 就生成一个，span 固定为 span。
// 定时器结算这类没有入站请求的流程用它来串联日志。
func Ensure(ctx context.Context, span string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := TraceIDFrom(ctx); !ok {
		if id := NewTraceID(); id != "" {
			ctx = WithTraceID(ctx, id)
		}
	}
	if span != "" {
		ctx = WithSpanID(ctx, span)
	}
	return ctx
}

// NewTraceID 16 字节随机数的 hex。
func NewTraceID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(b[:])
}

func stringValue(ctx context.Context, key ctxKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	s, ok := ctx.Value(key).(string)
	return s, ok && s != ""
}
