package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"Vikings/modules/kit/logx"
	"Vikings/modules/kit/tracex"
)

const (
	traceIDHeader = "x-trace-id"
	spanIDHeader  = "x-span-id"
)

// unaryServerTrace 入站没有 trace 时补一个，span 取方法名；非 OK 的调用记一条日志。
func unaryServerTrace(log logx.Logger) gogrpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
		ctx = incomingTrace(ctx, info.FullMethod)
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			log.WithContext(ctx).Warn("grpc call failed",
				zap.String("method", info.FullMethod),
				zap.String("code", status.Code(err).String()),
				zap.Duration("cost", time.Since(start)),
				zap.Error(err))
		}
		return resp, err
	}
}

// streamServerTrace health Watch 走这里。
func streamServerTrace() gogrpc.StreamServerInterceptor {
	return func(srv any, ss gogrpc.ServerStream, info *gogrpc.StreamServerInfo, handler gogrpc.StreamHandler) error {
		return handler(srv, &tracedStream{ServerStream: ss, ctx: incomingTrace(ss.Context(), info.FullMethod)})
	}
}

func unaryClientTrace() gogrpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *gogrpc.ClientConn, invoker gogrpc.UnaryInvoker, opts ...gogrpc.CallOption) error {
		return invoker(outgoingTrace(ctx), method, req, reply, cc, opts...)
	}
}

type tracedStream struct {
	gogrpc.ServerStream
	ctx context.Context
}

func (s *tracedStream) Context() context.Context {
	return s.ctx
}

func outgoingTrace(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	var kv []string
	if id, ok := tracex.TraceIDFrom(ctx); ok {
		kv = append(kv, traceIDHeader, id)
	}
	if span, ok := tracex.SpanIDFrom(ctx); ok {
		kv = append(kv, spanIDHeader, span)
	}
	if len(kv) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, kv...)
}

// incomingTrace 优先用对端带来的 trace/span，缺的用 fallbackSpan 和新 trace 补齐。
func incomingTrace(ctx context.Context, fallbackSpan string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	span := fallbackSpan
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(traceIDHeader); len(v) > 0 && v[0] != "" {
			ctx = tracex.WithTraceID(ctx, v[0])
		}
		if v := md.Get(spanIDHeader); len(v) > 0 && v[0] != "" {
			span = v[0]
		}
	}
	return tracex.Ensure(ctx, span)
}
