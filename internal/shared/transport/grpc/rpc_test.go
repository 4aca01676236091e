package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	"Vikings/modules/kit/tracex"
)

func TestNewServer_健康检查(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen err=%v", err)
	}
	srv, hs := NewServer(nil, "mission")
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := Dial(lis.Addr().String())
	if err != nil {
		t.Fatalf("Dial err=%v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	client := healthpb.NewHealthClient(conn)
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "mission"})
	if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("resp=%v err=%v", resp, err)
	}

	hs.Shutdown()
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "mission"})
	if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("Shutdown 后应为 NOT_SERVING, resp=%v err=%v", resp, err)
	}
}

func TestTrace_出入站透传(t *testing.T) {
	ctx := tracex.WithSpanID(tracex.WithTraceID(context.Background(), "t-1"), "mission")
	out := outgoingTrace(ctx)
	md, _ := metadata.FromOutgoingContext(out)

	in := incomingTrace(metadata.NewIncomingContext(context.Background(), md), "fallback")
	if id, ok := tracex.TraceIDFrom(in); !ok || id != "t-1" {
		t.Fatalf("trace id=%q ok=%v", id, ok)
	}
	if span, ok := tracex.SpanIDFrom(in); !ok || span != "mission" {
		t.Fatalf("span id=%q ok=%v", span, ok)
	}
}

func TestTrace_入站缺失时补齐(t *testing.T) {
	in := incomingTrace(context.Background(), "/grpc.health.v1.Health/Check")
	if _, ok := tracex.TraceIDFrom(in); !ok {
		t.Fatalf("应生成 trace id")
	}
	if span, _ := tracex.SpanIDFrom(in); span != "/grpc.health.v1.Health/Check" {
		t.Fatalf("span 应取方法名, got=%q", span)
	}
	if _, ok := metadata.FromOutgoingContext(outgoingTrace(context.Background())); ok {
		t.Fatalf("没有 trace 时不应写出站 metadata")
	}
}
