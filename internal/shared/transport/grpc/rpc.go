package grpc

import (
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"Vikings/modules/kit/logx"
)

// NewServer 挂好 trace 拦截器和 health 服务；service 为空串表示整体状态。
func NewServer(log logx.Logger, services ...string) (*gogrpc.Server, *health.Server) {
	if log == nil {
		log = logx.Nop()
	}
	srv := gogrpc.NewServer(
		gogrpc.ChainUnaryInterceptor(unaryServerTrace(log)),
		gogrpc.ChainStreamInterceptor(streamServerTrace()),
	)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for _, s := range services {
		hs.SetServingStatus(s, healthpb.HealthCheckResponse_SERVING)
	}
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

// Dial 内网明文连接，自动透传 trace。
func Dial(addr string) (*gogrpc.ClientConn, error) {
	return gogrpc.NewClient(addr,
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithChainUnaryInterceptor(unaryClientTrace()),
	)
}
