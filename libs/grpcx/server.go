package grpcx

import (
	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewServer returns a gRPC server with tracing, request ids and, when logger is set, call logging.
func NewServer(logger *slog.Logger, extra ...grpc.ServerOption) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{UnaryServerRequestIDInterceptor()}
	if logger != nil {
		interceptors = append(interceptors, UnaryServerLoggingInterceptor(logger))
	}
	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	}
	return grpc.NewServer(append(opts, extra...)...)
}

// RegisterHealth serves grpc.health.v1 with the overall server and each named service marked
// SERVING. Call Shutdown on the result to report NOT_SERVING while draining.
func RegisterHealth(srv *grpc.Server, services ...string) *health.Server {
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for _, name := range services {
		hs.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}
	return hs
}
