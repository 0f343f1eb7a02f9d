package grpc

import (
	"crypto/tls"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewServer creates a gRPC server carrying the control service and the
// standard health service. tlsCfg may be nil for a plaintext listener
func NewServer(handler ControlServer, tlsCfg *tls.Config) (*grpc.Server, *health.Server) {
	var opts []grpc.ServerOption
	if tlsCfg != nil {
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsCfg)))
	}

	srv := grpc.NewServer(opts...)
	RegisterControlServer(srv, handler)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Enable gRPC reflection for grpcurl testing
	reflection.Register(srv)

	return srv, hs
}
