// ABOUTME: gRPC server assembly: keepalive, auth interceptors, health, and reflection
// ABOUTME: Every RPC passes the gate and the gRPC access policy before its handler runs

package gateway

import (
	"log/slog"
	"time"

	"github.com/campusworks/records-gateway/internal/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// newGRPCServer creates the gRPC server with auth interceptors and the
// health and reflection services registered.
func newGRPCServer(gate *auth.Gate, policy *auth.Policy, logger *slog.Logger) (*grpc.Server, *health.Server) {
	server := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    15 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(auth.UnaryInterceptor(gate, policy, logger)),
		grpc.ChainStreamInterceptor(auth.StreamInterceptor(gate, policy, logger)),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	logger.Info("gRPC auth interceptors enabled", "rules", len(policy.Rules()))
	return server, healthServer
}
