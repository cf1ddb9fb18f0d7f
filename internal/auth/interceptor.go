// ABOUTME: gRPC interceptors running the authentication gate and access policy
// ABOUTME: Reads the bearer token from metadata and matches rules against the full method name

package auth

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// tokenFromMetadata returns the bearer token from the authorization metadata, or "".
func tokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get("authorization") {
		if token := extractBearerToken(v); token != "" {
			return token
		}
	}
	return ""
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

// authorizeRPC establishes the gate state and applies the policy to fullMethod.
func authorizeRPC(ctx context.Context, gate *Gate, policy *Policy, fullMethod string, logger *slog.Logger) (context.Context, error) {
	ctx = gate.Establish(ctx, tokenFromMetadata(ctx), "method", fullMethod, "peer_addr", peerAddr(ctx))

	principal, authenticated := PrincipalFromContext(ctx)
	switch policy.Decide("", fullMethod, principal, authenticated) {
	case Allow:
		return ctx, nil
	case DenyUnauthenticated:
		logger.Debug("access denied", "reason", "unauthenticated", "method", fullMethod)
		return nil, status.Error(codes.Unauthenticated, UnauthenticatedMessage)
	default:
		logger.Info("access denied", "reason", "forbidden", "method", fullMethod, "principal", principal.ID)
		return nil, status.Error(codes.PermissionDenied, ForbiddenMessage)
	}
}

// UnaryInterceptor returns a gRPC unary interceptor that authenticates and authorizes requests.
func UnaryInterceptor(gate *Gate, policy *Policy, logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "grpc_access")
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, err := authorizeRPC(ctx, gate, policy, info.FullMethod, logger)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamInterceptor returns a gRPC stream interceptor that authenticates and authorizes requests.
func StreamInterceptor(gate *Gate, policy *Policy, logger *slog.Logger) grpc.StreamServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "grpc_access")
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, err := authorizeRPC(ss.Context(), gate, policy, info.FullMethod, logger)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

// wrappedServerStream wraps a grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
