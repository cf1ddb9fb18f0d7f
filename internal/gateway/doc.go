// Package gateway orchestrates the records-gateway server components.
//
// # Overview
//
// The gateway package owns the process-level wiring: it opens the account
// store, builds the token service, password hasher, authentication gate, and
// access policies from configuration, and serves the HTTP surface (package
// web) and the optional gRPC surface behind them.
//
// # Gateway Struct
//
//	type Gateway struct {
//	    config      *config.Config
//	    store       store.Store
//	    httpServer  *http.Server
//	    grpcServer  *grpc.Server // nil when no gRPC listener is configured
//	    tsnetServer *tsnet.Server
//	    // ...
//	}
//
// # Access Rules
//
// HTTP and gRPC requests are checked against separate rule tables. Each table
// comes from access.rules / access.grpc_rules when configured and from
// auth.DefaultRules / auth.DefaultGRPCRules otherwise. gRPC rules match the
// full method name, e.g. /grpc.health.v1.Health/Check.
//
// # gRPC Surface
//
// The gRPC server registers grpc.health.v1.Health and server reflection. Unary
// and stream interceptors run the gate on the "authorization" metadata and
// then the gRPC policy.
//
// # Listeners
//
// Without Tailscale the gateway listens on server.http_addr and, when set,
// server.grpc_addr. With tailscale.enabled it joins the tailnet through tsnet
// and serves HTTP on :80 (:443 with https or funnel) and gRPC on :50051.
//
// # Lifecycle
//
//	gw, err := gateway.New(ctx, cfg, logger)
//	if err != nil { ... }
//	err = gw.Run(ctx) // blocks until ctx is canceled or a server fails
//
// Run shuts everything down with a five second budget: HTTP first, then
// gRPC (graceful, forced at the deadline), then the tailnet node and store.
package gateway
