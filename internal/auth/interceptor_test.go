// ABOUTME: Tests for the gRPC authentication and authorization interceptors
// ABOUTME: Covers metadata tokens, public health checks, and the Unauthenticated/PermissionDenied split

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeServerStream) Context() context.Context {
	return f.ctx
}

func rpcContext(token string) context.Context {
	if token == "" {
		return context.Background()
	}
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
}

func TestUnaryInterceptor(t *testing.T) {
	f := newGateFixture(t)
	policy := mustPolicy(t, DefaultGRPCRules())
	interceptor := UnaryInterceptor(f.gate, policy, nil)

	studentToken := issue(t, f.tokens, student)
	teacherToken := issue(t, f.tokens, teacher)

	tests := []struct {
		name   string
		method string
		token  string
		want   codes.Code
	}{
		{"health is public", "/grpc.health.v1.Health/Check", "", codes.OK},
		{"unknown service needs auth", "/records.v1.Courses/List", "", codes.Unauthenticated},
		{"unknown service with token", "/records.v1.Courses/List", studentToken, codes.OK},
		{"bad token is anonymous", "/records.v1.Courses/List", "garbage", codes.Unauthenticated},
		{"reflection as student", "/grpc.reflection.v1.ServerReflection/ServerReflectionInfo", studentToken, codes.PermissionDenied},
		{"reflection as teacher", "/grpc.reflection.v1alpha.ServerReflection/ServerReflectionInfo", teacherToken, codes.OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sawState bool
			handler := func(ctx context.Context, req any) (any, error) {
				sawState = Established(ctx)
				return "ok", nil
			}

			_, err := interceptor(rpcContext(tt.token), nil, &grpc.UnaryServerInfo{FullMethod: tt.method}, handler)
			assert.Equal(t, tt.want, status.Code(err))
			if tt.want == codes.OK {
				assert.True(t, sawState)
			}
		})
	}
}

func TestUnaryInterceptor_HandlerSeesPrincipal(t *testing.T) {
	f := newGateFixture(t)
	interceptor := UnaryInterceptor(f.gate, mustPolicy(t, DefaultGRPCRules()), nil)

	var got Principal
	_, err := interceptor(rpcContext(issue(t, f.tokens, student)), nil,
		&grpc.UnaryServerInfo{FullMethod: "/records.v1.Courses/List"},
		func(ctx context.Context, req any) (any, error) {
			got = MustPrincipal(ctx)
			return nil, nil
		})
	require.NoError(t, err)
	assert.Equal(t, student.ID, got.ID)
}

func TestStreamInterceptor(t *testing.T) {
	f := newGateFixture(t)
	interceptor := StreamInterceptor(f.gate, mustPolicy(t, DefaultGRPCRules()), nil)
	info := &grpc.StreamServerInfo{FullMethod: "/grpc.reflection.v1.ServerReflection/ServerReflectionInfo"}

	err := interceptor(nil, &fakeServerStream{ctx: rpcContext("")}, info, func(srv any, ss grpc.ServerStream) error {
		t.Fatal("handler must not run")
		return nil
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	var got Principal
	err = interceptor(nil, &fakeServerStream{ctx: rpcContext(issue(t, f.tokens, teacher))}, info, func(srv any, ss grpc.ServerStream) error {
		got = MustPrincipal(ss.Context())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, got.ID)
}
