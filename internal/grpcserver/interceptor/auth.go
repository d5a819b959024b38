package interceptor

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/twitoff/internal/auth"
	"github.com/patric-chuzhbe/twitoff/internal/logger"
)

type tokenVerifier interface {
	Enabled() bool
	Verify(tokenString string) (*auth.Claims, error)
}

// AdminInterceptor requires an admin token in the "authorization" metadata
// of the guarded methods. It is a no-op when the verifier has no secret.
type AdminInterceptor struct {
	verifier tokenVerifier
}

func NewAdminInterceptor(verifier tokenVerifier) *AdminInterceptor {
	return &AdminInterceptor{verifier: verifier}
}

func (a *AdminInterceptor) authorize(ctx context.Context, method string) error {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing admin token")
	}

	authHeader := md.Get("authorization")
	if len(authHeader) == 0 || authHeader[0] == "" {
		return status.Error(codes.Unauthenticated, "missing admin token")
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader[0], "Bearer "))
	if _, err := a.verifier.Verify(token); err != nil {
		logger.Log.Debugw("admin token rejected", "method", method, "error", err)
		return status.Error(codes.Unauthenticated, "invalid admin token")
	}

	return nil
}

// UnaryAdminInterceptor guards the unary methods listed in guardedMethods.
func (a *AdminInterceptor) UnaryAdminInterceptor(guardedMethods []string) grpc.UnaryServerInterceptor {
	guarded := methodSet(guardedMethods)

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if _, ok := guarded[info.FullMethod]; !ok || !a.verifier.Enabled() {
			return handler(ctx, req)
		}
		if err := a.authorize(ctx, info.FullMethod); err != nil {
			return nil, err
		}

		return handler(ctx, req)
	}
}

// StreamAdminInterceptor guards the streaming methods listed in guardedMethods.
func (a *AdminInterceptor) StreamAdminInterceptor(guardedMethods []string) grpc.StreamServerInterceptor {
	guarded := methodSet(guardedMethods)

	return func(
		srv interface{},
		stream grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if _, ok := guarded[info.FullMethod]; !ok || !a.verifier.Enabled() {
			return handler(srv, stream)
		}
		if err := a.authorize(stream.Context(), info.FullMethod); err != nil {
			return err
		}

		return handler(srv, stream)
	}
}
