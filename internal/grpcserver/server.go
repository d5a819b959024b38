// Package grpcserver serves the standard grpc.health.v1 service and server
// reflection next to the HTTP pages.
package grpcserver

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/patric-chuzhbe/twitoff/internal/auth"
	"github.com/patric-chuzhbe/twitoff/internal/grpcserver/interceptor"
)

type tokenVerifier interface {
	Enabled() bool
	Verify(tokenString string) (*auth.Claims, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

var healthMethods = []string{
	"/grpc.health.v1.Health/Check",
	"/grpc.health.v1.Health/Watch",
}

var reflectionMethods = []string{
	"/grpc.reflection.v1.ServerReflection/ServerReflectionInfo",
	"/grpc.reflection.v1alpha.ServerReflection/ServerReflectionInfo",
}

// NewGRPCServer listens on addr and registers the health and reflection services.
// Reflection requires an admin token when verifier has a secret.
func NewGRPCServer(
	addr string,
	db pinger,
	verifier tokenVerifier,
) (*grpc.Server, net.Listener, *HealthChecker, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("in internal/grpcserver/server.go/NewGRPCServer(): error while `net.Listen()` calling: %w", err)
	}

	adminInterceptor := interceptor.NewAdminInterceptor(verifier)
	logged := append(append([]string{}, healthMethods...), reflectionMethods...)

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLoggingInterceptor(logged),
			adminInterceptor.UnaryAdminInterceptor(reflectionMethods),
		),
		grpc.ChainStreamInterceptor(
			interceptor.StreamLoggingInterceptor(logged),
			adminInterceptor.StreamAdminInterceptor(reflectionMethods),
		),
	)

	checker := NewHealthChecker(db)
	grpc_health_v1.RegisterHealthServer(server, checker.Server())
	reflection.Register(server)

	return server, lis, checker, nil
}
