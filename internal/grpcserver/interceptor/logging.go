package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/twitoff/internal/logger"
)

func methodSet(methods []string) map[string]struct{} {
	result := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		result[m] = struct{}{}
	}

	return result
}

func logCall(method string, start time.Time, err error) {
	st, _ := status.FromError(err)

	logger.Log.Infoln(
		"gRPC request",
		"method", method,
		"duration", time.Since(start),
		"code", st.Code().String(),
		"message", st.Message(),
	)
}

// UnaryLoggingInterceptor logs each incoming unary gRPC request with method and duration.
func UnaryLoggingInterceptor(allowedMethods []string) grpc.UnaryServerInterceptor {
	allowed := methodSet(allowedMethods)

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		if _, ok := allowed[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		start := time.Now()
		resp, err = handler(ctx, req)
		logCall(info.FullMethod, start, err)

		return resp, err
	}
}

// StreamLoggingInterceptor logs each streaming call once it ends.
func StreamLoggingInterceptor(allowedMethods []string) grpc.StreamServerInterceptor {
	allowed := methodSet(allowedMethods)

	return func(
		srv interface{},
		stream grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if _, ok := allowed[info.FullMethod]; !ok {
			return handler(srv, stream)
		}

		start := time.Now()
		err := handler(srv, stream)
		logCall(info.FullMethod, start, err)

		return err
	}
}
