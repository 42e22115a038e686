package grpc

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// internalTokenInterceptor admits only callers presenting the shared
// internal service token.
func (s *GRPCServer) internalTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.InternalTokenHeaderName); len(values) > 0 {
			token = values[0]
		}
	}
	if len(token) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	if len(s.internalToken) == 0 || subtle.ConstantTimeCompare([]byte(token), s.internalToken) != 1 {
		return nil, status.Error(codes.PermissionDenied, "forbidden")
	}
	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Warn(ctx, "grpc request failed", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start))
	} else {
		s.logger.Debug(ctx, "grpc request", "method", info.FullMethod, "duration", time.Since(start))
	}
	return resp, err
}
