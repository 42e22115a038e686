// Package grpc exposes the rate limit store to internal callers over gRPC
// and provides the matching client. The service is never served on the
// public HTTP listener.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/buildbio/internal/logging"
	"github.com/dmitrijs2005/buildbio/internal/server/ratelimit"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address       string
	store         ratelimit.Store
	logger        logging.Logger
	internalToken []byte
}

func NewGRPCServer(a string, l logging.Logger, store ratelimit.Store, internalToken string) *GRPCServer {
	return &GRPCServer{
		address:       a,
		logger:        l.With("module", "grpc_server"),
		store:         store,
		internalToken: []byte(internalToken),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.internalTokenInterceptor))
	srv.RegisterService(&rateLimitStoreDesc, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

// serve accepts on lis until ctx is cancelled.
func (s *GRPCServer) serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())
	return srv.Serve(lis)
}
