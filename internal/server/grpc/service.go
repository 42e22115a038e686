package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The service has a single unary method whose request and response are
// structpb.Struct values, so no generated code is needed.
//
//	request:  {key: string, max_requests: number, window_seconds: number}
//	response: {allowed: bool, remaining: number, retry_after_seconds: number,
//	           window_ends_at: RFC 3339 string}
const (
	serviceName   = "buildbio.internal.RateLimitStore"
	ConsumeMethod = "/" + serviceName + "/Consume"
)

type rateLimitStoreServer interface {
	Consume(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func consumeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(rateLimitStoreServer).Consume(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ConsumeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(rateLimitStoreServer).Consume(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var rateLimitStoreDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*rateLimitStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Consume", Handler: consumeHandler},
	},
	Streams: []grpc.StreamDesc{},
}
