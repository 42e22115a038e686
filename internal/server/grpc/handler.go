package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/buildbio/internal/server/ratelimit"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Consume counts one request against the bucket named in req.
func (s *GRPCServer) Consume(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()
	key := f["key"].GetStringValue()
	if key == "" {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}
	maxRequests := int(f["max_requests"].GetNumberValue())
	windowSeconds := int(f["window_seconds"].GetNumberValue())

	res, err := s.store.Consume(ctx, key, maxRequests, windowSeconds)
	if err != nil {
		s.logger.Error(ctx, "consume failed", "error", err)
		return nil, status.Error(codes.Unavailable, "store unavailable")
	}

	out, err := structpb.NewStruct(map[string]any{
		"allowed":             res.Allowed,
		"remaining":           res.Remaining,
		"retry_after_seconds": res.RetryAfter,
		"window_ends_at":      res.WindowEndsAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func resultFromStruct(s *structpb.Struct) (ratelimit.Result, error) {
	f := s.GetFields()
	ends, err := time.Parse(time.RFC3339Nano, f["window_ends_at"].GetStringValue())
	if err != nil {
		return ratelimit.Result{}, err
	}
	return ratelimit.Result{
		Allowed:      f["allowed"].GetBoolValue(),
		Remaining:    int(f["remaining"].GetNumberValue()),
		RetryAfter:   int(f["retry_after_seconds"].GetNumberValue()),
		WindowEndsAt: ends,
	}, nil
}
