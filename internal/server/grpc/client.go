package grpc

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/server/ratelimit"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// RemoteStore is a ratelimit.Store backed by another instance's consume RPC.
type RemoteStore struct {
	conn  grpc.ClientConnInterface
	token string
}

var _ ratelimit.Store = (*RemoteStore)(nil)

func NewRemoteStore(conn grpc.ClientConnInterface, token string) *RemoteStore {
	return &RemoteStore{conn: conn, token: token}
}

// DialRemoteStore connects to addr over an insecure channel; the consume
// RPC is meant for a private network.
func DialRemoteStore(addr, token string) (*RemoteStore, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return NewRemoteStore(conn, token), conn, nil
}

func (r *RemoteStore) Consume(ctx context.Context, key string, maxRequests, windowSeconds int) (ratelimit.Result, error) {
	req, err := structpb.NewStruct(map[string]any{
		"key":            key,
		"max_requests":   maxRequests,
		"window_seconds": windowSeconds,
	})
	if err != nil {
		return ratelimit.Result{}, err
	}

	ctx = metadata.AppendToOutgoingContext(ctx, common.InternalTokenHeaderName, r.token)
	resp := new(structpb.Struct)
	if err := r.conn.Invoke(ctx, ConsumeMethod, req, resp); err != nil {
		return ratelimit.Result{}, fmt.Errorf("remote consume: %w", err)
	}
	return resultFromStruct(resp)
}
