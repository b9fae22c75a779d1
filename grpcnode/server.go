package grpcnode

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/poe/balances"
	"xdao.co/poe/chain"
	"xdao.co/poe/keys"
	"xdao.co/poe/node"
	"xdao.co/poe/poe"
	"xdao.co/poe/runtime"
	"xdao.co/poe/storage"
)

// Server exposes a node.Node over the Node gRPC service.
type Server struct {
	UnimplementedNodeServer
	Node *node.Node
}

func (s *Server) Submit(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Node == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing node")
	}
	sx, err := runtime.DecodeExtrinsic(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	receipt, err := s.Node.Submit(ctx, sx)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(string(receipt)), nil
}

func (s *Server) Owner(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	_ = ctx
	if s == nil || s.Node == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing node")
	}
	owner, ok := s.Node.Owner(chain.Content(in.GetValue()))
	if !ok {
		return nil, status.Error(codes.NotFound, poe.ErrNotFound.Error())
	}
	return wrapperspb.String(string(owner)), nil
}

func (s *Server) Balance(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.UInt64Value, error) {
	_ = ctx
	if s == nil || s.Node == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing node")
	}
	return wrapperspb.UInt64(uint64(s.Node.Balance(chain.AccountID(in.GetValue())))), nil
}

func (s *Server) Nonce(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.UInt64Value, error) {
	_ = ctx
	if s == nil || s.Node == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing node")
	}
	return wrapperspb.UInt64(uint64(s.Node.Nonce(chain.AccountID(in.GetValue())))), nil
}

func (s *Server) Head(ctx context.Context, in *emptypb.Empty) (*wrapperspb.StringValue, error) {
	_, _ = ctx, in
	if s == nil || s.Node == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing node")
	}
	b, err := json.Marshal(s.Node.Head())
	if err != nil {
		return nil, status.Error(codes.Internal, "head encoding failed")
	}
	return wrapperspb.String(string(b)), nil
}

func (s *Server) Block(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if s == nil || s.Node == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing node")
	}
	b, err := s.Node.Block(chain.Content(in.GetValue()))
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(b), nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, poe.ErrAlreadyClaimed):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, poe.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, poe.ErrNotOwner):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, balances.ErrInsufficientBalance), errors.Is(err, balances.ErrOverflow):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, node.ErrBadNonce), errors.Is(err, node.ErrBadClaim):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, node.ErrMempoolFull):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, keys.ErrBadSignature), errors.Is(err, keys.ErrBadAccount), errors.Is(err, keys.ErrUnsupportedAlg):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, runtime.ErrUnknownCall):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, storage.ErrInvalidCID):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
