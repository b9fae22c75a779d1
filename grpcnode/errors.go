package grpcnode

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/poe/balances"
	"xdao.co/poe/keys"
	"xdao.co/poe/node"
	"xdao.co/poe/poe"
	"xdao.co/poe/storage"
)

// mapRPC turns a gRPC status back into the sentinel the server mapped from,
// so client callers can use errors.Is the same way local callers do.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.AlreadyExists:
		return poe.ErrAlreadyClaimed
	case codes.PermissionDenied:
		return poe.ErrNotOwner
	case codes.ResourceExhausted:
		return node.ErrMempoolFull
	case codes.Unauthenticated:
		return keys.ErrBadSignature
	case codes.NotFound:
		// Both missing claims and missing blocks arrive as NotFound.
		if st.Message() == storage.ErrNotFound.Error() {
			return storage.ErrNotFound
		}
		return poe.ErrNotFound
	case codes.FailedPrecondition:
		if st.Message() == balances.ErrOverflow.Error() {
			return balances.ErrOverflow
		}
		return balances.ErrInsufficientBalance
	case codes.InvalidArgument:
		switch st.Message() {
		case node.ErrBadNonce.Error():
			return node.ErrBadNonce
		case node.ErrBadClaim.Error():
			return node.ErrBadClaim
		case storage.ErrInvalidCID.Error():
			return storage.ErrInvalidCID
		default:
			return err
		}
	default:
		return err
	}
}
