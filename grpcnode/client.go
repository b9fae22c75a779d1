package grpcnode

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/poe/chain"
	"xdao.co/poe/node"
	"xdao.co/poe/runtime"
)

// Client talks to a Node gRPC service in domain terms.
type Client struct {
	cc     *grpc.ClientConn
	client NodeClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewNodeClient(cc), Timeout: 0}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// Submit sends a signed extrinsic and returns its receipt fingerprint.
func (c *Client) Submit(sx chain.SignedExtrinsic) (chain.Content, error) {
	encoded, err := runtime.EncodeExtrinsic(sx)
	if err != nil {
		return "", err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Submit(ctx, wrapperspb.Bytes(encoded))
	if err != nil {
		return "", mapRPC(err)
	}
	return chain.Content(reply.GetValue()), nil
}

// Owner resolves the owner of a claimed fingerprint.
func (c *Client) Owner(claim chain.Content) (chain.AccountID, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Owner(ctx, wrapperspb.String(string(claim)))
	if err != nil {
		return "", mapRPC(err)
	}
	return chain.AccountID(reply.GetValue()), nil
}

// Balance fetches the account's balance.
func (c *Client) Balance(who chain.AccountID) (chain.Balance, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Balance(ctx, wrapperspb.String(string(who)))
	if err != nil {
		return 0, mapRPC(err)
	}
	return chain.Balance(reply.GetValue()), nil
}

// Nonce fetches the account's on-chain nonce.
func (c *Client) Nonce(who chain.AccountID) (chain.Nonce, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Nonce(ctx, wrapperspb.String(string(who)))
	if err != nil {
		return 0, mapRPC(err)
	}
	return chain.Nonce(reply.GetValue()), nil
}

// Head fetches the node's chain position.
func (c *Client) Head() (node.HeadInfo, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Head(ctx, new(emptypb.Empty))
	if err != nil {
		return node.HeadInfo{}, mapRPC(err)
	}
	var info node.HeadInfo
	if err := json.Unmarshal([]byte(reply.GetValue()), &info); err != nil {
		return node.HeadInfo{}, err
	}
	return info, nil
}

// Block fetches a sealed block by CID.
func (c *Client) Block(id chain.Content) (chain.Block, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Block(ctx, wrapperspb.String(string(id)))
	if err != nil {
		return chain.Block{}, mapRPC(err)
	}
	return runtime.DecodeBlock(reply.GetValue())
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}
