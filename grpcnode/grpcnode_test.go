package grpcnode

import (
	"bytes"
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/poe/balances"
	"xdao.co/poe/chain"
	"xdao.co/poe/cidutil"
	"xdao.co/poe/keys"
	"xdao.co/poe/node"
	"xdao.co/poe/poe"
	"xdao.co/poe/runtime"
	"xdao.co/poe/state/sqlite"
	"xdao.co/poe/storage"
	"xdao.co/poe/storage/memstore"
)

func signExtrinsic(t *testing.T, seed []byte, nonce chain.Nonce, call chain.Call) chain.SignedExtrinsic {
	t.Helper()
	caller := keys.AccountFromSeed(seed)
	scope, err := runtime.SigningScope(caller, nonce, call)
	if err != nil {
		t.Fatalf("SigningScope: %v", err)
	}
	sig, err := keys.SignEd25519(scope, seed)
	if err != nil {
		t.Fatalf("SignEd25519: %v", err)
	}
	return chain.SignedExtrinsic{
		Extrinsic: chain.Extrinsic{Caller: caller, Call: call},
		Nonce:     nonce,
		Signature: sig,
	}
}

func startTestNode(t *testing.T, genesis map[chain.AccountID]chain.Balance) (*node.Node, *Client) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	n := node.New(runtime.New(nil), memstore.New(), store, node.Config{}, nil)
	if err := n.Bootstrap(context.Background(), genesis); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterNodeServer(srv, &Server{Node: n})

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })

	return n, &Client{cc: cc, client: NewNodeClient(cc), Timeout: 2 * time.Second}
}

func TestGRPCNode_RoundTrip(t *testing.T) {
	aliceSeed := bytes.Repeat([]byte{1}, 32)
	bobSeed := bytes.Repeat([]byte{2}, 32)
	alice := keys.AccountFromSeed(aliceSeed)
	bob := keys.AccountFromSeed(bobSeed)

	n, client := startTestNode(t, map[chain.AccountID]chain.Balance{alice: 100})

	claim := cidutil.Fingerprint([]byte("Hello, world!"))
	receipt, err := client.Submit(signExtrinsic(t, aliceSeed, 0, poe.CreateClaimCall{Claim: claim}))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if receipt == "" {
		t.Fatalf("expected a receipt fingerprint")
	}
	if _, err := client.Submit(signExtrinsic(t, aliceSeed, 1, balances.TransferCall{To: bob, Amount: 40})); err != nil {
		t.Fatalf("Submit transfer: %v", err)
	}

	sealed, err := n.SealPending(context.Background())
	if err != nil {
		t.Fatalf("SealPending: %v", err)
	}
	if !sealed {
		t.Fatalf("expected a sealed block")
	}

	owner, err := client.Owner(claim)
	if err != nil {
		t.Fatalf("Owner: %v", err)
	}
	if owner != alice {
		t.Fatalf("Owner = %q, want %q", owner, alice)
	}
	balance, err := client.Balance(bob)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 40 {
		t.Fatalf("Balance = %d, want 40", balance)
	}
	nonce, err := client.Nonce(alice)
	if err != nil {
		t.Fatalf("Nonce: %v", err)
	}
	if nonce != 2 {
		t.Fatalf("Nonce = %d, want 2", nonce)
	}

	head, err := client.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head.BlockNumber != 1 || head.HeadCID == "" {
		t.Fatalf("Head = %+v, want block 1 with a CID", head)
	}

	block, err := client.Block(chain.Content(head.HeadCID))
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if block.Header.Number != 1 || len(block.Extrinsics) != 2 {
		t.Fatalf("Block = %+v, want number 1 with 2 extrinsics", block.Header)
	}
}

func TestGRPCNode_ErrorMapping(t *testing.T) {
	aliceSeed := bytes.Repeat([]byte{1}, 32)
	bobSeed := bytes.Repeat([]byte{2}, 32)
	bob := keys.AccountFromSeed(bobSeed)

	n, client := startTestNode(t, nil)

	doc := cidutil.Fingerprint([]byte("doc"))
	other := cidutil.Fingerprint([]byte("other"))
	if _, err := client.Submit(signExtrinsic(t, aliceSeed, 0, poe.CreateClaimCall{Claim: doc})); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := n.SealPending(context.Background()); err != nil {
		t.Fatalf("SealPending: %v", err)
	}

	if _, err := client.Submit(signExtrinsic(t, bobSeed, 0, poe.CreateClaimCall{Claim: doc})); !errors.Is(err, poe.ErrAlreadyClaimed) {
		t.Fatalf("duplicate claim: got %v, want ErrAlreadyClaimed", err)
	}
	if _, err := client.Submit(signExtrinsic(t, bobSeed, 0, poe.RevokeClaimCall{Claim: doc})); !errors.Is(err, poe.ErrNotOwner) {
		t.Fatalf("revoke by non-owner: got %v, want ErrNotOwner", err)
	}
	if _, err := client.Submit(signExtrinsic(t, bobSeed, 0, poe.RevokeClaimCall{Claim: cidutil.Fingerprint([]byte("missing"))})); !errors.Is(err, poe.ErrNotFound) {
		t.Fatalf("revoke missing: got %v, want ErrNotFound", err)
	}
	if _, err := client.Submit(signExtrinsic(t, bobSeed, 0, balances.TransferCall{To: bob, Amount: 10})); !errors.Is(err, balances.ErrInsufficientBalance) {
		t.Fatalf("unfunded transfer: got %v, want ErrInsufficientBalance", err)
	}
	if _, err := client.Submit(signExtrinsic(t, aliceSeed, 5, poe.CreateClaimCall{Claim: other})); !errors.Is(err, node.ErrBadNonce) {
		t.Fatalf("nonce gap: got %v, want ErrBadNonce", err)
	}
	if _, err := client.Submit(signExtrinsic(t, bobSeed, 0, poe.CreateClaimCall{Claim: "not-a-fingerprint"})); !errors.Is(err, node.ErrBadClaim) {
		t.Fatalf("malformed claim: got %v, want ErrBadClaim", err)
	}

	bad := signExtrinsic(t, aliceSeed, 1, poe.CreateClaimCall{Claim: other})
	bad.Signature[0] ^= 0xff
	if _, err := client.Submit(bad); !errors.Is(err, keys.ErrBadSignature) {
		t.Fatalf("bad signature: got %v, want ErrBadSignature", err)
	}

	if _, err := client.Owner(cidutil.Fingerprint([]byte("unclaimed"))); !errors.Is(err, poe.ErrNotFound) {
		t.Fatalf("owner of unclaimed: got %v, want ErrNotFound", err)
	}
	if _, err := client.Block("not-a-cid"); !errors.Is(err, storage.ErrInvalidCID) {
		t.Fatalf("bad block id: got %v, want ErrInvalidCID", err)
	}
}
