package node

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/poe/balances"
	"xdao.co/poe/chain"
	"xdao.co/poe/cidutil"
	"xdao.co/poe/keys"
	"xdao.co/poe/poe"
	"xdao.co/poe/runtime"
	"xdao.co/poe/state/sqlite"
	"xdao.co/poe/storage/memstore"
)

type signer struct {
	seed    []byte
	account chain.AccountID
}

func newSigner(t *testing.T, fill byte) signer {
	t.Helper()
	seed := bytes.Repeat([]byte{fill}, 32)
	return signer{seed: seed, account: keys.AccountFromSeed(seed)}
}

func (s signer) sign(t *testing.T, nonce chain.Nonce, call chain.Call) chain.SignedExtrinsic {
	t.Helper()
	scope, err := runtime.SigningScope(s.account, nonce, call)
	require.NoError(t, err)
	sig, err := keys.SignEd25519(scope, s.seed)
	require.NoError(t, err)
	return chain.SignedExtrinsic{
		Extrinsic: chain.Extrinsic{Caller: s.account, Call: call},
		Nonce:     nonce,
		Signature: sig,
	}
}

func newTestNode(t *testing.T, cfg Config) (*Node, *memstore.CAS, *sqlite.Store) {
	t.Helper()
	archive := memstore.New()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(runtime.New(nil), archive, store, cfg, nil), archive, store
}

func fp(s string) chain.Content {
	return cidutil.Fingerprint([]byte(s))
}

func TestNodeBootstrapGenesis(t *testing.T) {
	n, _, _ := newTestNode(t, Config{})
	alice := newSigner(t, 1)

	err := n.Bootstrap(context.Background(), map[chain.AccountID]chain.Balance{alice.account: 100})
	require.NoError(t, err)
	assert.Equal(t, chain.Balance(100), n.Balance(alice.account))
	assert.Equal(t, HeadInfo{}, n.Head())
}

func TestNodeSubmitAndSeal(t *testing.T) {
	ctx := context.Background()
	n, archive, _ := newTestNode(t, Config{})
	alice := newSigner(t, 1)
	bob := newSigner(t, 2)
	require.NoError(t, n.Bootstrap(ctx, map[chain.AccountID]chain.Balance{alice.account: 100}))

	claim := cidutil.Fingerprint([]byte("Hello, world!"))
	receipt, err := n.Submit(ctx, alice.sign(t, 0, poe.CreateClaimCall{Claim: claim}))
	require.NoError(t, err)
	assert.NotEmpty(t, receipt)
	_, err = n.Submit(ctx, alice.sign(t, 1, balances.TransferCall{To: bob.account, Amount: 30}))
	require.NoError(t, err)

	sealed, err := n.SealPending(ctx)
	require.NoError(t, err)
	require.True(t, sealed)

	owner, ok := n.Owner(claim)
	require.True(t, ok)
	assert.Equal(t, alice.account, owner)
	assert.Equal(t, chain.Balance(70), n.Balance(alice.account))
	assert.Equal(t, chain.Balance(30), n.Balance(bob.account))
	assert.Equal(t, chain.Nonce(2), n.Nonce(alice.account))

	head := n.Head()
	assert.Equal(t, uint64(1), head.BlockNumber)
	require.NotEmpty(t, head.HeadCID)
	assert.Equal(t, 1, archive.Len())

	raw, err := n.Block(chain.Content(head.HeadCID))
	require.NoError(t, err)
	block, err := runtime.DecodeBlock(raw)
	require.NoError(t, err)
	assert.Equal(t, chain.BlockNumber(1), block.Header.Number)
	assert.Empty(t, block.Header.Parent)
	assert.Len(t, block.Extrinsics, 2)
}

func TestNodeSealChainsBlocks(t *testing.T) {
	ctx := context.Background()
	n, _, _ := newTestNode(t, Config{})
	alice := newSigner(t, 1)
	require.NoError(t, n.Bootstrap(ctx, nil))

	_, err := n.Submit(ctx, alice.sign(t, 0, poe.CreateClaimCall{Claim: fp("first")}))
	require.NoError(t, err)
	sealed, err := n.SealPending(ctx)
	require.NoError(t, err)
	require.True(t, sealed)
	first := n.Head()

	_, err = n.Submit(ctx, alice.sign(t, 1, poe.CreateClaimCall{Claim: fp("second")}))
	require.NoError(t, err)
	sealed, err = n.SealPending(ctx)
	require.NoError(t, err)
	require.True(t, sealed)
	second := n.Head()

	assert.Equal(t, uint64(2), second.BlockNumber)
	raw, err := n.Block(chain.Content(second.HeadCID))
	require.NoError(t, err)
	block, err := runtime.DecodeBlock(raw)
	require.NoError(t, err)
	assert.Equal(t, first.HeadCID, block.Header.Parent)
}

func TestNodeSealNothingPending(t *testing.T) {
	n, archive, _ := newTestNode(t, Config{})
	sealed, err := n.SealPending(context.Background())
	require.NoError(t, err)
	assert.False(t, sealed)
	assert.Equal(t, 0, archive.Len())
}

func TestNodeSubmitRejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	n, _, _ := newTestNode(t, Config{})
	alice := newSigner(t, 1)
	require.NoError(t, n.Bootstrap(ctx, nil))

	sx := alice.sign(t, 0, poe.CreateClaimCall{Claim: fp("doc")})
	sx.Signature[0] ^= 0xff
	_, err := n.Submit(ctx, sx)
	assert.ErrorIs(t, err, keys.ErrBadSignature)
	assert.Equal(t, 0, n.mempool.Len())
}

func TestNodeSubmitRejectsBadNonce(t *testing.T) {
	ctx := context.Background()
	n, _, _ := newTestNode(t, Config{})
	alice := newSigner(t, 1)
	require.NoError(t, n.Bootstrap(ctx, nil))

	_, err := n.Submit(ctx, alice.sign(t, 3, poe.CreateClaimCall{Claim: fp("doc")}))
	assert.ErrorIs(t, err, ErrBadNonce)
}

func TestNodeSubmitRejectsMalformedClaim(t *testing.T) {
	ctx := context.Background()
	n, _, _ := newTestNode(t, Config{})
	alice := newSigner(t, 1)
	require.NoError(t, n.Bootstrap(ctx, nil))

	_, err := n.Submit(ctx, alice.sign(t, 0, poe.CreateClaimCall{Claim: "not-a-fingerprint"}))
	assert.ErrorIs(t, err, ErrBadClaim)
	_, err = n.Submit(ctx, alice.sign(t, 0, poe.RevokeClaimCall{Claim: "not-a-fingerprint"}))
	assert.ErrorIs(t, err, ErrBadClaim)
	assert.Equal(t, 0, n.mempool.Len())
}

func TestNodeSubmitRejectsDoomedCalls(t *testing.T) {
	ctx := context.Background()
	n, _, _ := newTestNode(t, Config{})
	alice := newSigner(t, 1)
	bob := newSigner(t, 2)
	require.NoError(t, n.Bootstrap(ctx, nil))

	doc := fp("doc")
	_, err := n.Submit(ctx, alice.sign(t, 0, poe.CreateClaimCall{Claim: doc}))
	require.NoError(t, err)
	sealed, err := n.SealPending(ctx)
	require.NoError(t, err)
	require.True(t, sealed)

	// Already claimed by alice.
	_, err = n.Submit(ctx, bob.sign(t, 0, poe.CreateClaimCall{Claim: doc}))
	assert.ErrorIs(t, err, poe.ErrAlreadyClaimed)

	// Bob does not own the claim.
	_, err = n.Submit(ctx, bob.sign(t, 0, poe.RevokeClaimCall{Claim: doc}))
	assert.ErrorIs(t, err, poe.ErrNotOwner)

	// Alice cannot fund a transfer.
	_, err = n.Submit(ctx, alice.sign(t, 1, balances.TransferCall{To: bob.account, Amount: 10}))
	assert.ErrorIs(t, err, balances.ErrInsufficientBalance)
}

func TestNodeMaxBlockExtrinsics(t *testing.T) {
	ctx := context.Background()
	n, _, _ := newTestNode(t, Config{MaxBlockExtrinsics: 1})
	alice := newSigner(t, 1)
	require.NoError(t, n.Bootstrap(ctx, nil))

	_, err := n.Submit(ctx, alice.sign(t, 0, poe.CreateClaimCall{Claim: fp("first")}))
	require.NoError(t, err)
	_, err = n.Submit(ctx, alice.sign(t, 1, poe.CreateClaimCall{Claim: fp("second")}))
	require.NoError(t, err)

	sealed, err := n.SealPending(ctx)
	require.NoError(t, err)
	require.True(t, sealed)
	assert.Equal(t, uint64(1), n.Head().BlockNumber)
	assert.Equal(t, 1, n.mempool.Len())

	sealed, err = n.SealPending(ctx)
	require.NoError(t, err)
	require.True(t, sealed)
	assert.Equal(t, uint64(2), n.Head().BlockNumber)
}

func TestNodeBootstrapRestoresState(t *testing.T) {
	ctx := context.Background()
	archive := memstore.New()
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := sqlite.Open(path)
	require.NoError(t, err)
	alice := newSigner(t, 1)

	doc := fp("doc")
	n := New(runtime.New(nil), archive, store, Config{}, nil)
	require.NoError(t, n.Bootstrap(ctx, map[chain.AccountID]chain.Balance{alice.account: 50}))
	_, err = n.Submit(ctx, alice.sign(t, 0, poe.CreateClaimCall{Claim: doc}))
	require.NoError(t, err)
	sealed, err := n.SealPending(ctx)
	require.NoError(t, err)
	require.True(t, sealed)
	head := n.Head()
	require.NoError(t, store.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	// Genesis is ignored when a snapshot exists.
	restored := New(runtime.New(nil), archive, reopened, Config{}, nil)
	require.NoError(t, restored.Bootstrap(ctx, map[chain.AccountID]chain.Balance{alice.account: 9999}))
	assert.Equal(t, head, restored.Head())
	assert.Equal(t, chain.Balance(50), restored.Balance(alice.account))
	assert.Equal(t, chain.Nonce(1), restored.Nonce(alice.account))
	owner, ok := restored.Owner(doc)
	require.True(t, ok)
	assert.Equal(t, alice.account, owner)
}

func TestNodeBlockRejectsBadCID(t *testing.T) {
	n, _, _ := newTestNode(t, Config{})
	_, err := n.Block("not-a-cid")
	assert.Error(t, err)
}
