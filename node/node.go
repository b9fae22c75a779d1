// Package node ties the runtime to its infrastructure: extrinsic admission,
// block sealing on a timer, the content-addressed block archive, and state
// snapshots.
package node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"xdao.co/poe/chain"
	"xdao.co/poe/cidutil"
	"xdao.co/poe/keys"
	"xdao.co/poe/poe"
	"xdao.co/poe/runtime"
	"xdao.co/poe/storage"
)

// ErrBadClaim is returned by Submit when a claim call's fingerprint is not a
// canonical CID.
var ErrBadClaim = errors.New("node: claim is not a valid content fingerprint")

// StateStore persists and restores runtime snapshots.
type StateStore interface {
	SaveSnapshot(ctx context.Context, snap chain.Snapshot) error
	LoadSnapshot(ctx context.Context) (chain.Snapshot, bool, error)
}

// Config carries the node tunables.
type Config struct {
	// SealInterval is how often the producer seals pending extrinsics.
	SealInterval time.Duration
	// MaxBlockExtrinsics caps extrinsics per sealed block. <= 0 means no cap.
	MaxBlockExtrinsics int
	// MempoolLimit caps queued extrinsics.
	MempoolLimit int
}

// HeadInfo is the chain position reported to clients.
type HeadInfo struct {
	BlockNumber uint64 `json:"block_number"`
	HeadCID     string `json:"head_cid,omitempty"`
}

// Node owns a runtime plus the mempool, archive, and state store around it.
type Node struct {
	rt      *runtime.Runtime
	mempool *Mempool
	archive storage.CAS
	state   StateStore
	cfg     Config
	log     *zap.Logger

	// sealMu serializes sealing; head is only touched under it.
	sealMu sync.Mutex
	head   string
}

// New assembles a node. archive and state may not be nil; a nil logger
// disables logging.
func New(rt *runtime.Runtime, archive storage.CAS, state StateStore, cfg Config, log *zap.Logger) *Node {
	if log == nil {
		log = zap.NewNop()
	}
	return &Node{
		rt:      rt,
		mempool: NewMempool(cfg.MempoolLimit),
		archive: archive,
		state:   state,
		cfg:     cfg,
		log:     log,
	}
}

// Bootstrap restores the runtime from the state store, or applies the
// genesis balances when the store is empty.
func (n *Node) Bootstrap(ctx context.Context, genesis map[chain.AccountID]chain.Balance) error {
	snap, found, err := n.state.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if found {
		n.rt.Restore(snap)
		n.sealMu.Lock()
		n.head = snap.HeadCID
		n.sealMu.Unlock()
		n.log.Info("state restored",
			zap.Uint64("block", uint64(snap.BlockNumber)),
			zap.String("head", snap.HeadCID),
			zap.Int("claims", len(snap.Claims)),
		)
		return nil
	}
	for account, balance := range genesis {
		n.rt.SetBalance(account, balance)
	}
	n.log.Info("genesis state applied", zap.Int("accounts", len(genesis)))
	return nil
}

// Submit admits a signed extrinsic to the mempool.
//
// The signature must verify against the caller's account key over the
// canonical signing scope, claim calls must carry a canonical CID
// fingerprint, the nonce must be next for the caller, and the call must pass
// a dry run against current state. The returned receipt is the fingerprint
// of the extrinsic's canonical bytes.
func (n *Node) Submit(ctx context.Context, sx chain.SignedExtrinsic) (chain.Content, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	scope, err := runtime.SigningScope(sx.Caller, sx.Nonce, sx.Call)
	if err != nil {
		return "", err
	}
	if err := keys.Verify(sx.Caller, scope, sx.Signature); err != nil {
		return "", err
	}
	if err := checkClaim(sx.Call); err != nil {
		return "", err
	}
	if err := n.rt.Check(sx.Caller, sx.Call); err != nil {
		return "", err
	}
	if err := n.mempool.Add(sx, n.rt.NonceOf(sx.Caller)); err != nil {
		return "", err
	}

	encoded, err := runtime.EncodeExtrinsic(sx)
	if err != nil {
		return "", err
	}
	receipt := cidutil.Fingerprint(encoded)
	n.log.Info("extrinsic admitted",
		zap.String("caller", string(sx.Caller)),
		zap.String("call", sx.Call.Module()+"."+sx.Call.Method()),
		zap.String("receipt", string(receipt)),
	)
	return receipt, nil
}

// checkClaim rejects claim calls whose fingerprint does not parse as a CID.
// The registry stores fingerprints opaquely, so malformed claims must be
// stopped at admission before they reach consensus state.
func checkClaim(call chain.Call) error {
	var claim chain.Content
	switch c := call.(type) {
	case poe.CreateClaimCall:
		claim = c.Claim
	case poe.RevokeClaimCall:
		claim = c.Claim
	default:
		return nil
	}
	if _, err := cidutil.Decode(string(claim)); err != nil {
		return ErrBadClaim
	}
	return nil
}

// SealPending seals all pending extrinsics into the next block. It reports
// whether a block was produced; no block is produced when the mempool is
// empty.
func (n *Node) SealPending(ctx context.Context) (bool, error) {
	n.sealMu.Lock()
	defer n.sealMu.Unlock()

	extrinsics := n.mempool.Drain(n.cfg.MaxBlockExtrinsics)
	if len(extrinsics) == 0 {
		return false, nil
	}

	block := chain.Block{
		Header: chain.Header{
			Number: n.rt.BlockNumber() + 1,
			Parent: n.head,
		},
		Extrinsics: extrinsics,
	}
	if err := n.rt.ExecuteBlock(block); err != nil {
		return false, fmt.Errorf("execute block: %w", err)
	}

	encoded, err := runtime.EncodeBlock(block)
	if err != nil {
		return false, fmt.Errorf("encode block: %w", err)
	}
	id, err := n.archive.Put(encoded)
	if err != nil {
		return false, fmt.Errorf("archive block: %w", err)
	}
	n.head = id.String()

	if err := n.state.SaveSnapshot(ctx, n.rt.Snapshot(n.head)); err != nil {
		return false, fmt.Errorf("save snapshot: %w", err)
	}

	n.log.Info("block sealed",
		zap.Uint64("block", uint64(block.Header.Number)),
		zap.Int("extrinsics", len(extrinsics)),
		zap.String("cid", n.head),
	)
	return true, nil
}

// Run seals pending extrinsics every SealInterval until ctx is done.
func (n *Node) Run(ctx context.Context) error {
	interval := n.cfg.SealInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := n.SealPending(ctx); err != nil {
				n.log.Error("seal failed", zap.Error(err))
			}
		}
	}
}

// Owner returns the owner of a claimed fingerprint, if any.
func (n *Node) Owner(claim chain.Content) (chain.AccountID, bool) { return n.rt.OwnerOf(claim) }

// Balance returns the account's balance.
func (n *Node) Balance(who chain.AccountID) chain.Balance { return n.rt.BalanceOf(who) }

// Nonce returns the account's on-chain nonce.
func (n *Node) Nonce(who chain.AccountID) chain.Nonce { return n.rt.NonceOf(who) }

// Head returns the current chain position.
func (n *Node) Head() HeadInfo {
	n.sealMu.Lock()
	defer n.sealMu.Unlock()
	return HeadInfo{BlockNumber: uint64(n.rt.BlockNumber()), HeadCID: n.head}
}

// Block fetches a sealed block's canonical bytes from the archive.
func (n *Node) Block(id chain.Content) ([]byte, error) {
	decoded, err := cidutil.Decode(string(id))
	if err != nil {
		return nil, storage.ErrInvalidCID
	}
	return n.archive.Get(decoded)
}
