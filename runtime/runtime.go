// Package runtime composes the pallets into one state machine and routes
// calls to them: a tagged-variant call dispatched to the owning pallet
// method, and block execution over ordered batches of extrinsics.
package runtime

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"xdao.co/poe/balances"
	"xdao.co/poe/chain"
	"xdao.co/poe/poe"
	"xdao.co/poe/system"
)

// ErrUnknownCall is returned when a call's variant is not one the runtime
// dispatches.
var ErrUnknownCall = errors.New("runtime: unknown call")

// Runtime owns the pallets. All state transitions go through Dispatch or
// ExecuteBlock; queries read the pallets directly.
//
// The runtime mutex makes block execution atomic with respect to concurrent
// dispatches; the pallets additionally guard their own maps so queries never
// race with execution.
type Runtime struct {
	mu sync.Mutex

	system   *system.Pallet
	balances *balances.Pallet
	poe      *poe.Pallet

	log *zap.Logger
}

// New returns a runtime at genesis. A nil logger disables logging.
func New(log *zap.Logger) *Runtime {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runtime{
		system:   system.New(),
		balances: balances.New(),
		poe:      poe.New(),
		log:      log,
	}
}

// Dispatch applies a single call on behalf of caller.
func (r *Runtime) Dispatch(caller chain.AccountID, call chain.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dispatch(caller, call)
}

// dispatch must be called with r.mu held.
func (r *Runtime) dispatch(caller chain.AccountID, call chain.Call) error {
	switch c := call.(type) {
	case balances.TransferCall:
		return r.balances.Transfer(caller, c.To, c.Amount)
	case poe.CreateClaimCall:
		return r.poe.CreateClaim(caller, c.Claim)
	case poe.RevokeClaimCall:
		return r.poe.RevokeClaim(caller, c.Claim)
	default:
		return fmt.Errorf("%w: %s.%s", ErrUnknownCall, call.Module(), call.Method())
	}
}

// Check reports whether dispatching call for caller would succeed against
// the current state, without applying it.
func (r *Runtime) Check(caller chain.AccountID, call chain.Call) error {
	switch call.(type) {
	case balances.TransferCall:
		return r.balances.Check(caller, call)
	case poe.CreateClaimCall, poe.RevokeClaimCall:
		return r.poe.Check(caller, call)
	default:
		return fmt.Errorf("%w: %s.%s", ErrUnknownCall, call.Module(), call.Method())
	}
}

// ExecuteBlock executes all extrinsics in the block.
//
// The header number must be exactly one past the current block number. A
// failed extrinsic is logged and skipped; it does not abort the block, and
// the caller's nonce is bumped regardless of the outcome.
func (r *Runtime) ExecuteBlock(block chain.Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := r.system.BlockNumber() + 1
	if block.Header.Number != want {
		return fmt.Errorf("runtime: block number mismatch: got %d want %d", block.Header.Number, want)
	}
	r.system.IncBlockNumber()

	for i, sx := range block.Extrinsics {
		r.system.IncNonce(sx.Caller)
		if err := r.dispatch(sx.Caller, sx.Call); err != nil {
			r.log.Error("extrinsic failed",
				zap.Uint64("block", uint64(block.Header.Number)),
				zap.Int("index", i),
				zap.String("caller", string(sx.Caller)),
				zap.String("call", sx.Call.Module()+"."+sx.Call.Method()),
				zap.Error(err),
			)
		}
	}
	return nil
}

// BlockNumber returns the current block number.
func (r *Runtime) BlockNumber() chain.BlockNumber { return r.system.BlockNumber() }

// NonceOf returns the account's nonce.
func (r *Runtime) NonceOf(who chain.AccountID) chain.Nonce { return r.system.Nonce(who) }

// BalanceOf returns the account's balance.
func (r *Runtime) BalanceOf(who chain.AccountID) chain.Balance { return r.balances.Balance(who) }

// OwnerOf returns the owner of a claimed fingerprint, if any.
func (r *Runtime) OwnerOf(claim chain.Content) (chain.AccountID, bool) { return r.poe.Owner(claim) }

// SetBalance sets an account balance directly. Genesis only.
func (r *Runtime) SetBalance(who chain.AccountID, amount chain.Balance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances.SetBalance(who, amount)
}

// Snapshot copies the full state, recording headCID as the chain head.
func (r *Runtime) Snapshot(headCID string) chain.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	blockNumber, nonces := r.system.Snapshot()
	return chain.Snapshot{
		BlockNumber: blockNumber,
		HeadCID:     headCID,
		Balances:    r.balances.Snapshot(),
		Nonces:      nonces,
		Claims:      r.poe.Snapshot(),
	}
}

// Restore replaces the full state from a snapshot.
func (r *Runtime) Restore(snap chain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.system.Restore(snap.BlockNumber, snap.Nonces)
	r.balances.Restore(snap.Balances)
	r.poe.Restore(snap.Claims)
}
