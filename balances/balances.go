// Package balances implements the balances pallet: per-account token
// balances with checked transfers.
package balances

import (
	"errors"
	"math"
	"sync"

	"xdao.co/poe/chain"
)

var (
	ErrInsufficientBalance = errors.New("balances: insufficient balance")
	ErrOverflow            = errors.New("balances: balance overflow")
)

// Pallet holds the account → balance map. Accounts without an entry have a
// zero balance.
type Pallet struct {
	mu       sync.RWMutex
	balances map[chain.AccountID]chain.Balance
}

// New returns an empty balances pallet.
func New() *Pallet {
	return &Pallet{balances: make(map[chain.AccountID]chain.Balance)}
}

// SetBalance sets who's balance unconditionally. Intended for genesis setup
// and tests; regular balance movement goes through Transfer.
func (p *Pallet) SetBalance(who chain.AccountID, amount chain.Balance) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[who] = amount
}

// Balance returns who's balance, zero if the account has none.
func (p *Pallet) Balance(who chain.AccountID) chain.Balance {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balances[who]
}

// Transfer moves amount from caller to to.
//
// It fails with ErrInsufficientBalance if the caller's balance is too small
// and with ErrOverflow if the recipient's balance would wrap. Balances are
// untouched on failure.
func (p *Pallet) Transfer(caller, to chain.AccountID, amount chain.Balance) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	newCaller, newTo, err := p.checkedTransfer(caller, to, amount)
	if err != nil {
		return err
	}
	p.balances[caller] = newCaller
	p.balances[to] = newTo
	return nil
}

// Check reports whether dispatching call on behalf of caller would succeed,
// without mutating any balance.
func (p *Pallet) Check(caller chain.AccountID, call chain.Call) error {
	c, ok := call.(TransferCall)
	if !ok {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, _, err := p.checkedTransfer(caller, c.To, c.Amount)
	return err
}

// checkedTransfer computes the post-transfer balances. Must be called with
// the lock held.
func (p *Pallet) checkedTransfer(caller, to chain.AccountID, amount chain.Balance) (chain.Balance, chain.Balance, error) {
	callerBalance := p.balances[caller]
	toBalance := p.balances[to]

	if callerBalance < amount {
		return 0, 0, ErrInsufficientBalance
	}
	if toBalance > math.MaxUint64-amount {
		return 0, 0, ErrOverflow
	}
	if caller == to {
		// Self-transfer of an affordable amount is a no-op.
		return callerBalance, toBalance, nil
	}
	return callerBalance - amount, toBalance + amount, nil
}

// Snapshot returns a copy of all non-zero balances.
func (p *Pallet) Snapshot() map[chain.AccountID]chain.Balance {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap := make(map[chain.AccountID]chain.Balance, len(p.balances))
	for k, v := range p.balances {
		if v != 0 {
			snap[k] = v
		}
	}
	return snap
}

// Restore replaces all balances with the given map.
func (p *Pallet) Restore(balances map[chain.AccountID]chain.Balance) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances = make(map[chain.AccountID]chain.Balance, len(balances))
	for k, v := range balances {
		p.balances[k] = v
	}
}
