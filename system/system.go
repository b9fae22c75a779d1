// Package system implements the system pallet: the current block number and
// a per-account nonce counting how many extrinsics each account has made.
package system

import (
	"sync"

	"xdao.co/poe/chain"
)

// Pallet holds the chain-level bookkeeping state.
type Pallet struct {
	mu          sync.RWMutex
	blockNumber chain.BlockNumber
	nonces      map[chain.AccountID]chain.Nonce
}

// New returns a system pallet at block zero with no recorded nonces.
func New() *Pallet {
	return &Pallet{nonces: make(map[chain.AccountID]chain.Nonce)}
}

// BlockNumber returns the current block number.
func (p *Pallet) BlockNumber() chain.BlockNumber {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.blockNumber
}

// IncBlockNumber advances the chain by one block.
func (p *Pallet) IncBlockNumber() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blockNumber++
}

// IncNonce bumps the account's nonce by one.
func (p *Pallet) IncNonce(who chain.AccountID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nonces[who]++
}

// Nonce returns the account's nonce, zero if it has never made a call.
func (p *Pallet) Nonce(who chain.AccountID) chain.Nonce {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nonces[who]
}

// Snapshot returns the block number and a copy of the non-zero nonces.
func (p *Pallet) Snapshot() (chain.BlockNumber, map[chain.AccountID]chain.Nonce) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	nonces := make(map[chain.AccountID]chain.Nonce, len(p.nonces))
	for k, v := range p.nonces {
		if v != 0 {
			nonces[k] = v
		}
	}
	return p.blockNumber, nonces
}

// Restore replaces the pallet state.
func (p *Pallet) Restore(blockNumber chain.BlockNumber, nonces map[chain.AccountID]chain.Nonce) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blockNumber = blockNumber
	p.nonces = make(map[chain.AccountID]chain.Nonce, len(nonces))
	for k, v := range nonces {
		p.nonces[k] = v
	}
}
