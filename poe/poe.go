// Package poe implements the proof-of-existence pallet: a registry mapping
// content fingerprints to the account that claimed them first.
//
// Accounts can make any number of claims, but each fingerprint has at most
// one owner at a time. Only the current owner can revoke a claim; once
// revoked, the fingerprint is claimable again.
package poe

import (
	"sync"

	"xdao.co/poe/chain"
)

// Pallet holds the fingerprint → owner registry.
type Pallet struct {
	mu     sync.RWMutex
	claims map[chain.Content]chain.AccountID
}

// New returns an empty claims pallet.
func New() *Pallet {
	return &Pallet{claims: make(map[chain.Content]chain.AccountID)}
}

// CreateClaim registers claim for caller.
//
// It fails with ErrAlreadyClaimed if the fingerprint is already owned,
// regardless of who owns it.
func (p *Pallet) CreateClaim(caller chain.AccountID, claim chain.Content) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.claims[claim]; ok {
		return ErrAlreadyClaimed
	}
	p.claims[claim] = caller
	return nil
}

// RevokeClaim removes caller's claim on the fingerprint.
//
// It fails with ErrNotFound if the fingerprint is unowned and with
// ErrNotOwner if it is owned by a different account. The registry is
// unchanged on failure.
func (p *Pallet) RevokeClaim(caller chain.AccountID, claim chain.Content) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	owner, ok := p.claims[claim]
	if !ok {
		return ErrNotFound
	}
	if owner != caller {
		return ErrNotOwner
	}
	delete(p.claims, claim)
	return nil
}

// Owner returns the current owner of claim, if any.
func (p *Pallet) Owner(claim chain.Content) (chain.AccountID, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	owner, ok := p.claims[claim]
	return owner, ok
}

// Check reports whether dispatching call on behalf of caller would succeed
// against the current registry, without mutating it. Used by the node to
// reject doomed extrinsics at admission.
func (p *Pallet) Check(caller chain.AccountID, call chain.Call) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch c := call.(type) {
	case CreateClaimCall:
		if _, ok := p.claims[c.Claim]; ok {
			return ErrAlreadyClaimed
		}
	case RevokeClaimCall:
		owner, ok := p.claims[c.Claim]
		if !ok {
			return ErrNotFound
		}
		if owner != caller {
			return ErrNotOwner
		}
	}
	return nil
}

// Len returns the number of live claims.
func (p *Pallet) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.claims)
}

// Snapshot returns a copy of the registry.
func (p *Pallet) Snapshot() map[chain.Content]chain.AccountID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap := make(map[chain.Content]chain.AccountID, len(p.claims))
	for k, v := range p.claims {
		snap[k] = v
	}
	return snap
}

// Restore replaces the registry with the given claims.
func (p *Pallet) Restore(claims map[chain.Content]chain.AccountID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.claims = make(map[chain.Content]chain.AccountID, len(claims))
	for k, v := range claims {
		p.claims[k] = v
	}
}
