package poe

import "xdao.co/poe/chain"

// CreateClaimCall claims a fingerprint for the calling account.
type CreateClaimCall struct {
	Claim chain.Content
}

func (CreateClaimCall) Module() string { return "poe" }
func (CreateClaimCall) Method() string { return "create_claim" }

// RevokeClaimCall revokes the calling account's claim on a fingerprint.
type RevokeClaimCall struct {
	Claim chain.Content
}

func (RevokeClaimCall) Module() string { return "poe" }
func (RevokeClaimCall) Method() string { return "revoke_claim" }
