// Package cidutil computes content fingerprints.
//
// A fingerprint is a CIDv1 using the "raw" multicodec and a sha2-256
// multihash, rendered in its canonical string form. Fingerprints are what
// the claims pallet stores and what the RPC surface accepts.
package cidutil

import (
	"errors"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/poe/chain"
)

// ErrUndefined is returned when a fingerprint string parses to an undefined CID.
var ErrUndefined = errors.New("cidutil: undefined cid")

// Fingerprint returns the canonical fingerprint of data.
func Fingerprint(data []byte) chain.Content {
	id, err := FingerprintCID(data)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1
		// length this should be unreachable.
		return ""
	}
	return chain.Content(id.String())
}

// FingerprintCID returns the fingerprint of data as a cid.Cid.
func FingerprintCID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Decode parses a fingerprint string, rejecting undefined CIDs.
func Decode(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, ErrUndefined
	}
	return id, nil
}
