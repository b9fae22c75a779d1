package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"xdao.co/poe/chain"
)

// AlgEd25519 and AlgDilithium3 are the account key algorithm prefixes.
const (
	AlgEd25519    = "ed25519"
	AlgDilithium3 = "dilithium3"
)

// kdfTag domain-separates role-seed derivation from other sha256 uses.
const kdfTag = "xdao-poe-kms-lite-v1"

// AccountFromSeed returns the account identity for an Ed25519 seed.
func AccountFromSeed(seed []byte) chain.AccountID {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return chain.AccountID(AlgEd25519 + ":" + base64.StdEncoding.EncodeToString(pub))
}

// AccountFromPublicKey encodes an Ed25519 public key as an account identity.
func AccountFromPublicKey(pub ed25519.PublicKey) (chain.AccountID, error) {
	if l := len(pub); l != ed25519.PublicKeySize {
		return "", fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, l)
	}
	return chain.AccountID(AlgEd25519 + ":" + base64.StdEncoding.EncodeToString(pub)), nil
}

// DeriveRoleSeed deterministically derives a role-specific Ed25519 seed from
// a root seed, so one root key can act under several named roles.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}

	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(kdfTag))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("role:"))
	_, _ = h.Write([]byte(role))
	sum := h.Sum(nil)
	if len(sum) < ed25519.SeedSize {
		return nil, errors.New("kdf output too short")
	}
	out := make([]byte, ed25519.SeedSize)
	copy(out, sum[:ed25519.SeedSize])
	return out, nil
}
