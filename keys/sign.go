package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"

	"xdao.co/poe/chain"
)

var (
	ErrBadSignature   = errors.New("keys: signature invalid")
	ErrBadAccount     = errors.New("keys: invalid account encoding")
	ErrUnsupportedAlg = errors.New("keys: unsupported key algorithm")
)

// Digest returns the sha3-256 digest that signatures cover.
func Digest(message []byte) []byte {
	sum := sha3.Sum256(message)
	return sum[:]
}

// SignEd25519 signs message with the key derived from seed.
func SignEd25519(message, seed []byte) ([]byte, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes", ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return ed25519.Sign(priv, Digest(message)), nil
}

// SignDilithium3 signs message with a dilithium3 private key.
func SignDilithium3(message []byte, priv *mode3.PrivateKey) ([]byte, error) {
	if priv == nil {
		return nil, errors.New("keys: missing private key")
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(priv, Digest(message), sig)
	return sig, nil
}

// Verify checks sig over message against the public key encoded in account.
//
// The algorithm is taken from the account prefix; ed25519 and dilithium3 are
// supported.
func Verify(account chain.AccountID, message, sig []byte) error {
	alg, enc, ok := strings.Cut(string(account), ":")
	if !ok {
		return ErrBadAccount
	}
	pub, err := decodeBase64(enc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadAccount, err)
	}

	switch alg {
	case AlgEd25519:
		if len(pub) != ed25519.PublicKeySize {
			return fmt.Errorf("%w: bad ed25519 public key length", ErrBadAccount)
		}
		if len(sig) != ed25519.SignatureSize {
			return ErrBadSignature
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), Digest(message), sig) {
			return ErrBadSignature
		}
		return nil
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return fmt.Errorf("%w: %v", ErrBadAccount, err)
		}
		if len(sig) != mode3.SignatureSize {
			return ErrBadSignature
		}
		if !mode3.Verify(&pk, Digest(message), sig) {
			return ErrBadSignature
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}
}

// AccountFromDilithium3 encodes a dilithium3 public key as an account identity.
func AccountFromDilithium3(pub *mode3.PublicKey) (chain.AccountID, error) {
	if pub == nil {
		return "", errors.New("keys: missing public key")
	}
	b, err := pub.MarshalBinary()
	if err != nil {
		return "", err
	}
	return chain.AccountID(AlgDilithium3 + ":" + base64.StdEncoding.EncodeToString(b)), nil
}

func decodeBase64(s string) ([]byte, error) {
	// Prefer standard padded encoding, but accept raw encoding too.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
