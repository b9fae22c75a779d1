// Package keys manages account keys and extrinsic signatures.
//
// An account identity is the string encoding of a public key:
//
//	ed25519:<base64 pub>
//	dilithium3:<base64 pub>
//
// Extrinsics are signed over the sha3-256 digest of their canonical bytes.
// The keystore itself holds Ed25519 seeds only; dilithium3 accounts are
// supported for verification so externally-signed extrinsics can use a
// post-quantum scheme.
package keys
