// Package chain defines the core types shared by the pallets, the runtime,
// and the node: accounts, balances, claims, calls, and blocks.
package chain

// AccountID identifies the party originating a call.
//
// The node instantiates it as an issuer-key string ("ed25519:<base64 pub>" or
// "dilithium3:<base64 pub>"), but the pallets treat it as an opaque comparable
// value.
type AccountID string

// Content identifies a piece of content that can be claimed.
//
// The node instantiates it as a canonical CIDv1 string (raw + sha2-256); the
// claims pallet treats it as an opaque comparable value.
type Content string

type (
	Balance     uint64
	BlockNumber uint64
	Nonce       uint64
)

// Call is a dispatchable runtime call: one tagged variant per pallet
// operation. Module and Method name the variant on the wire and are stable.
type Call interface {
	Module() string
	Method() string
}

// Extrinsic is an external call bound to the account making it.
type Extrinsic struct {
	Caller AccountID
	Call   Call
}

// SignedExtrinsic carries the caller's signature over the canonical encoding
// of (caller, nonce, call). The nonce must match the caller's account nonce
// at execution time; the signature algorithm is taken from the AccountID
// prefix.
type SignedExtrinsic struct {
	Extrinsic
	Nonce     Nonce
	Signature []byte
}

// Header describes a block's position in the chain. Parent is the CID of the
// previous sealed block's canonical bytes, empty for the first block.
type Header struct {
	Number BlockNumber
	Parent string
}

// Block is an ordered batch of extrinsics executed under one header.
type Block struct {
	Header     Header
	Extrinsics []SignedExtrinsic
}
