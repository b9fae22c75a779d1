package runtime

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"xdao.co/poe/balances"
	"xdao.co/poe/chain"
	"xdao.co/poe/poe"
)

// Canonical wire encoding for calls, extrinsics, and blocks.
//
// The canonical form is compact JSON with fields in the struct order below
// and zero-valued optional fields omitted. Signatures cover these exact
// bytes, and block CIDs are computed over them, so the encoding must stay
// deterministic.

type wireCall struct {
	Module string `json:"module"`
	Method string `json:"method"`
	To     string `json:"to,omitempty"`
	Amount uint64 `json:"amount,omitempty"`
	Claim  string `json:"claim,omitempty"`
}

type wireExtrinsic struct {
	Caller string   `json:"caller"`
	Nonce  uint64   `json:"nonce"`
	Call   wireCall `json:"call"`
	Sig    string   `json:"sig,omitempty"`
}

type wireHeader struct {
	Number uint64 `json:"number"`
	Parent string `json:"parent,omitempty"`
}

type wireBlock struct {
	Header     wireHeader      `json:"header"`
	Extrinsics []wireExtrinsic `json:"extrinsics"`
}

func callToWire(call chain.Call) (wireCall, error) {
	w := wireCall{Module: call.Module(), Method: call.Method()}
	switch c := call.(type) {
	case balances.TransferCall:
		w.To = string(c.To)
		w.Amount = uint64(c.Amount)
	case poe.CreateClaimCall:
		w.Claim = string(c.Claim)
	case poe.RevokeClaimCall:
		w.Claim = string(c.Claim)
	default:
		return wireCall{}, fmt.Errorf("%w: %s.%s", ErrUnknownCall, call.Module(), call.Method())
	}
	return w, nil
}

func callFromWire(w wireCall) (chain.Call, error) {
	switch {
	case w.Module == "balances" && w.Method == "transfer":
		return balances.TransferCall{To: chain.AccountID(w.To), Amount: chain.Balance(w.Amount)}, nil
	case w.Module == "poe" && w.Method == "create_claim":
		return poe.CreateClaimCall{Claim: chain.Content(w.Claim)}, nil
	case w.Module == "poe" && w.Method == "revoke_claim":
		return poe.RevokeClaimCall{Claim: chain.Content(w.Claim)}, nil
	default:
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownCall, w.Module, w.Method)
	}
}

// SigningScope returns the canonical bytes a caller signs for an extrinsic:
// the wire encoding of (caller, nonce, call) with no signature field.
func SigningScope(caller chain.AccountID, nonce chain.Nonce, call chain.Call) ([]byte, error) {
	w, err := callToWire(call)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireExtrinsic{Caller: string(caller), Nonce: uint64(nonce), Call: w})
}

// EncodeExtrinsic returns the canonical bytes of a signed extrinsic.
func EncodeExtrinsic(sx chain.SignedExtrinsic) ([]byte, error) {
	w, err := callToWire(sx.Call)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireExtrinsic{
		Caller: string(sx.Caller),
		Nonce:  uint64(sx.Nonce),
		Call:   w,
		Sig:    base64.StdEncoding.EncodeToString(sx.Signature),
	})
}

// DecodeExtrinsic parses canonical signed-extrinsic bytes.
func DecodeExtrinsic(b []byte) (chain.SignedExtrinsic, error) {
	var w wireExtrinsic
	if err := json.Unmarshal(b, &w); err != nil {
		return chain.SignedExtrinsic{}, fmt.Errorf("runtime: decode extrinsic: %w", err)
	}
	return extrinsicFromWire(w)
}

func extrinsicFromWire(w wireExtrinsic) (chain.SignedExtrinsic, error) {
	call, err := callFromWire(w.Call)
	if err != nil {
		return chain.SignedExtrinsic{}, err
	}
	var sig []byte
	if w.Sig != "" {
		sig, err = base64.StdEncoding.DecodeString(w.Sig)
		if err != nil {
			return chain.SignedExtrinsic{}, fmt.Errorf("runtime: decode extrinsic signature: %w", err)
		}
	}
	return chain.SignedExtrinsic{
		Extrinsic: chain.Extrinsic{Caller: chain.AccountID(w.Caller), Call: call},
		Nonce:     chain.Nonce(w.Nonce),
		Signature: sig,
	}, nil
}

// EncodeBlock returns the canonical bytes of a sealed block. These are the
// bytes archived in the blockstore; the block's CID is derived from them.
func EncodeBlock(block chain.Block) ([]byte, error) {
	w := wireBlock{
		Header:     wireHeader{Number: uint64(block.Header.Number), Parent: block.Header.Parent},
		Extrinsics: make([]wireExtrinsic, 0, len(block.Extrinsics)),
	}
	for _, sx := range block.Extrinsics {
		wc, err := callToWire(sx.Call)
		if err != nil {
			return nil, err
		}
		w.Extrinsics = append(w.Extrinsics, wireExtrinsic{
			Caller: string(sx.Caller),
			Nonce:  uint64(sx.Nonce),
			Call:   wc,
			Sig:    base64.StdEncoding.EncodeToString(sx.Signature),
		})
	}
	return json.Marshal(w)
}

// DecodeBlock parses canonical block bytes.
func DecodeBlock(b []byte) (chain.Block, error) {
	var w wireBlock
	if err := json.Unmarshal(b, &w); err != nil {
		return chain.Block{}, fmt.Errorf("runtime: decode block: %w", err)
	}
	block := chain.Block{
		Header: chain.Header{Number: chain.BlockNumber(w.Header.Number), Parent: w.Header.Parent},
	}
	for _, wx := range w.Extrinsics {
		sx, err := extrinsicFromWire(wx)
		if err != nil {
			return chain.Block{}, err
		}
		block.Extrinsics = append(block.Extrinsics, sx)
	}
	return block, nil
}
