package chain

// Snapshot is a full copy of the state machine's state after a sealed block,
// plus the chain head. It is what the state store persists and what the
// runtime restores from at startup.
type Snapshot struct {
	BlockNumber BlockNumber
	HeadCID     string
	Balances    map[AccountID]Balance
	Nonces      map[AccountID]Nonce
	Claims      map[Content]AccountID
}
