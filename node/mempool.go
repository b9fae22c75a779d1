package node

import (
	"errors"
	"sync"

	"xdao.co/poe/chain"
)

var (
	ErrMempoolFull = errors.New("node: mempool full")
	ErrBadNonce    = errors.New("node: extrinsic nonce does not match account nonce")
)

// Mempool is a bounded FIFO queue of admitted extrinsics waiting to be
// sealed into a block.
type Mempool struct {
	mu      sync.Mutex
	limit   int
	queue   []chain.SignedExtrinsic
	pending map[chain.AccountID]int
}

// NewMempool returns a mempool holding at most limit extrinsics.
func NewMempool(limit int) *Mempool {
	if limit <= 0 {
		limit = 1024
	}
	return &Mempool{limit: limit, pending: make(map[chain.AccountID]int)}
}

// Add enqueues sx. accountNonce is the caller's current on-chain nonce; the
// extrinsic's nonce must equal it plus the caller's already-pending
// extrinsics, so one account can queue several calls per block.
func (m *Mempool) Add(sx chain.SignedExtrinsic, accountNonce chain.Nonce) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) >= m.limit {
		return ErrMempoolFull
	}
	expected := chain.Nonce(uint64(accountNonce) + uint64(m.pending[sx.Caller]))
	if sx.Nonce != expected {
		return ErrBadNonce
	}
	m.queue = append(m.queue, sx)
	m.pending[sx.Caller]++
	return nil
}

// PendingFor returns how many extrinsics from who are queued.
func (m *Mempool) PendingFor(who chain.AccountID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending[who]
}

// Len returns the number of queued extrinsics.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Drain removes and returns up to max extrinsics in FIFO order. max <= 0
// drains everything.
func (m *Mempool) Drain(max int) []chain.SignedExtrinsic {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.queue)
	if max > 0 && max < n {
		n = max
	}
	if n == 0 {
		return nil
	}
	out := make([]chain.SignedExtrinsic, n)
	copy(out, m.queue[:n])
	m.queue = append(m.queue[:0], m.queue[n:]...)
	for _, sx := range out {
		if m.pending[sx.Caller] <= 1 {
			delete(m.pending, sx.Caller)
		} else {
			m.pending[sx.Caller]--
		}
	}
	return out
}
