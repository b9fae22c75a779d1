// Package memstore is an in-memory CAS for tests and throwaway nodes.
package memstore

import (
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/poe/cidutil"
	"xdao.co/poe/storage"
)

// CAS keeps objects in a map keyed by CID string. Contents are copied on the
// way in and out so callers cannot mutate stored objects.
type CAS struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func New() *CAS {
	return &CAS{objects: make(map[string][]byte)}
}

func (c *CAS) Put(bytes []byte) (cid.Cid, error) {
	id, err := cidutil.FingerprintCID(bytes)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, storage.ErrInvalidCID
	}
	cp := make([]byte, len(bytes))
	copy(cp, bytes)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[id.String()] = cp
	return id, nil
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.objects[id.String()]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.objects[id.String()]
	return ok
}

// Len returns the number of stored objects.
func (c *CAS) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}
