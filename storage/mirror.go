package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/poe/cidutil"
)

// NamedCAS associates a CAS with a stable backend name, so multi-backend
// orchestration can report per-backend results.
type NamedCAS struct {
	Name string
	CAS  CAS
}

// MirroredCAS writes every object to all configured backends.
//
// Reads fall back in slice order. Writes go to all backends and require all
// returned CIDs to match (otherwise ErrCIDMismatch is returned). The daemon
// uses this to keep a secondary copy of the block archive.
type MirroredCAS struct {
	Backends []NamedCAS
}

var _ CAS = (*MirroredCAS)(nil)

// PutAll writes the same bytes to all backends and returns the canonical CID
// plus the per-backend CID mapping.
func (m MirroredCAS) PutAll(bytes []byte) (cid.Cid, map[string]cid.Cid, error) {
	want, err := cidutil.FingerprintCID(bytes)
	if err != nil {
		return cid.Undef, nil, err
	}
	if !want.Defined() {
		return cid.Undef, nil, ErrInvalidCID
	}
	if len(m.Backends) == 0 {
		return cid.Undef, nil, fmt.Errorf("storage: MirroredCAS has no backends")
	}

	out := make(map[string]cid.Cid, len(m.Backends))
	for _, b := range m.Backends {
		if b.CAS == nil {
			return cid.Undef, nil, fmt.Errorf("storage: nil CAS for backend %q", b.Name)
		}
		got, err := b.CAS.Put(bytes)
		if err != nil {
			return cid.Undef, nil, err
		}
		out[b.Name] = got
		if got != want {
			return cid.Undef, out, ErrCIDMismatch
		}
	}
	return want, out, nil
}

func (m MirroredCAS) Put(bytes []byte) (cid.Cid, error) {
	id, _, err := m.PutAll(bytes)
	return id, err
}

func (m MirroredCAS) Get(id cid.Cid) ([]byte, error) {
	for _, b := range m.Backends {
		if b.CAS == nil {
			continue
		}
		out, err := b.CAS.Get(id)
		if err == nil {
			return out, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (m MirroredCAS) Has(id cid.Cid) bool {
	for _, b := range m.Backends {
		if b.CAS != nil && b.CAS.Has(id) {
			return true
		}
	}
	return false
}
