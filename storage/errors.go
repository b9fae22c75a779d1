package storage

import "errors"

// Errors shared by all block archive backends. ErrCIDMismatch means an
// archived block's bytes no longer hash to its CID; ErrImmutable means a Put
// tried to rewrite an archived block with different bytes.
var (
	ErrNotFound    = errors.New("storage: not found")
	ErrInvalidCID  = errors.New("storage: invalid cid")
	ErrCIDMismatch = errors.New("storage: cid mismatch")
	ErrImmutable   = errors.New("storage: immutable object mismatch")
)

// IsNotFound reports whether err indicates a block absent from the archive.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
