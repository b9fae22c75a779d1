package system_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"xdao.co/poe/chain"
	"xdao.co/poe/system"
)

func TestInitSystem(t *testing.T) {
	p := system.New()
	assert.Equal(t, chain.BlockNumber(0), p.BlockNumber())
	assert.Equal(t, chain.Nonce(0), p.Nonce("alice"))
}

func TestIncBlockNumber(t *testing.T) {
	p := system.New()
	p.IncBlockNumber()
	assert.Equal(t, chain.BlockNumber(1), p.BlockNumber())
}

func TestIncNonce(t *testing.T) {
	p := system.New()
	p.IncNonce("alice")
	p.IncNonce("alice")
	assert.Equal(t, chain.Nonce(2), p.Nonce("alice"))
	assert.Equal(t, chain.Nonce(0), p.Nonce("bob"))
}

func TestSnapshotRestore(t *testing.T) {
	p := system.New()
	p.IncBlockNumber()
	p.IncBlockNumber()
	p.IncNonce("alice")

	bn, nonces := p.Snapshot()
	assert.Equal(t, chain.BlockNumber(2), bn)
	assert.Equal(t, chain.Nonce(1), nonces["alice"])

	fresh := system.New()
	fresh.Restore(bn, nonces)
	assert.Equal(t, chain.BlockNumber(2), fresh.BlockNumber())
	assert.Equal(t, chain.Nonce(1), fresh.Nonce("alice"))
}
