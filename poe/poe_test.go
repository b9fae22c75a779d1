package poe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/poe/chain"
	"xdao.co/poe/poe"
)

const (
	alice = chain.AccountID("alice")
	bob   = chain.AccountID("bob")
)

func TestCreateAndLookup(t *testing.T) {
	p := poe.New()

	_, ok := p.Owner("my_document")
	assert.False(t, ok)

	require.NoError(t, p.CreateClaim(alice, "my_document"))

	owner, ok := p.Owner("my_document")
	require.True(t, ok)
	assert.Equal(t, alice, owner)
	assert.Equal(t, 1, p.Len())
}

func TestCreateDuplicateFails(t *testing.T) {
	p := poe.New()
	require.NoError(t, p.CreateClaim(alice, "my_document"))

	// Even the original owner cannot claim twice.
	assert.ErrorIs(t, p.CreateClaim(bob, "my_document"), poe.ErrAlreadyClaimed)
	assert.ErrorIs(t, p.CreateClaim(alice, "my_document"), poe.ErrAlreadyClaimed)

	owner, ok := p.Owner("my_document")
	require.True(t, ok)
	assert.Equal(t, alice, owner)
}

func TestRevokeUnclaimed(t *testing.T) {
	p := poe.New()
	assert.ErrorIs(t, p.RevokeClaim(alice, "never_claimed"), poe.ErrNotFound)
}

func TestRevokeByNonOwner(t *testing.T) {
	p := poe.New()
	require.NoError(t, p.CreateClaim(alice, "my_document"))

	assert.ErrorIs(t, p.RevokeClaim(bob, "my_document"), poe.ErrNotOwner)

	// The entry is unchanged after the failed revoke.
	owner, ok := p.Owner("my_document")
	require.True(t, ok)
	assert.Equal(t, alice, owner)
}

func TestRevokeMakesClaimableAgain(t *testing.T) {
	p := poe.New()
	require.NoError(t, p.CreateClaim(alice, "my_document"))
	require.NoError(t, p.RevokeClaim(alice, "my_document"))

	_, ok := p.Owner("my_document")
	assert.False(t, ok)

	require.NoError(t, p.CreateClaim(bob, "my_document"))
	owner, _ := p.Owner("my_document")
	assert.Equal(t, bob, owner)
}

func TestClaimLifecycle(t *testing.T) {
	p := poe.New()

	require.NoError(t, p.CreateClaim(alice, "Hello, world!"))
	assert.ErrorIs(t, p.CreateClaim(bob, "Hello, world!"), poe.ErrAlreadyClaimed)
	require.NoError(t, p.RevokeClaim(alice, "Hello, world!"))
	require.NoError(t, p.CreateClaim(bob, "Hello, world!"))
}

func TestCheckDoesNotMutate(t *testing.T) {
	p := poe.New()

	require.NoError(t, p.Check(alice, poe.CreateClaimCall{Claim: "doc"}))
	_, ok := p.Owner("doc")
	assert.False(t, ok, "Check must not insert")

	require.NoError(t, p.CreateClaim(alice, "doc"))
	assert.ErrorIs(t, p.Check(bob, poe.CreateClaimCall{Claim: "doc"}), poe.ErrAlreadyClaimed)
	assert.ErrorIs(t, p.Check(bob, poe.RevokeClaimCall{Claim: "doc"}), poe.ErrNotOwner)
	assert.ErrorIs(t, p.Check(bob, poe.RevokeClaimCall{Claim: "other"}), poe.ErrNotFound)
	require.NoError(t, p.Check(alice, poe.RevokeClaimCall{Claim: "doc"}))

	owner, ok := p.Owner("doc")
	require.True(t, ok)
	assert.Equal(t, alice, owner)
}

func TestSnapshotRestore(t *testing.T) {
	p := poe.New()
	require.NoError(t, p.CreateClaim(alice, "a"))
	require.NoError(t, p.CreateClaim(bob, "b"))

	snap := p.Snapshot()
	assert.Len(t, snap, 2)

	// Mutating the snapshot must not affect the pallet.
	snap["c"] = alice
	assert.Equal(t, 2, p.Len())

	fresh := poe.New()
	fresh.Restore(snap)
	owner, ok := fresh.Owner("b")
	require.True(t, ok)
	assert.Equal(t, bob, owner)
}
