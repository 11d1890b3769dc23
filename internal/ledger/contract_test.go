package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
)

type contractLedger interface {
	Mint(ctx context.Context, recipient id.Principal, tokenID id.TokenID) error
	SetURIResolutionData(ctx context.Context, tokenID id.TokenID, metadataRef string) error
	SetBaseURI(ctx context.Context, prefix string) error
	ResolveURI(ctx context.Context, tokenID id.TokenID) (string, error)
	Burn(ctx context.Context, tokenID id.TokenID) error
	HolderOf(ctx context.Context, tokenID id.TokenID) (id.Principal, error)
	Transfer(ctx context.Context, from, to id.Principal, tokenID id.TokenID) error
	SetPauseGuard(g PauseGuard)
	Count(ctx context.Context) (int, error)
}

// runContract exercises behavior every ledger implementation must share.
// newLedger must return an empty ledger on each call.
func runContract(t *testing.T, newLedger func(t *testing.T) contractLedger) {
	ctx := context.Background()

	t.Run("mint rejects duplicates and empty recipients", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Mint(ctx, "alice", 1))

		err := l.Mint(ctx, "bob", 1)
		assert.ErrorIs(t, err, ErrDuplicateIdentifier)
		assert.ErrorIs(t, err, sentinel.ErrConflict)

		assert.ErrorIs(t, l.Mint(ctx, "", 2), ErrInvalidRecipient)

		holder, err := l.HolderOf(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, id.Principal("alice"), holder)
	})

	t.Run("resolve concatenates prefix and reference", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Mint(ctx, "alice", 7))
		require.NoError(t, l.SetURIResolutionData(ctx, 7, "QmSeven"))

		uri, err := l.ResolveURI(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "QmSeven", uri)

		require.NoError(t, l.SetBaseURI(ctx, "ipfs://"))
		uri, err = l.ResolveURI(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "ipfs://QmSeven", uri)

		require.NoError(t, l.SetURIResolutionData(ctx, 7, "QmOther"))
		uri, err = l.ResolveURI(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "ipfs://QmOther", uri)
	})

	t.Run("unknown identifiers", func(t *testing.T) {
		l := newLedger(t)
		_, err := l.ResolveURI(ctx, 99)
		assert.ErrorIs(t, err, ErrUnknownIdentifier)
		assert.ErrorIs(t, l.SetURIResolutionData(ctx, 99, "x"), ErrUnknownIdentifier)
		assert.ErrorIs(t, l.Burn(ctx, 99), ErrUnknownIdentifier)
		_, err = l.HolderOf(ctx, 99)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("burn frees the identifier", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Mint(ctx, "alice", 3))
		require.NoError(t, l.Burn(ctx, 3))
		require.NoError(t, l.Mint(ctx, "bob", 3))
	})

	t.Run("count tracks held identifiers", func(t *testing.T) {
		l := newLedger(t)
		n, err := l.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		for tokenID := id.TokenID(1); tokenID <= 3; tokenID++ {
			require.NoError(t, l.Mint(ctx, "alice", tokenID))
		}
		require.NoError(t, l.Transfer(ctx, "alice", "bob", 2))
		n, err = l.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n, "transfer does not change the count")

		require.NoError(t, l.Burn(ctx, 1))
		n, err = l.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("transfer checks holder and guard", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.Mint(ctx, "alice", 5))

		assert.ErrorIs(t, l.Transfer(ctx, "bob", "carol", 5), ErrNotHolder)
		assert.ErrorIs(t, l.Transfer(ctx, "alice", "", 5), ErrInvalidRecipient)
		require.NoError(t, l.Transfer(ctx, "alice", "bob", 5))

		holder, err := l.HolderOf(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, id.Principal("bob"), holder)

		paused := errors.New("paused")
		l.SetPauseGuard(PauseGuardFunc(func(context.Context, id.Principal, id.Principal, id.TokenID) error {
			return paused
		}))
		assert.ErrorIs(t, l.Transfer(ctx, "bob", "carol", 5), paused)

		holder, err = l.HolderOf(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, id.Principal("bob"), holder, "guarded transfer leaves holder unchanged")
	})
}
