//go:build integration

package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"mintgate/pkg/platform/sentinel"
	"mintgate/pkg/testutil/containers"
)

func TestRedisLedgerContract(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	t.Cleanup(func() { _ = rc.Close(context.Background()) })

	runContract(t, func(t *testing.T) contractLedger {
		require.NoError(t, rc.FlushAll(context.Background()))
		return NewRedisLedger(rc.Client, WithKeyPrefix("test:ledger:"))
	})
}

func TestRedisLedgerClaim(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	t.Cleanup(func() { _ = rc.Close(ctx) })
	require.NoError(t, rc.FlushAll(ctx))

	first := NewRedisLedger(rc.Client, WithKeyPrefix("test:claim:"))
	second := NewRedisLedger(rc.Client, WithKeyPrefix("test:claim:"))
	other := NewRedisLedger(rc.Client, WithKeyPrefix("test:other:"))

	release, err := first.Claim(ctx)
	require.NoError(t, err)

	_, err = second.Claim(ctx)
	require.ErrorIs(t, err, ErrWriterClaimed)
	require.ErrorIs(t, err, sentinel.ErrConflict)

	releaseOther, err := other.Claim(ctx)
	require.NoError(t, err, "claims are scoped to the key prefix")
	require.NoError(t, releaseOther(ctx))

	require.NoError(t, release(ctx))
	releaseSecond, err := second.Claim(ctx)
	require.NoError(t, err)

	require.NoError(t, release(ctx), "stale release leaves the new claim alone")
	_, err = first.Claim(ctx)
	require.ErrorIs(t, err, ErrWriterClaimed)
	require.NoError(t, releaseSecond(ctx))
}
