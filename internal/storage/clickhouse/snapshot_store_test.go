package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-token-tracker/internal/domain"
	"community-token-tracker/internal/storage"
)

func TestSnapshotStore_InsertBulkAndGetByPool(t *testing.T) {
	conn := setupTestDB(t)

	store := NewSnapshotStore(conn)
	ctx := context.Background()

	snapshots := []*domain.PoolSnapshot{
		{PoolAddress: "PoolA", ObservedAtMs: 2000, MarketCap: 25000, PriceUSD: 0.000025, LiquidityUSD: 9000, HolderCount: 80, BuyCount: 40, SellCount: 12},
		{PoolAddress: "PoolA", ObservedAtMs: 1000, MarketCap: 12000, PriceUSD: 0.000012, LiquidityUSD: 5000, HolderCount: 50, BuyCount: 20, SellCount: 5},
		{PoolAddress: "PoolB", ObservedAtMs: 1500, MarketCap: 8000},
	}
	require.NoError(t, store.InsertBulk(ctx, snapshots))

	got, err := store.GetByPool(ctx, "PoolA")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1000), got[0].ObservedAtMs)
	assert.InDelta(t, 12000.0, got[0].MarketCap, 1e-9)
	assert.Equal(t, int64(50), got[0].HolderCount)
	assert.Equal(t, int64(2000), got[1].ObservedAtMs)
	assert.Equal(t, int64(12), got[1].SellCount)

	none, err := store.GetByPool(ctx, "PoolZ")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSnapshotStore_InvalidInput(t *testing.T) {
	conn := setupTestDB(t)

	store := NewSnapshotStore(conn)

	err := store.InsertBulk(context.Background(), []*domain.PoolSnapshot{{PoolAddress: ""}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	assert.NoError(t, store.InsertBulk(context.Background(), nil))
}
