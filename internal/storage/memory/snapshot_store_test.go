package memory

import (
	"context"
	"errors"
	"testing"

	"community-token-tracker/internal/domain"
	"community-token-tracker/internal/storage"
)

func TestSnapshotStore_InsertAndGetOrdered(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.PoolSnapshot{
		{PoolAddress: "pool1", ObservedAtMs: 3000, MarketCap: 30},
		{PoolAddress: "pool1", ObservedAtMs: 1000, MarketCap: 10},
		{PoolAddress: "pool2", ObservedAtMs: 2000, MarketCap: 20},
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByPool(ctx, "pool1")
	if err != nil {
		t.Fatalf("GetByPool failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(got))
	}
	if got[0].ObservedAtMs != 1000 || got[1].ObservedAtMs != 3000 {
		t.Errorf("not ordered by observed_at: %d, %d", got[0].ObservedAtMs, got[1].ObservedAtMs)
	}

	empty, _ := store.GetByPool(ctx, "unknown")
	if len(empty) != 0 {
		t.Errorf("expected no snapshots, got %d", len(empty))
	}
}

func TestSnapshotStore_InvalidBatchRejected(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.PoolSnapshot{
		{PoolAddress: "pool1", ObservedAtMs: 1},
		{PoolAddress: ""},
	})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	got, _ := store.GetByPool(ctx, "pool1")
	if len(got) != 0 {
		t.Error("partial batch was stored")
	}
}
