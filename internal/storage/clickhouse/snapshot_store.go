package clickhouse

import (
	"context"
	"fmt"

	"community-token-tracker/internal/domain"
	"community-token-tracker/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// InsertBulk appends snapshots in one batch.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.PoolSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	for _, snap := range snapshots {
		if snap == nil || snap.PoolAddress == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pool_snapshots (
			pool_address, observed_at_ms, market_cap, price_usd, liquidity_usd,
			holder_count, buy_count, sell_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.PoolAddress, uint64(snap.ObservedAtMs),
			snap.MarketCap, snap.PriceUSD, snap.LiquidityUSD,
			uint64(snap.HolderCount), uint64(snap.BuyCount), uint64(snap.SellCount),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByPool retrieves all snapshots for a pool, ordered by observed_at ASC.
func (s *SnapshotStore) GetByPool(ctx context.Context, poolAddress string) ([]*domain.PoolSnapshot, error) {
	query := `
		SELECT pool_address, observed_at_ms, market_cap, price_usd, liquidity_usd,
			holder_count, buy_count, sell_count
		FROM pool_snapshots
		WHERE pool_address = ?
		ORDER BY observed_at_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, poolAddress)
	if err != nil {
		return nil, fmt.Errorf("query by pool: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// scanSnapshots scans multiple rows.
func scanSnapshots(rows chRows) ([]*domain.PoolSnapshot, error) {
	var snapshots []*domain.PoolSnapshot

	for rows.Next() {
		var snap domain.PoolSnapshot
		var observedAtMs, holders, buys, sells uint64

		err := rows.Scan(
			&snap.PoolAddress, &observedAtMs,
			&snap.MarketCap, &snap.PriceUSD, &snap.LiquidityUSD,
			&holders, &buys, &sells,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pool snapshot row: %w", err)
		}

		snap.ObservedAtMs = int64(observedAtMs)
		snap.HolderCount = int64(holders)
		snap.BuyCount = int64(buys)
		snap.SellCount = int64(sells)
		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool snapshot rows: %w", err)
	}

	return snapshots, nil
}
