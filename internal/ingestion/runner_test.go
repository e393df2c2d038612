package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-token-tracker/internal/domain"
)

// sliceSource sends its frames and then returns err.
type sliceSource struct {
	frames [][]byte
	err    error
	block  bool // wait for cancellation after sending
}

func (s *sliceSource) Run(ctx context.Context, out chan<- []byte) error {
	for _, f := range s.frames {
		select {
		case out <- f:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

func poolFrame(t *testing.T, ev *domain.PoolUpdateEvent) []byte {
	t.Helper()

	social := map[string]any{}
	if ev.BaseInfo.Twitter != nil {
		social["twitter"] = *ev.BaseInfo.Twitter
	}
	params := map[string]any{
		"poolAddress": ev.PoolAddress,
		"chain":       ev.Chain,
		"factory":     ev.Factory,
		"baseToken":   ev.BaseToken,
		"marketCap":   ev.MarketCap,
		"priceUsd":    ev.PriceUSD,
		"liquidUsd":   ev.LiquidityUSD,
		"baseTokenInfo": map[string]any{
			"symbol":      ev.BaseInfo.Symbol,
			"name":        ev.BaseInfo.Name,
			"holderCount": ev.BaseInfo.HolderCount,
			"social":      social,
		},
		"createdAt": ev.CreatedAt,
	}
	if ev.PreFactory != nil {
		params["preFactory"] = *ev.PreFactory
	}

	raw, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  "subscribeFlashPool",
		"params":  params,
	})
	require.NoError(t, err)
	return raw
}

func TestRunner_ProcessesFramesInPoolOrder(t *testing.T) {
	env := newTestEnv(t, nil)

	src := &sliceSource{frames: [][]byte{
		poolFrame(t, pumpEvent(poolA, "12000")),
		[]byte(`{"jsonrpc":"2.0","id":"1","result":true}`),
		poolFrame(t, pumpEvent(poolB, "22000")),
		poolFrame(t, migratedEvent(poolA, "31000")),
		poolFrame(t, pumpEvent(poolC, "500")),
		poolFrame(t, migratedEvent(poolA, "30000")),
		poolFrame(t, migratedEvent(poolB, "150000")),
	}}

	runner, err := NewRunner(RunnerOptions{Source: src, Processor: env.proc, Workers: 3})
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background()))

	ctx := context.Background()
	recA, err := env.tokens.Get(ctx, poolA)
	require.NoError(t, err)
	assert.True(t, recA.IsMigrated)
	assert.Equal(t, "31000", *recA.ATHMarketCap)
	assert.Equal(t, domain.ScoreFastMigration, *recA.Score)

	recB, err := env.tokens.Get(ctx, poolB)
	require.NoError(t, err)
	assert.Equal(t, domain.ScoreMigratedHighATH, *recB.Score)

	recC, err := env.tokens.Get(ctx, poolC)
	require.NoError(t, err)
	assert.Equal(t, domain.ScoreUnranked, *recC.Score)

	counts, err := env.tokens.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.Total)
	assert.Equal(t, int64(3), counts.WithAdmin)
	assert.Equal(t, int32(1), env.api.calls.Load())
}

func TestRunner_ReturnsSourceErrorAfterDraining(t *testing.T) {
	env := newTestEnv(t, nil)
	transportErr := errors.New("connection reset")

	src := &sliceSource{
		frames: [][]byte{poolFrame(t, pumpEvent(poolA, "1000"))},
		err:    transportErr,
	}

	runner, err := NewRunner(RunnerOptions{Source: src, Processor: env.proc})
	require.NoError(t, err)

	err = runner.Run(context.Background())
	assert.ErrorIs(t, err, transportErr)

	_, err = env.tokens.Get(context.Background(), poolA)
	assert.NoError(t, err, "frames received before the failure are processed")
}

func TestRunner_StopsOnCancel(t *testing.T) {
	env := newTestEnv(t, nil)
	src := &sliceSource{block: true}

	runner, err := NewRunner(RunnerOptions{Source: src, Processor: env.proc, Workers: 2})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}

func TestNewRunner_Validation(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	assert.Error(t, err)

	env := newTestEnv(t, nil)
	_, err = NewRunner(RunnerOptions{Source: &sliceSource{}})
	assert.Error(t, err)

	r, err := NewRunner(RunnerOptions{Source: &sliceSource{}, Processor: env.proc})
	require.NoError(t, err)
	assert.Equal(t, 1, r.workers)
	assert.Equal(t, 256, r.queueSize)
}

func TestShardFor(t *testing.T) {
	for _, pool := range []string{poolA, poolB, poolC} {
		s := shardFor(pool, 4)
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, 4)
		assert.Equal(t, s, shardFor(pool, 4), "stable for the same pool")
	}
	assert.Equal(t, 0, shardFor(poolA, 1))
}
