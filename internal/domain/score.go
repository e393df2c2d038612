package domain

import "strconv"

// Score is a token priority; lower is more interesting.
type Score int

const (
	ScoreMigratedHighATH Score = 0
	ScoreFastMigration   Score = 1
	ScoreSlowMigration   Score = 2
	ScoreATHAbove30k     Score = 3
	ScoreATHAbove20k     Score = 4
	ScoreATHAbove10k     Score = 5
	ScoreUnranked        Score = 6
)

// String returns the numeric representation of Score.
func (s Score) String() string {
	return strconv.Itoa(int(s))
}

// IsValid checks if the score is within the policy range.
func (s Score) IsValid() bool {
	return s >= ScoreMigratedHighATH && s <= ScoreUnranked
}

// PoolSnapshot is one market observation for a pool.
// Corresponds to pool_snapshots table in ClickHouse.
type PoolSnapshot struct {
	PoolAddress  string
	ObservedAtMs int64
	MarketCap    float64
	PriceUSD     float64
	LiquidityUSD float64
	HolderCount  int64
	BuyCount     int64
	SellCount    int64
}
