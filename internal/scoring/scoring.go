// Package scoring derives the token priority score.
package scoring

import (
	"github.com/shopspring/decimal"

	"community-token-tracker/internal/domain"
	"community-token-tracker/internal/tracker"
)

// Policy thresholds (USD market cap).
var (
	migratedHighATH = decimal.NewFromInt(100_000)
	athTier3        = decimal.NewFromInt(30_000)
	athTier4        = decimal.NewFromInt(20_000)
	athTier5        = decimal.NewFromInt(10_000)
)

// FastMigrationSeconds is the inclusive upper bound for a fast migration (2.5h).
const FastMigrationSeconds int64 = 9000

// Score maps the scoring inputs to a priority, first matching rule wins:
//
//	migrated, ATH >= 100k                    -> 0
//	migrated, migration took <= 2.5h         -> 1
//	migrated, slower or timestamps missing   -> 2
//	not migrated, ATH >= 30k / 20k / 10k     -> 3 / 4 / 5
//	anything else                            -> 6
//
// An unparsable ATH counts as absent.
func Score(ath *string, migrated bool, migratedAt, createdAt *int64) domain.Score {
	athValue, hasATH := decimal.Zero, false
	if ath != nil {
		athValue, hasATH = tracker.ParseMarketCap(*ath)
	}

	if migrated {
		if hasATH && athValue.GreaterThanOrEqual(migratedHighATH) {
			return domain.ScoreMigratedHighATH
		}
		if migratedAt != nil && createdAt != nil && *migratedAt-*createdAt <= FastMigrationSeconds {
			return domain.ScoreFastMigration
		}
		return domain.ScoreSlowMigration
	}

	switch {
	case !hasATH:
		return domain.ScoreUnranked
	case athValue.GreaterThanOrEqual(athTier3):
		return domain.ScoreATHAbove30k
	case athValue.GreaterThanOrEqual(athTier4):
		return domain.ScoreATHAbove20k
	case athValue.GreaterThanOrEqual(athTier5):
		return domain.ScoreATHAbove10k
	default:
		return domain.ScoreUnranked
	}
}

// ScoreState is Score applied to a record's scoring state.
func ScoreState(s domain.ScoringState) domain.Score {
	return Score(s.ATHMarketCap, s.IsMigrated, s.MigratedAt, s.CreatedAt)
}
