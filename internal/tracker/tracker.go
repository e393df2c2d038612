// Package tracker applies the migration and all-time-high ratchets to a
// TokenRecord. Both functions mutate rec in place and must run inside an
// atomic store update.
package tracker

import (
	"strings"

	"github.com/shopspring/decimal"

	"community-token-tracker/internal/domain"
)

// ApplyMigration marks rec migrated when ev is a migration trigger.
// Returns true only on the false→true transition.
func ApplyMigration(rec *domain.TokenRecord, ev *domain.PoolUpdateEvent, now int64) bool {
	if !ev.IsMigrationTrigger() || rec.IsMigrated {
		return false
	}

	rec.IsMigrated = true
	rec.MigratedAt = &now
	rec.MarketCapAtMigration = nil
	if mc, ok := ParseMarketCap(ev.MarketCap); ok {
		f := mc.InexactFloat64()
		rec.MarketCapAtMigration = &f
	}
	return true
}

// ApplyATH raises rec's all-time-high when ev carries a strictly greater
// market cap. Unparsable values never update. Returns true on change.
func ApplyATH(rec *domain.TokenRecord, ev *domain.PoolUpdateEvent, now int64) bool {
	mc, ok := ParseMarketCap(ev.MarketCap)
	if !ok {
		return false
	}

	current := decimal.Zero
	if rec.ATHMarketCap != nil {
		if v, ok := ParseMarketCap(*rec.ATHMarketCap); ok {
			current = v
		}
	}

	if !mc.GreaterThan(current) {
		return false
	}

	ath := mc.String()
	rec.ATHMarketCap = &ath
	rec.ATHDetectedAt = &now
	return true
}

// ParseMarketCap parses a feed decimal string.
func ParseMarketCap(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
