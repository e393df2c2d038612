package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"community-token-tracker/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestScore_Table(t *testing.T) {
	const t0 = int64(1_700_000_000)

	tests := []struct {
		name       string
		ath        *string
		migrated   bool
		migratedAt *int64
		createdAt  *int64
		want       domain.Score
	}{
		{"nothing known", nil, false, nil, nil, 6},
		{"ath rule beats speed rule", ptr("150000"), true, ptr(t0), ptr(t0 - 3600), 0},
		{"exactly 100k migrated", ptr("100000"), true, ptr(t0 + 99999), ptr(t0), 0},
		{"fast migration boundary", ptr("50000"), true, ptr(t0 + 9000), ptr(t0), 1},
		{"one second past boundary", ptr("50000"), true, ptr(t0 + 9001), ptr(t0), 2},
		{"migrated without timestamps", ptr("50000"), true, nil, nil, 2},
		{"migrated without created", nil, true, ptr(t0), nil, 2},
		{"migrated no ath fast", nil, true, ptr(t0 + 60), ptr(t0), 1},
		{"25k not migrated", ptr("25000"), false, nil, nil, 4},
		{"30k not migrated", ptr("30000"), false, nil, nil, 3},
		{"20k not migrated", ptr("20000"), false, nil, nil, 4},
		{"10k not migrated", ptr("10000"), false, nil, nil, 5},
		{"just under 10k", ptr("9999.99"), false, nil, nil, 6},
		{"huge ath not migrated", ptr("5000000"), false, ptr(t0), ptr(t0), 3},
		{"unparsable ath", ptr("n/a"), false, nil, nil, 6},
		{"unparsable ath migrated", ptr("n/a"), true, ptr(t0 + 10), ptr(t0), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.ath, tt.migrated, tt.migratedAt, tt.createdAt)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.IsValid())
		})
	}
}

func TestScore_Idempotent(t *testing.T) {
	rec := &domain.TokenRecord{
		ATHMarketCap: ptr("42000"),
		CreatedAt:    100,
	}

	first := ScoreState(rec.ScoringState())
	assert.Equal(t, domain.ScoreATHAbove30k, first)
	assert.Equal(t, first, ScoreState(rec.ScoringState()))
}
