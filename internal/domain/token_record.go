package domain

// TokenRecord is the durable per-pool state.
// Corresponds to the tokens table in PostgreSQL.
type TokenRecord struct {
	PoolAddress string // PRIMARY KEY
	BaseToken   string
	Symbol      string
	Name        string
	Platform    string
	TwitterURL  *string

	// Mutable market facts, overwritten on every accepted event.
	MarketCap    *float64
	PriceUSD     *float64
	LiquidityUSD *float64
	HolderCount  int64
	TotalVolume  *float64
	BuyCount     int64
	SellCount    int64

	// Derived state.
	CommunityID          *string // stable once extracted
	AdminUsername        *string // set once, never cleared
	ATHMarketCap         *string // decimal string, ratchet
	ATHDetectedAt        *int64  // Unix seconds
	IsMigrated           bool
	MigratedAt           *int64   // Unix seconds
	MarketCapAtMigration *float64 // nil when the trigger's market cap was unparsable
	Score                *Score

	CreatedAt   int64 // pool creation time from the feed (Unix seconds)
	DetectedAt  int64 // first accepted event (Unix seconds)
	LastUpdated int64 // last accepted event (Unix seconds)
}

// HasAdmin reports whether an admin identity has been resolved.
func (r *TokenRecord) HasAdmin() bool {
	return r.AdminUsername != nil && *r.AdminUsername != ""
}

// Clone returns a deep copy of the record.
func (r *TokenRecord) Clone() *TokenRecord {
	c := *r
	c.TwitterURL = clonePtr(r.TwitterURL)
	c.MarketCap = clonePtr(r.MarketCap)
	c.PriceUSD = clonePtr(r.PriceUSD)
	c.LiquidityUSD = clonePtr(r.LiquidityUSD)
	c.TotalVolume = clonePtr(r.TotalVolume)
	c.CommunityID = clonePtr(r.CommunityID)
	c.AdminUsername = clonePtr(r.AdminUsername)
	c.ATHMarketCap = clonePtr(r.ATHMarketCap)
	c.ATHDetectedAt = clonePtr(r.ATHDetectedAt)
	c.MigratedAt = clonePtr(r.MigratedAt)
	c.MarketCapAtMigration = clonePtr(r.MarketCapAtMigration)
	c.Score = clonePtr(r.Score)
	return &c
}

// ScoringState is the subset of TokenRecord the scorer reads.
type ScoringState struct {
	ATHMarketCap *string
	IsMigrated   bool
	MigratedAt   *int64
	CreatedAt    *int64
}

// ScoringState extracts the scorer inputs from the record.
func (r *TokenRecord) ScoringState() ScoringState {
	created := r.CreatedAt
	return ScoringState{
		ATHMarketCap: r.ATHMarketCap,
		IsMigrated:   r.IsMigrated,
		MigratedAt:   r.MigratedAt,
		CreatedAt:    &created,
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
