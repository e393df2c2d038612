package domain

// Platform tags carried in the feed's factory / preFactory fields.
const (
	// PlatformPump is the pump.fun bonding-curve factory.
	PlatformPump = "pump"
	// PlatformPumpAMM is the factory a pump.fun token moves to when it graduates.
	PlatformPumpAMM = "pumpamm"
)

// Platform labels stored on TokenRecord.
const (
	PlatformLabelPumpFun = "pump.fun"
	PlatformLabelOther   = "other"
)

// PoolUpdateEvent is one decoded pool update from the flash-pool feed.
// Numeric market fields are kept as the decimal strings the feed sends.
type PoolUpdateEvent struct {
	PoolAddress  string
	Chain        string
	Factory      string  // current platform tag
	PreFactory   *string // predecessor platform tag (nullable)
	Router       *string
	BaseToken    string
	QuoteToken   string
	CurvePercent *string
	MarketCap    string
	PriceUSD     string
	LiquidityUSD string
	Report       TradeReport
	BaseInfo     BaseTokenInfo
	CreatedAt    int64 // Unix seconds
}

// TradeReport holds the rolling trade counters attached to a pool update.
type TradeReport struct {
	PriceChangePercent string
	TotalVolume        string
	BuyVolume          string
	SellVolume         string
	TradeCount         int64
	BuyCount           int64
	SellCount          int64
}

// BaseTokenInfo holds metadata for the pool's base token.
type BaseTokenInfo struct {
	Symbol      string
	Name        string
	LogoURI     *string
	TotalSupply *string
	Owner       *string
	HolderCount int64
	Twitter     *string
	Website     *string
}

// SocialURLs returns the declared social links in lookup order (twitter first).
func (e *PoolUpdateEvent) SocialURLs() []string {
	var urls []string
	if e.BaseInfo.Twitter != nil && *e.BaseInfo.Twitter != "" {
		urls = append(urls, *e.BaseInfo.Twitter)
	}
	if e.BaseInfo.Website != nil && *e.BaseInfo.Website != "" {
		urls = append(urls, *e.BaseInfo.Website)
	}
	return urls
}

// PlatformLabel returns the platform label recorded for this pool.
func (e *PoolUpdateEvent) PlatformLabel() string {
	if e.Factory == PlatformPump {
		return PlatformLabelPumpFun
	}
	if e.Factory == PlatformPumpAMM && e.PreFactory != nil && *e.PreFactory == PlatformPump {
		return PlatformLabelPumpFun
	}
	return PlatformLabelOther
}

// IsMigrationTrigger reports whether the event carries the migration-destination tag.
func (e *PoolUpdateEvent) IsMigrationTrigger() bool {
	return e.Factory == PlatformPumpAMM
}
