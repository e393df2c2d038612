package feed

// Wire shapes of the flash-pool feed.

const (
	jsonRPCVersion = "2.0"
	// MethodFlashPool is both the subscription method and the notification method.
	MethodFlashPool = "subscribeFlashPool"
	// DefaultChain is the chain the tracker subscribes to.
	DefaultChain = "sol"
)

type subscribeRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  subscribeParams `json:"params"`
}

type subscribeParams struct {
	Chain string `json:"chain"`
}

type wirePoolParams struct {
	PoolAddress  *string        `json:"poolAddress"`
	Chain        string         `json:"chain"`
	PreFactory   *string        `json:"preFactory"`
	Factory      *string        `json:"factory"`
	Router       *string        `json:"router"`
	BaseToken    *string        `json:"baseToken"`
	QuoteToken   string         `json:"quoteToken"`
	CurvePercent *string        `json:"curvePercent"`
	MarketCap    *string        `json:"marketCap"`
	PriceUSD     string         `json:"priceUsd"`
	LiquidUSD    string         `json:"liquidUsd"`
	Report       *wireReport    `json:"report"`
	BaseInfo     *wireTokenInfo `json:"baseTokenInfo"`
	CreatedAt    *int64         `json:"createdAt"`
}

type wireReport struct {
	PriceChangePercent string `json:"priceChangePercent"`
	TotalVolume        string `json:"totalVolume"`
	BuyVolume          string `json:"buyVolume"`
	SellVolume         string `json:"sellVolume"`
	TradeCount         int64  `json:"tradeCount"`
	BuyCount           int64  `json:"buyCount"`
	SellCount          int64  `json:"sellCount"`
}

type wireTokenInfo struct {
	Symbol      string      `json:"symbol"`
	Name        string      `json:"name"`
	LogoURI     *string     `json:"logoUri"`
	TotalSupply *string     `json:"totalSupply"`
	Social      *wireSocial `json:"social"`
	Owner       *string     `json:"owner"`
	HolderCount int64       `json:"holderCount"`
}

type wireSocial struct {
	Twitter *string `json:"twitter"`
	Website *string `json:"website"`
}
