package feed

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"

	"community-token-tracker/internal/domain"
)

var (
	// ErrNotPoolUpdate is returned for frames that are not pool updates
	// (heartbeats, subscription acks, other channels). Not a failure.
	ErrNotPoolUpdate = errors.New("not a pool update")

	// ErrMalformed is returned for pool-update frames with invalid fields.
	ErrMalformed = errors.New("malformed pool update")
)

// solanaKeyLen is the decoded length of a Solana account address.
const solanaKeyLen = 32

type envelope struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Decode parses a raw feed frame into a PoolUpdateEvent.
// Returns ErrNotPoolUpdate for unrelated frames and an error wrapping
// ErrMalformed when the frame has the pool-update shape but bad fields.
func Decode(raw []byte) (*domain.PoolUpdateEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrNotPoolUpdate
	}
	if env.Method != MethodFlashPool || len(env.Params) == 0 || env.Params[0] != '{' {
		return nil, ErrNotPoolUpdate
	}

	var p wirePoolParams
	if err := json.Unmarshal(env.Params, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := validate(&p); err != nil {
		return nil, err
	}

	return toEvent(&p), nil
}

// validate checks required fields and the pool address encoding.
func validate(p *wirePoolParams) error {
	switch {
	case p.PoolAddress == nil || *p.PoolAddress == "":
		return fmt.Errorf("%w: missing poolAddress", ErrMalformed)
	case p.Factory == nil || *p.Factory == "":
		return fmt.Errorf("%w: missing factory", ErrMalformed)
	case p.BaseToken == nil || *p.BaseToken == "":
		return fmt.Errorf("%w: missing baseToken", ErrMalformed)
	case p.MarketCap == nil:
		return fmt.Errorf("%w: missing marketCap", ErrMalformed)
	case p.BaseInfo == nil:
		return fmt.Errorf("%w: missing baseTokenInfo", ErrMalformed)
	case p.CreatedAt == nil:
		return fmt.Errorf("%w: missing createdAt", ErrMalformed)
	}

	if p.Chain == DefaultChain {
		key, err := base58.Decode(*p.PoolAddress)
		if err != nil || len(key) != solanaKeyLen {
			return fmt.Errorf("%w: invalid pool address %q", ErrMalformed, *p.PoolAddress)
		}
	}
	return nil
}

func toEvent(p *wirePoolParams) *domain.PoolUpdateEvent {
	ev := &domain.PoolUpdateEvent{
		PoolAddress:  *p.PoolAddress,
		Chain:        p.Chain,
		Factory:      *p.Factory,
		PreFactory:   p.PreFactory,
		Router:       p.Router,
		BaseToken:    *p.BaseToken,
		QuoteToken:   p.QuoteToken,
		CurvePercent: p.CurvePercent,
		MarketCap:    *p.MarketCap,
		PriceUSD:     p.PriceUSD,
		LiquidityUSD: p.LiquidUSD,
		CreatedAt:    *p.CreatedAt,
		BaseInfo: domain.BaseTokenInfo{
			Symbol:      p.BaseInfo.Symbol,
			Name:        p.BaseInfo.Name,
			LogoURI:     p.BaseInfo.LogoURI,
			TotalSupply: p.BaseInfo.TotalSupply,
			Owner:       p.BaseInfo.Owner,
			HolderCount: p.BaseInfo.HolderCount,
		},
	}

	if p.BaseInfo.Social != nil {
		ev.BaseInfo.Twitter = p.BaseInfo.Social.Twitter
		ev.BaseInfo.Website = p.BaseInfo.Social.Website
	}

	if p.Report != nil {
		ev.Report = domain.TradeReport{
			PriceChangePercent: p.Report.PriceChangePercent,
			TotalVolume:        p.Report.TotalVolume,
			BuyVolume:          p.Report.BuyVolume,
			SellVolume:         p.Report.SellVolume,
			TradeCount:         p.Report.TradeCount,
			BuyCount:           p.Report.BuyCount,
			SellCount:          p.Report.SellCount,
		}
	}

	return ev
}
