package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"community-token-tracker/internal/classifier"
	"community-token-tracker/internal/domain"
	"community-token-tracker/internal/feed"
	"community-token-tracker/internal/logging"
	"community-token-tracker/internal/observability"
	"community-token-tracker/internal/resolver"
	"community-token-tracker/internal/scoring"
	"community-token-tracker/internal/storage"
	"community-token-tracker/internal/tracker"
)

// CommunityResolver maps a community id to its admin identity.
type CommunityResolver interface {
	Resolve(ctx context.Context, communityID string) resolver.Result
}

// Outcome reports what processing one event changed.
type Outcome struct {
	Accepted    bool
	Override    bool // accepted only because the pool is tracked with an admin
	Reason      classifier.Reason
	Created     bool
	Migrated    bool
	NewATH      bool
	AdminSource resolver.Source // empty when no lookup ran
	AdminSet    bool
	Score       domain.Score
}

// Processor runs the per-event pipeline against the stores.
type Processor struct {
	tokens     storage.TokenStore
	snapshots  storage.SnapshotStore
	resolver   CommunityResolver
	classifier *classifier.Classifier
	startTime  int64
	now        func() time.Time
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// ProcessorOptions contains configuration for creating a Processor.
type ProcessorOptions struct {
	Tokens    storage.TokenStore
	Snapshots storage.SnapshotStore // optional
	Resolver  CommunityResolver
	StartTime int64            // Unix seconds; pools created earlier are rejected
	Clock     func() time.Time // Default: time.Now
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// NewProcessor creates a new event processor.
func NewProcessor(opts ProcessorOptions) (*Processor, error) {
	if opts.Tokens == nil {
		return nil, errors.New("token store is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("community resolver is required")
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Processor{
		tokens:     opts.Tokens,
		snapshots:  opts.Snapshots,
		resolver:   opts.Resolver,
		classifier: classifier.New(),
		startTime:  opts.StartTime,
		now:        clock,
		metrics:    opts.Metrics,
		logger:     logger,
	}, nil
}

// HandleFrame decodes one raw feed frame and processes it.
// Frames that are not pool updates or fail to decode are dropped with nil error.
func (p *Processor) HandleFrame(ctx context.Context, raw []byte) (Outcome, error) {
	ev, ok := p.decode(raw)
	if !ok {
		return Outcome{}, nil
	}
	return p.HandleEvent(ctx, ev)
}

func (p *Processor) decode(raw []byte) (*domain.PoolUpdateEvent, bool) {
	p.metrics.RecordFrame()

	ev, err := feed.Decode(raw)
	switch {
	case err == nil:
		return ev, true
	case errors.Is(err, feed.ErrNotPoolUpdate):
		return nil, false
	default:
		p.metrics.RecordDecodeFailure("malformed")
		p.logger.Debug("dropping malformed frame", zap.Error(err))
		return nil, false
	}
}

// HandleEvent runs classification, persistence, admin resolution, the
// migration and ATH ratchets and scoring for one event. A returned error
// means a store operation failed and the rest of the event was abandoned.
func (p *Processor) HandleEvent(ctx context.Context, ev *domain.PoolUpdateEvent) (Outcome, error) {
	started := p.now()
	defer p.metrics.ObserveEvent(started)

	out, err := p.admit(ctx, ev)
	if err != nil || !out.Accepted {
		return out, err
	}
	p.metrics.RecordAccepted(out.Override)

	now := started.Unix()
	pool := ev.PoolAddress

	created, err := p.tokens.Upsert(ctx, newRecord(ev, now))
	if err != nil {
		return out, p.storeError("upsert", pool, err)
	}
	out.Created = created
	if created {
		p.metrics.RecordNewToken()
		p.logger.Info("new token",
			zap.String("pool", pool),
			zap.String("symbol", ev.BaseInfo.Symbol),
			zap.String("name", ev.BaseInfo.Name),
			zap.String("platform", ev.PlatformLabel()),
		)
	}

	rec, err := p.tokens.Update(ctx, pool, func(r *domain.TokenRecord) bool {
		out.Migrated = tracker.ApplyMigration(r, ev, now)
		return out.Migrated
	})
	if err != nil {
		return out, p.storeError("migration", pool, err)
	}
	if out.Migrated {
		p.metrics.RecordMigration()
		fields := []zap.Field{zap.String("pool", pool), zap.String("symbol", rec.Symbol)}
		if rec.MarketCapAtMigration != nil {
			fields = append(fields, logging.MarketCap("market_cap", *rec.MarketCapAtMigration))
		}
		p.logger.Info("token migrated", fields...)
	}

	var communityID string
	if rec.CommunityID != nil {
		communityID = *rec.CommunityID
	} else {
		communityID = classifier.CommunityID(ev)
	}

	if (created || !rec.HasAdmin()) && communityID != "" {
		if err := p.resolveAdmin(ctx, pool, communityID, &out); err != nil {
			return out, err
		}
	}

	rec, err = p.tokens.Update(ctx, pool, func(r *domain.TokenRecord) bool {
		out.NewATH = tracker.ApplyATH(r, ev, now)
		score := scoring.ScoreState(r.ScoringState())
		changed := out.NewATH || r.Score == nil || *r.Score != score
		r.Score = &score
		return changed
	})
	if err != nil {
		return out, p.storeError("ath", pool, err)
	}
	if rec.Score != nil {
		out.Score = *rec.Score
	}
	p.metrics.RecordScore(out.Score.String())
	if out.NewATH {
		p.metrics.RecordNewATH()
		fields := []zap.Field{zap.String("pool", pool), zap.String("symbol", rec.Symbol)}
		if mc, ok := tracker.ParseMarketCap(ev.MarketCap); ok {
			fields = append(fields, logging.MarketCap("ath", mc.InexactFloat64()))
		}
		p.logger.Info("new ATH", fields...)
	}

	p.recordSnapshot(ctx, ev, started)
	return out, nil
}

// admit applies the classifier and the tracked-with-admin override.
func (p *Processor) admit(ctx context.Context, ev *domain.PoolUpdateEvent) (Outcome, error) {
	d := p.classifier.Evaluate(ev, p.startTime)
	out := Outcome{Reason: d.Reason}
	if d.Accepted() {
		out.Accepted = true
		return out, nil
	}

	rec, err := p.tokens.Get(ctx, ev.PoolAddress)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return out, p.storeError("get", ev.PoolAddress, err)
	case rec.HasAdmin():
		out.Accepted = true
		out.Override = true
		return out, nil
	}

	p.metrics.RecordRejected(string(d.Reason))
	p.logger.Debug("event rejected",
		zap.String("pool", ev.PoolAddress),
		zap.String("reason", string(d.Reason)),
		zap.Bool("origin", d.Origin),
		zap.Bool("community", d.Community),
		zap.Bool("fresh", d.Fresh),
	)
	return out, nil
}

func (p *Processor) resolveAdmin(ctx context.Context, pool, communityID string, out *Outcome) error {
	res := p.resolver.Resolve(ctx, communityID)
	out.AdminSource = res.Source
	p.metrics.RecordAdminLookup(string(res.Source))
	if !res.Found() {
		return nil
	}

	set, err := p.tokens.SetAdmin(ctx, pool, res.Admin)
	if err != nil {
		return p.storeError("set_admin", pool, err)
	}
	out.AdminSet = set
	if !set {
		return nil
	}

	msg := "admin fetched"
	if res.Cached() {
		msg = "admin cached"
	}
	p.logger.Info(msg,
		zap.String("pool", pool),
		zap.String("community", communityID),
		zap.String("admin", res.Admin),
		zap.String("source", string(res.Source)),
	)
	return nil
}

func (p *Processor) recordSnapshot(ctx context.Context, ev *domain.PoolUpdateEvent, observed time.Time) {
	if p.snapshots == nil {
		return
	}

	snap := &domain.PoolSnapshot{
		PoolAddress:  ev.PoolAddress,
		ObservedAtMs: observed.UnixMilli(),
		MarketCap:    floatOrZero(ev.MarketCap),
		PriceUSD:     floatOrZero(ev.PriceUSD),
		LiquidityUSD: floatOrZero(ev.LiquidityUSD),
		HolderCount:  ev.BaseInfo.HolderCount,
		BuyCount:     ev.Report.BuyCount,
		SellCount:    ev.Report.SellCount,
	}
	if err := p.snapshots.InsertBulk(ctx, []*domain.PoolSnapshot{snap}); err != nil {
		p.metrics.RecordStoreError("snapshot")
		p.logger.Warn("snapshot insert failed", zap.String("pool", ev.PoolAddress), zap.Error(err))
	}
}

func (p *Processor) storeError(op, pool string, err error) error {
	p.metrics.RecordStoreError(op)
	return fmt.Errorf("%s %s: %w", op, pool, err)
}

// newRecord builds the record persisted for an accepted event.
func newRecord(ev *domain.PoolUpdateEvent, now int64) *domain.TokenRecord {
	rec := &domain.TokenRecord{
		PoolAddress:  ev.PoolAddress,
		BaseToken:    ev.BaseToken,
		Symbol:       ev.BaseInfo.Symbol,
		Name:         ev.BaseInfo.Name,
		Platform:     ev.PlatformLabel(),
		TwitterURL:   ev.BaseInfo.Twitter,
		MarketCap:    parseFloat(ev.MarketCap),
		PriceUSD:     parseFloat(ev.PriceUSD),
		LiquidityUSD: parseFloat(ev.LiquidityUSD),
		HolderCount:  ev.BaseInfo.HolderCount,
		TotalVolume:  parseFloat(ev.Report.TotalVolume),
		BuyCount:     ev.Report.BuyCount,
		SellCount:    ev.Report.SellCount,
		CreatedAt:    ev.CreatedAt,
		DetectedAt:   now,
		LastUpdated:  now,
	}
	if id := classifier.CommunityID(ev); id != "" {
		rec.CommunityID = &id
	}
	return rec
}

func parseFloat(s string) *float64 {
	d, ok := tracker.ParseMarketCap(s)
	if !ok {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func floatOrZero(s string) float64 {
	if f := parseFloat(s); f != nil {
		return *f
	}
	return 0
}
