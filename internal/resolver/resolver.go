// Package resolver maps X community ids to admin screen names, preferring
// known answers over live API calls.
package resolver

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"community-token-tracker/internal/storage"
)

// DefaultMemoSize bounds the in-process memo of resolved communities.
const DefaultMemoSize = 4096

// Source tells where a resolution came from.
type Source string

const (
	SourceMemo  Source = "memo"
	SourceStore Source = "store"
	SourceAPI   Source = "api"
	SourceNone  Source = "none"
)

// Result is the outcome of one Resolve call. Admin is empty for SourceNone.
type Result struct {
	Admin  string
	Source Source
}

// Found reports whether an admin was resolved.
func (r Result) Found() bool {
	return r.Source != SourceNone && r.Admin != ""
}

// Cached reports whether the admin came without an API call.
func (r Result) Cached() bool {
	return r.Source == SourceMemo || r.Source == SourceStore
}

// AdminLookup is the external identity API.
type AdminLookup interface {
	CommunityAdmin(ctx context.Context, communityID string) (string, error)
}

// AdminIndex is the store capability the resolver reads.
type AdminIndex interface {
	AdminForCommunity(ctx context.Context, communityID string) (string, error)
}

// Options configures Resolver.
type Options struct {
	// MemoSize is the LRU capacity. Defaults to DefaultMemoSize.
	MemoSize int
	// Logger for lookup failures. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Resolver resolves community admins: memo, then store, then one API call.
// Failures are never returned; they collapse to SourceNone and the next
// qualifying event retries.
type Resolver struct {
	index  AdminIndex
	api    AdminLookup
	memo   *lru.Cache[string, string]
	group  singleflight.Group
	logger *zap.Logger
}

// New creates a Resolver.
func New(index AdminIndex, api AdminLookup, opts Options) (*Resolver, error) {
	size := opts.MemoSize
	if size <= 0 {
		size = DefaultMemoSize
	}
	memo, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Resolver{
		index:  index,
		api:    api,
		memo:   memo,
		logger: logger,
	}, nil
}

// Resolve returns the admin for communityID. Concurrent calls for the same
// community share one store read and at most one API call.
func (r *Resolver) Resolve(ctx context.Context, communityID string) Result {
	if communityID == "" {
		return Result{Source: SourceNone}
	}

	if admin, ok := r.memo.Get(communityID); ok {
		return Result{Admin: admin, Source: SourceMemo}
	}

	v, _, _ := r.group.Do(communityID, func() (interface{}, error) {
		return r.resolve(ctx, communityID), nil
	})
	return v.(Result)
}

func (r *Resolver) resolve(ctx context.Context, communityID string) Result {
	// A flight that finished between the caller's memo check and Do has
	// already memoized its answer
	if admin, ok := r.memo.Get(communityID); ok {
		return Result{Admin: admin, Source: SourceMemo}
	}

	admin, err := r.index.AdminForCommunity(ctx, communityID)
	switch {
	case err == nil && admin != "":
		r.memo.Add(communityID, admin)
		return Result{Admin: admin, Source: SourceStore}
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		r.logger.Warn("admin cache lookup failed",
			zap.String("community_id", communityID), zap.Error(err))
	}

	if r.api == nil {
		return Result{Source: SourceNone}
	}

	admin, err = r.api.CommunityAdmin(ctx, communityID)
	if err != nil {
		r.logger.Warn("community admin lookup failed",
			zap.String("community_id", communityID), zap.Error(err))
		return Result{Source: SourceNone}
	}
	if admin == "" {
		return Result{Source: SourceNone}
	}

	r.memo.Add(communityID, admin)
	return Result{Admin: admin, Source: SourceAPI}
}
