package storage

import (
	"context"

	"community-token-tracker/internal/domain"
)

// UpdateFunc mutates rec in place and reports whether anything changed.
// It runs while the store holds the record's lock, so it must not block.
type UpdateFunc func(rec *domain.TokenRecord) bool

// TokenCounts summarizes admin coverage.
type TokenCounts struct {
	Total     int64
	WithAdmin int64
}

// Percent returns the share of tokens with a resolved admin.
func (c TokenCounts) Percent() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.WithAdmin) / float64(c.Total) * 100
}

// TokenStore provides access to tokens storage keyed by pool address.
type TokenStore interface {
	// Get retrieves a record. Returns ErrNotFound if not exists.
	Get(ctx context.Context, poolAddress string) (*domain.TokenRecord, error)

	// Upsert inserts rec when the pool is new and reports created=true.
	// For an existing pool only the market facts and LastUpdated are
	// overwritten, and CommunityID is filled if it was absent. Derived
	// fields (admin, ATH, migration, score) are never touched here.
	Upsert(ctx context.Context, rec *domain.TokenRecord) (created bool, err error)

	// Update applies fn as an atomic read-modify-write on the record and
	// persists derived fields when fn reports a change. Returns the
	// resulting record. Returns ErrNotFound if not exists.
	Update(ctx context.Context, poolAddress string, fn UpdateFunc) (*domain.TokenRecord, error)

	// SetAdmin stores the admin only if none is set yet. Returns false when
	// an admin was already present. Returns ErrNotFound if not exists.
	SetAdmin(ctx context.Context, poolAddress, admin string) (bool, error)

	// AdminForCommunity returns the admin of any record sharing the
	// community id. Returns ErrNotFound when no such record has an admin.
	AdminForCommunity(ctx context.Context, communityID string) (string, error)

	// ScoringState reads the scorer inputs. Returns ErrNotFound if not exists.
	ScoringState(ctx context.Context, poolAddress string) (domain.ScoringState, error)

	// GetScore reads the persisted score (nil if never scored).
	// Returns ErrNotFound if not exists.
	GetScore(ctx context.Context, poolAddress string) (*domain.Score, error)

	// ListWithAdmin returns up to limit records with an admin, newest first.
	ListWithAdmin(ctx context.Context, limit int) ([]*domain.TokenRecord, error)

	// Counts returns total and with-admin record counts.
	Counts(ctx context.Context) (TokenCounts, error)
}

// SnapshotStore provides access to pool_snapshots storage (append-only).
type SnapshotStore interface {
	// InsertBulk appends snapshots.
	InsertBulk(ctx context.Context, snapshots []*domain.PoolSnapshot) error

	// GetByPool retrieves all snapshots for a pool, ordered by observed_at ASC.
	GetByPool(ctx context.Context, poolAddress string) ([]*domain.PoolSnapshot, error)
}
