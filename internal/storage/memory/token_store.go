package memory

import (
	"context"
	"sort"
	"sync"

	"community-token-tracker/internal/domain"
	"community-token-tracker/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenRecord // keyed by pool_address
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.TokenRecord),
	}
}

var _ storage.TokenStore = (*TokenStore)(nil)

// Get retrieves a record. Returns ErrNotFound if not exists.
func (s *TokenStore) Get(_ context.Context, poolAddress string) (*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[poolAddress]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return rec.Clone(), nil
}

// Upsert inserts a new record or refreshes the market facts of an existing one.
func (s *TokenStore) Upsert(_ context.Context, rec *domain.TokenRecord) (bool, error) {
	if rec == nil || rec.PoolAddress == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[rec.PoolAddress]
	if !exists {
		s.data[rec.PoolAddress] = rec.Clone()
		return true, nil
	}

	// Store copies to prevent external mutation
	existing.MarketCap = clonePtr(rec.MarketCap)
	existing.PriceUSD = clonePtr(rec.PriceUSD)
	existing.LiquidityUSD = clonePtr(rec.LiquidityUSD)
	existing.HolderCount = rec.HolderCount
	existing.TotalVolume = clonePtr(rec.TotalVolume)
	existing.BuyCount = rec.BuyCount
	existing.SellCount = rec.SellCount
	existing.LastUpdated = rec.LastUpdated
	if existing.CommunityID == nil && rec.CommunityID != nil {
		existing.CommunityID = clonePtr(rec.CommunityID)
	}
	return false, nil
}

// Update applies fn under the store lock.
func (s *TokenStore) Update(_ context.Context, poolAddress string, fn storage.UpdateFunc) (*domain.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[poolAddress]
	if !exists {
		return nil, storage.ErrNotFound
	}

	working := existing.Clone()
	if fn(working) {
		// Only derived fields are written by Update
		existing.ATHMarketCap = clonePtr(working.ATHMarketCap)
		existing.ATHDetectedAt = clonePtr(working.ATHDetectedAt)
		existing.IsMigrated = working.IsMigrated
		existing.MigratedAt = clonePtr(working.MigratedAt)
		existing.MarketCapAtMigration = clonePtr(working.MarketCapAtMigration)
		existing.Score = clonePtr(working.Score)
	}
	return existing.Clone(), nil
}

// SetAdmin stores the admin only when none is set.
func (s *TokenStore) SetAdmin(_ context.Context, poolAddress, admin string) (bool, error) {
	if admin == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[poolAddress]
	if !exists {
		return false, storage.ErrNotFound
	}
	if existing.HasAdmin() {
		return false, nil
	}
	existing.AdminUsername = &admin
	return true, nil
}

// AdminForCommunity returns the admin of the earliest detected record in the community.
func (s *TokenStore) AdminForCommunity(_ context.Context, communityID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.TokenRecord
	for _, rec := range s.data {
		if rec.CommunityID == nil || *rec.CommunityID != communityID || !rec.HasAdmin() {
			continue
		}
		if found == nil || rec.DetectedAt < found.DetectedAt {
			found = rec
		}
	}
	if found == nil {
		return "", storage.ErrNotFound
	}
	return *found.AdminUsername, nil
}

// ScoringState reads the scorer inputs.
func (s *TokenStore) ScoringState(_ context.Context, poolAddress string) (domain.ScoringState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[poolAddress]
	if !exists {
		return domain.ScoringState{}, storage.ErrNotFound
	}
	return rec.Clone().ScoringState(), nil
}

// GetScore reads the persisted score.
func (s *TokenStore) GetScore(_ context.Context, poolAddress string) (*domain.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[poolAddress]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return clonePtr(rec.Score), nil
}

// ListWithAdmin returns up to limit records with an admin, newest first.
func (s *TokenStore) ListWithAdmin(_ context.Context, limit int) ([]*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenRecord
	for _, rec := range s.data {
		if rec.HasAdmin() {
			result = append(result, rec.Clone())
		}
	}

	// Sort by detected_at DESC, pool_address for determinism
	sort.Slice(result, func(i, j int) bool {
		if result[i].DetectedAt != result[j].DetectedAt {
			return result[i].DetectedAt > result[j].DetectedAt
		}
		return result[i].PoolAddress < result[j].PoolAddress
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Counts returns total and with-admin record counts.
func (s *TokenStore) Counts(_ context.Context) (storage.TokenCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := storage.TokenCounts{Total: int64(len(s.data))}
	for _, rec := range s.data {
		if rec.HasAdmin() {
			counts.WithAdmin++
		}
	}
	return counts, nil
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
