package memory

import (
	"context"
	"sort"
	"sync"

	"community-token-tracker/internal/domain"
	"community-token-tracker/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.PoolSnapshot // keyed by pool_address
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string][]*domain.PoolSnapshot),
	}
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// InsertBulk appends snapshots. Rejects the whole batch on invalid input.
func (s *SnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.PoolSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	for _, snap := range snapshots {
		if snap == nil || snap.PoolAddress == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snapshots {
		snapCopy := *snap
		s.data[snap.PoolAddress] = append(s.data[snap.PoolAddress], &snapCopy)
	}
	return nil
}

// GetByPool retrieves all snapshots for a pool, ordered by observed_at ASC.
func (s *SnapshotStore) GetByPool(_ context.Context, poolAddress string) ([]*domain.PoolSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[poolAddress]
	result := make([]*domain.PoolSnapshot, 0, len(stored))
	for _, snap := range stored {
		snapCopy := *snap
		result = append(result, &snapCopy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ObservedAtMs < result[j].ObservedAtMs
	})
	return result, nil
}
