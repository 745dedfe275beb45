// internal/store/memory.go
package store

import (
	"context"
	"sync"
	"time"

	"github.com/brandbeacon/beacon-workflows/internal/models"
)

// MemoryFingerprintStore is a single-process fingerprint store backed by a
// mutex-guarded map. Multi-process deployments use the Postgres-backed
// repository instead; the semantics are identical.
type MemoryFingerprintStore struct {
	mu      sync.Mutex
	entries map[string]*models.DispatchFingerprint
	now     func() time.Time
}

func NewMemoryFingerprintStore() *MemoryFingerprintStore {
	return &MemoryFingerprintStore{
		entries: make(map[string]*models.DispatchFingerprint),
		now:     time.Now,
	}
}

// TryAcquire atomically claims a fingerprint. It returns false when the key
// is already pending (and unexpired) or already satisfied. An expired
// pending entry is reclaimed so a downstream action that never completed
// cannot lock the topic out forever.
func (s *MemoryFingerprintStore) TryAcquire(ctx context.Context, fp *models.DispatchFingerprint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[fp.Key]
	if ok {
		if existing.Status == models.FingerprintSatisfied {
			return false, nil
		}
		if s.now().Before(existing.ExpiresAt) {
			return false, nil
		}
		// pending but expired: reclaim
	}

	claimed := *fp
	claimed.Status = models.FingerprintPending
	claimed.CreatedAt = s.now()
	s.entries[fp.Key] = &claimed
	return true, nil
}

// MarkSatisfied transitions a fingerprint to its terminal state. Satisfied
// entries survive TTL expiry so re-scans do not re-trigger.
func (s *MemoryFingerprintStore) MarkSatisfied(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[key]; ok {
		existing.Status = models.FingerprintSatisfied
	}
	return nil
}

// Release drops a pending fingerprint, allowing immediate re-acquisition.
// Used when a dispatch is approved by the guard but denied by the budget
// gate, so the topic stays eligible for the next cycle.
func (s *MemoryFingerprintStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[key]; ok && existing.Status == models.FingerprintPending {
		delete(s.entries, key)
	}
	return nil
}

// Get returns the stored fingerprint, or nil when absent.
func (s *MemoryFingerprintStore) Get(ctx context.Context, key string) (*models.DispatchFingerprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	cp := *existing
	return &cp, nil
}
