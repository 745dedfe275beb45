// services/dedup_service_test.go
package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandbeacon/beacon-workflows/internal/models"
	"github.com/brandbeacon/beacon-workflows/internal/providers/testutil"
	"github.com/brandbeacon/beacon-workflows/internal/store"
)

// failingFingerprintStore simulates an unavailable backing store.
type failingFingerprintStore struct{}

func (f *failingFingerprintStore) TryAcquire(ctx context.Context, fp *models.DispatchFingerprint) (bool, error) {
	return false, errors.New("store unavailable")
}
func (f *failingFingerprintStore) MarkSatisfied(ctx context.Context, key string) error {
	return errors.New("store unavailable")
}
func (f *failingFingerprintStore) Release(ctx context.Context, key string) error {
	return errors.New("store unavailable")
}
func (f *failingFingerprintStore) Get(ctx context.Context, key string) (*models.DispatchFingerprint, error) {
	return nil, errors.New("store unavailable")
}

func newTestDedup() DedupService {
	return NewDedupService(store.NewMemoryFingerprintStore(), testutil.SampleConfig().Dispatch)
}

func TestFingerprintNormalization(t *testing.T) {
	dedup := newTestDedup()
	brandID := uuid.New()

	base := dedup.Fingerprint(brandID, "Best CRM for Startups")
	assert.Equal(t, base, dedup.Fingerprint(brandID, "best crm for startups"), "case must not matter")
	assert.Equal(t, base, dedup.Fingerprint(brandID, "Best CRM, for Startups!"), "punctuation must not matter")
	assert.Equal(t, base, dedup.Fingerprint(brandID, "  Best   CRM  for  Startups "), "whitespace must not matter")

	assert.NotEqual(t, base, dedup.Fingerprint(brandID, "Best CRM for Enterprises"), "different topics must differ")
	assert.NotEqual(t, base, dedup.Fingerprint(uuid.New(), "Best CRM for Startups"), "different brands must never collide")
}

func TestTryAcquireSuppressesDuplicates(t *testing.T) {
	dedup := newTestDedup()
	brandID := uuid.New()

	acquired, key := dedup.TryAcquire(context.Background(), brandID, "Best CRM for Startups")
	require.True(t, acquired)
	require.NotEmpty(t, key)

	again, _ := dedup.TryAcquire(context.Background(), brandID, "best crm for startups!")
	assert.False(t, again, "normalized duplicate must be suppressed")
}

func TestTryAcquireConcurrent(t *testing.T) {
	dedup := newTestDedup()
	brandID := uuid.New()

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acquired, _ := dedup.TryAcquire(context.Background(), brandID, "Best CRM for Startups")
			results <- acquired
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for acquired := range results {
		if acquired {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one concurrent attempt may acquire the fingerprint")
}

func TestSatisfiedFingerprintStaysSuppressed(t *testing.T) {
	dedup := newTestDedup()
	brandID := uuid.New()

	acquired, key := dedup.TryAcquire(context.Background(), brandID, "Best CRM for Startups")
	require.True(t, acquired)
	require.NoError(t, dedup.MarkSatisfied(context.Background(), key))

	again, _ := dedup.TryAcquire(context.Background(), brandID, "Best CRM for Startups")
	assert.False(t, again, "satisfied topics must not re-trigger")
}

func TestReleaseFreesTopic(t *testing.T) {
	dedup := newTestDedup()
	brandID := uuid.New()

	acquired, key := dedup.TryAcquire(context.Background(), brandID, "Best CRM for Startups")
	require.True(t, acquired)

	dedup.Release(context.Background(), key)

	again, _ := dedup.TryAcquire(context.Background(), brandID, "Best CRM for Startups")
	assert.True(t, again, "released topic must be acquirable again")
}

func TestTryAcquireFailsClosed(t *testing.T) {
	dedup := NewDedupService(&failingFingerprintStore{}, testutil.SampleConfig().Dispatch)

	acquired, key := dedup.TryAcquire(context.Background(), uuid.New(), "Best CRM for Startups")
	assert.False(t, acquired, "store failure must read as already-acquired")
	assert.NotEmpty(t, key)
}
