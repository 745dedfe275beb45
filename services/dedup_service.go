// services/dedup_service.go
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/brandbeacon/beacon-workflows/internal/config"
	"github.com/brandbeacon/beacon-workflows/internal/metrics"
	"github.com/brandbeacon/beacon-workflows/internal/models"
	"github.com/brandbeacon/beacon-workflows/internal/repos"
)

var topicPunctuation = regexp.MustCompile(`[^a-z0-9\s]+`)

type dedupService struct {
	store   repos.FingerprintRepository
	cfg     config.DispatchConfig
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewDedupService(store repos.FingerprintRepository, cfg config.DispatchConfig) DedupService {
	return &dedupService{
		store: store,
		cfg:   cfg,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "fingerprint-store",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
		now: time.Now,
	}
}

// Fingerprint derives the dedup key for a topic: lowercase, punctuation
// stripped, whitespace collapsed, truncated to a fixed prefix, then hashed
// together with the brand so different brands never collide.
func (s *dedupService) Fingerprint(brandID uuid.UUID, topic string) string {
	normalized := strings.ToLower(topic)
	normalized = topicPunctuation.ReplaceAllString(normalized, "")
	normalized = strings.Join(strings.Fields(normalized), " ")
	if len(normalized) > s.cfg.TopicPrefixLen {
		normalized = normalized[:s.cfg.TopicPrefixLen]
	}

	sum := sha256.Sum256([]byte(brandID.String() + "|" + normalized))
	return hex.EncodeToString(sum[:])
}

// TryAcquire atomically claims the topic's fingerprint. Any store failure
// reports not-acquired: a duplicate suppressed in error is recoverable on
// the next scan, a duplicate dispatched is not.
func (s *dedupService) TryAcquire(ctx context.Context, brandID uuid.UUID, topic string) (bool, string) {
	key := s.Fingerprint(brandID, topic)
	now := s.now().UTC()

	acquired, err := s.breaker.Execute(func() (interface{}, error) {
		return s.store.TryAcquire(ctx, &models.DispatchFingerprint{
			Key:       key,
			BrandID:   brandID,
			Topic:     topic,
			Status:    models.FingerprintPending,
			ExpiresAt: now.Add(s.cfg.FingerprintTTL),
			CreatedAt: now,
		})
	})
	if err != nil {
		log.Error().Err(err).
			Str("brand_id", brandID.String()).
			Str("key", key).
			Msg("Fingerprint store unavailable, treating topic as duplicate")
		metrics.DedupSuppressed.Inc()
		return false, key
	}

	if !acquired.(bool) {
		metrics.DedupSuppressed.Inc()
		return false, key
	}
	return true, key
}

func (s *dedupService) MarkSatisfied(ctx context.Context, key string) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.store.MarkSatisfied(ctx, key)
	})
	return err
}

// Release frees a pending fingerprint after a downstream failure so the
// topic can be retried. Best effort: an unreleased fingerprint still
// expires on its own.
func (s *dedupService) Release(ctx context.Context, key string) {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.store.Release(ctx, key)
	})
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to release fingerprint, will expire via TTL")
	}
}
