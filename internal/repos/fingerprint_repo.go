package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/brandbeacon/beacon-workflows/internal/models"
)

type fingerprintRepo struct {
	db *sqlx.DB
}

func NewFingerprintRepo(db *sqlx.DB) FingerprintRepository {
	return &fingerprintRepo{db: db}
}

// tryAcquireSQL is an atomic insert-if-absent. The conflict branch steals
// only expired pending rows; satisfied rows and live pending rows block the
// insert, so exactly one concurrent caller wins.
const tryAcquireSQL = `
INSERT INTO dispatch_fingerprints (key, brand_id, topic, status, expires_at, created_at)
VALUES ($1, $2, $3, 'pending', $4, NOW())
ON CONFLICT (key) DO UPDATE SET
	status = 'pending',
	brand_id = EXCLUDED.brand_id,
	topic = EXCLUDED.topic,
	expires_at = EXCLUDED.expires_at,
	created_at = NOW()
WHERE dispatch_fingerprints.status = 'pending'
  AND dispatch_fingerprints.expires_at < NOW()
RETURNING key`

// TryAcquire claims the fingerprint key. Returns false without error when
// another caller holds it or the action is already satisfied.
func (r *fingerprintRepo) TryAcquire(ctx context.Context, fp *models.DispatchFingerprint) (bool, error) {
	var key string
	err := r.db.QueryRowxContext(ctx, tryAcquireSQL,
		fp.Key, fp.BrandID, fp.Topic, fp.ExpiresAt).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to acquire fingerprint: %w", err)
	}
	return true, nil
}

// MarkSatisfied transitions the fingerprint to its terminal state.
func (r *fingerprintRepo) MarkSatisfied(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE dispatch_fingerprints SET status = 'satisfied' WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to mark fingerprint satisfied: %w", err)
	}
	return nil
}

// Release drops a pending claim so the topic is immediately reusable.
func (r *fingerprintRepo) Release(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM dispatch_fingerprints WHERE key = $1 AND status = 'pending'`, key)
	if err != nil {
		return fmt.Errorf("failed to release fingerprint: %w", err)
	}
	return nil
}

// Get returns the stored fingerprint, or nil when absent.
func (r *fingerprintRepo) Get(ctx context.Context, key string) (*models.DispatchFingerprint, error) {
	var fp models.DispatchFingerprint
	err := r.db.GetContext(ctx, &fp,
		`SELECT key, brand_id, topic, status, expires_at, created_at
		 FROM dispatch_fingerprints WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load fingerprint: %w", err)
	}
	return &fp, nil
}
