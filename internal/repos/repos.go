// internal/repos/repos.go
package repos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brandbeacon/beacon-workflows/internal/models"
)

// psql builds queries with Postgres-style placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// BrandRepository loads brand configuration.
type BrandRepository interface {
	GetBrand(ctx context.Context, brandID uuid.UUID) (*models.Brand, error)
	ListScheduledForDOW(ctx context.Context, dow int) ([]*models.BrandSummary, error)
}

// QueryRepository loads the monitoring-question set.
type QueryRepository interface {
	ListActive(ctx context.Context, brandID uuid.UUID) ([]*models.MonitoringQuery, error)
}

// ObservationRepository appends immutable scan observations.
type ObservationRepository interface {
	BulkCreate(ctx context.Context, observations []*models.ScanObservation) error
}

// StateRepository reads and overwrites the latest citation state snapshot.
type StateRepository interface {
	Get(ctx context.Context, brandID, queryID uuid.UUID) (*models.CitationState, error)
	Upsert(ctx context.Context, state *models.CitationState) error
}

// LedgerRepository is the append-only budget ledger.
type LedgerRepository interface {
	Append(ctx context.Context, entry *models.BudgetEntry) error
	SumSince(ctx context.Context, brandID uuid.UUID, since time.Time) (float64, error)
	LastDispatchAt(ctx context.Context, brandID uuid.UUID, category string) (*time.Time, error)
}

// FingerprintRepository is the keyed dedup store with atomic
// insert-if-absent semantics.
type FingerprintRepository interface {
	TryAcquire(ctx context.Context, fp *models.DispatchFingerprint) (bool, error)
	MarkSatisfied(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (*models.DispatchFingerprint, error)
}

// RepositoryManager composes all database repositories over one connection.
type RepositoryManager struct {
	db              *sqlx.DB
	BrandRepo       BrandRepository
	QueryRepo       QueryRepository
	ObservationRepo ObservationRepository
	StateRepo       StateRepository
	LedgerRepo      LedgerRepository
	FingerprintRepo FingerprintRepository
}

// NewRepositoryManager creates a repository manager with all repositories.
func NewRepositoryManager(db *sqlx.DB) *RepositoryManager {
	return &RepositoryManager{
		db:              db,
		BrandRepo:       NewBrandRepo(db),
		QueryRepo:       NewQueryRepo(db),
		ObservationRepo: NewObservationRepo(db),
		StateRepo:       NewStateRepo(db),
		LedgerRepo:      NewLedgerRepo(db),
		FingerprintRepo: NewFingerprintRepo(db),
	}
}

// BeginTx starts a database transaction.
func (rm *RepositoryManager) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return rm.db.BeginTxx(ctx, nil)
}
