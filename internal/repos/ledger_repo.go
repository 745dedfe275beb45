package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brandbeacon/beacon-workflows/internal/models"
)

type ledgerRepo struct {
	db *sqlx.DB
}

func NewLedgerRepo(db *sqlx.DB) LedgerRepository {
	return &ledgerRepo{db: db}
}

// Append writes one ledger entry. The table is append-only; entries are
// never updated or deleted by the pipeline.
func (r *ledgerRepo) Append(ctx context.Context, entry *models.BudgetEntry) error {
	query, args, err := psql.
		Insert("budget_ledger").
		Columns("entry_id", "brand_id", "cost_units", "category", "created_at").
		Values(entry.EntryID, entry.BrandID, entry.CostUnits, entry.Category, entry.CreatedAt).
		Suffix("ON CONFLICT (entry_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build ledger insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// SumSince returns the brand's spend inside the trailing window.
func (r *ledgerRepo) SumSince(ctx context.Context, brandID uuid.UUID, since time.Time) (float64, error) {
	query, args, err := psql.
		Select("COALESCE(SUM(cost_units), 0)").
		From("budget_ledger").
		Where(sq.Eq{"brand_id": brandID}).
		Where(sq.GtOrEq{"created_at": since}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build ledger sum query: %w", err)
	}

	var total float64
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("failed to sum ledger window: %w", err)
	}
	return total, nil
}

// LastDispatchAt returns the most recent dispatch timestamp for the
// (brand, category) pair, or nil when none exists.
func (r *ledgerRepo) LastDispatchAt(ctx context.Context, brandID uuid.UUID, category string) (*time.Time, error) {
	query, args, err := psql.
		Select("created_at").
		From("budget_ledger").
		Where(sq.Eq{"brand_id": brandID, "category": category}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build last dispatch query: %w", err)
	}

	var last time.Time
	err = r.db.GetContext(ctx, &last, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last dispatch: %w", err)
	}
	return &last, nil
}
