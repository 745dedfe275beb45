package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brandbeacon/beacon-workflows/internal/models"
)

type brandRepo struct {
	db *sqlx.DB
}

func NewBrandRepo(db *sqlx.DB) BrandRepository {
	return &brandRepo{db: db}
}

// GetBrand returns the brand row plus its websites, competitors, and
// configured provider ids from the child tables.
func (r *brandRepo) GetBrand(ctx context.Context, brandID uuid.UUID) (*models.Brand, error) {
	query, args, err := psql.
		Select("brand_id", "name", "budget_cap", "active", "scheduled_dow", "created_at", "updated_at").
		From("brands").
		Where(sq.Eq{"brand_id": brandID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build brand query: %w", err)
	}

	var brand models.Brand
	if err := r.db.GetContext(ctx, &brand, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("brand %s not found", brandID)
		}
		return nil, fmt.Errorf("failed to load brand: %w", err)
	}

	if brand.Websites, err = r.selectChild(ctx, "brand_websites", "url", brandID); err != nil {
		return nil, err
	}
	if brand.Competitors, err = r.selectChild(ctx, "brand_competitors", "name", brandID); err != nil {
		return nil, err
	}
	if brand.Providers, err = r.selectChild(ctx, "brand_providers", "provider_id", brandID); err != nil {
		return nil, err
	}

	return &brand, nil
}

func (r *brandRepo) selectChild(ctx context.Context, table, column string, brandID uuid.UUID) ([]string, error) {
	query, args, err := psql.
		Select(column).
		From(table).
		Where(sq.Eq{"brand_id": brandID}).
		OrderBy(column).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", table, err)
	}

	var values []string
	if err := r.db.SelectContext(ctx, &values, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", table, err)
	}
	return values, nil
}

// ListScheduledForDOW returns active brands scheduled for the given day of
// week (0=Sunday).
func (r *brandRepo) ListScheduledForDOW(ctx context.Context, dow int) ([]*models.BrandSummary, error) {
	query, args, err := psql.
		Select("brand_id", "name", "active").
		From("brands").
		Where(sq.Eq{"active": true, "scheduled_dow": dow}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build scheduled brands query: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled brands: %w", err)
	}
	defer rows.Close()

	var summaries []*models.BrandSummary
	for rows.Next() {
		var s models.BrandSummary
		if err := rows.Scan(&s.BrandID, &s.Name, &s.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan brand summary: %w", err)
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}
