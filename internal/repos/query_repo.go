package repos

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brandbeacon/beacon-workflows/internal/models"
)

type queryRepo struct {
	db *sqlx.DB
}

func NewQueryRepo(db *sqlx.DB) QueryRepository {
	return &queryRepo{db: db}
}

// ListActive returns the brand's active monitoring queries ordered by
// descending priority. An empty result is valid.
func (r *queryRepo) ListActive(ctx context.Context, brandID uuid.UUID) ([]*models.MonitoringQuery, error) {
	query, args, err := psql.
		Select("query_id", "brand_id", "text", "category", "priority", "active", "created_at", "updated_at").
		From("monitoring_queries").
		Where(sq.Eq{"brand_id": brandID, "active": true}).
		OrderBy("priority DESC", "created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build active queries query: %w", err)
	}

	var queries []*models.MonitoringQuery
	if err := r.db.SelectContext(ctx, &queries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load active queries: %w", err)
	}
	return queries, nil
}
