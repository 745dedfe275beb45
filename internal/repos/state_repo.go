package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/brandbeacon/beacon-workflows/internal/models"
)

type stateRepo struct {
	db *sqlx.DB
}

func NewStateRepo(db *sqlx.DB) StateRepository {
	return &stateRepo{db: db}
}

// Get returns the latest citation state for (brand, query), or nil when the
// query has never completed a cycle.
func (r *stateRepo) Get(ctx context.Context, brandID, queryID uuid.UUID) (*models.CitationState, error) {
	query, args, err := psql.
		Select("brand_id", "query_id", "was_cited", "was_mentioned", "position",
			"competitor_set", "last_observation_id", "updated_at").
		From("citation_states").
		Where(sq.Eq{"brand_id": brandID, "query_id": queryID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build state query: %w", err)
	}

	var state models.CitationState
	var competitors pq.StringArray
	row := r.db.QueryRowxContext(ctx, query, args...)
	err = row.Scan(&state.BrandID, &state.QueryID, &state.WasCited, &state.WasMentioned,
		&state.Position, &competitors, &state.LastObservationID, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load citation state: %w", err)
	}

	state.CompetitorSet = []string(competitors)
	return &state, nil
}

const upsertState = `
INSERT INTO citation_states (
	brand_id, query_id, was_cited, was_mentioned, position,
	competitor_set, last_observation_id, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (brand_id, query_id) DO UPDATE SET
	was_cited = EXCLUDED.was_cited,
	was_mentioned = EXCLUDED.was_mentioned,
	position = EXCLUDED.position,
	competitor_set = EXCLUDED.competitor_set,
	last_observation_id = EXCLUDED.last_observation_id,
	updated_at = EXCLUDED.updated_at`

// Upsert overwrites the single state row for (brand, query). Safe to retry:
// re-running a cycle step writes the same snapshot again.
func (r *stateRepo) Upsert(ctx context.Context, state *models.CitationState) error {
	_, err := r.db.ExecContext(ctx, upsertState,
		state.BrandID, state.QueryID, state.WasCited, state.WasMentioned,
		state.Position, pq.Array(state.CompetitorSet), state.LastObservationID, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert citation state: %w", err)
	}
	return nil
}
