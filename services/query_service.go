// services/query_service.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brandbeacon/beacon-workflows/internal/models"
	"github.com/brandbeacon/beacon-workflows/internal/repos"
)

type queryService struct {
	queryRepo repos.QueryRepository
}

func NewQueryService(queryRepo repos.QueryRepository) QueryService {
	return &queryService{queryRepo: queryRepo}
}

// SelectActiveQueries returns the brand's active monitoring queries ordered
// by descending priority. An empty result is a valid outcome, not an error;
// callers short-circuit the cycle on it.
func (s *queryService) SelectActiveQueries(ctx context.Context, brandID uuid.UUID) ([]*models.MonitoringQuery, error) {
	queries, err := s.queryRepo.ListActive(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("failed to select queries for brand %s: %w", brandID, err)
	}

	if len(queries) == 0 {
		log.Info().
			Str("brand_id", brandID.String()).
			Msg("No active monitoring queries, cycle will be skipped")
	}

	return queries, nil
}
